package calendar

import "errors"

var (
	ErrCalendarNotFound = errors.New("calendar not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrInvalidRRule     = errors.New("invalid recurrence rule")
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrInvalidInput     = errors.New("invalid input")
)
