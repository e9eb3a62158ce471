package guide

import "errors"

// Domain errors for guide operations.
var (
	ErrEmptyChannelID  = errors.New("guide program channel id cannot be empty")
	ErrInvalidInterval = errors.New("guide program start must precede stop")
	ErrEmptySource     = errors.New("guide source cannot be empty")
	ErrRefreshRunning  = errors.New("guide refresh already in progress")
	ErrProgramNotFound = errors.New("guide program not found")
	ErrIconNotFound    = errors.New("guide channel icon not found")
)
