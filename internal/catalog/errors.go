package catalog

import "errors"

// Domain errors for catalog operations.
var (
	ErrEmptyID         = errors.New("catalog channel id cannot be empty")
	ErrEmptyName       = errors.New("catalog channel name cannot be empty")
	ErrEmptyURL        = errors.New("catalog source url cannot be empty")
	ErrChannelNotFound = errors.New("catalog channel not found")
	ErrNoSnapshot      = errors.New("no catalog snapshot available")
	ErrRebuildRunning  = errors.New("catalog rebuild already in progress")
)
