package services

import "errors"

// Analysis service errors
var (
	ErrRunInProgress = errors.New("an analysis is already running")
	ErrRunNotFound   = errors.New("analysis not found")
	ErrRunNotActive  = errors.New("analysis is not running")
	ErrServiceClosed = errors.New("analysis service is shutting down")
)
