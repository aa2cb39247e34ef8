package ploom

import "errors"

var (
	ErrEmptyTask         = errors.New("task is empty")
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrEmptyResponse     = errors.New("model returned no output")
)
