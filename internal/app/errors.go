package service

import "errors"

// Sentinel kinds returned by the service. The HTTP layer maps them to
// status codes with errors.Is.
var (
	ErrUnknownGame     = errors.New("unknown game")
	ErrGameInactive    = errors.New("game is not active")
	ErrWrongGame       = errors.New("operation does not apply to this game")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotStarted      = errors.New("service not started")
	ErrInvalidInput    = errors.New("invalid input")
	ErrPlayerRequired  = errors.New("player id is required")
)
