package game

import "errors"

// Sentinel kinds for game errors.
var (
	ErrUnknownKind = errors.New("unknown game")
)
