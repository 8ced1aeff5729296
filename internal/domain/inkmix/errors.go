package inkmix

import "errors"

// Sentinel kinds for ink mix errors.
var (
	ErrUnknownTube = errors.New("unknown tube")
)
