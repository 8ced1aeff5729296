package memory

import "errors"

// ErrUnknownState is returned when a card state name cannot be parsed.
var ErrUnknownState = errors.New("unknown card state")
