package claims

import "errors"

// Sentinel kinds for claim errors.
var (
	ErrEmptyPlayer = errors.New("player id is required")
	ErrNoClient    = errors.New("redis client is required")
)
