package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("setting not found")
	ErrUnknownGame   = errors.New("unknown game key")
	ErrInvalidLimit  = errors.New("invalid ledger limit")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrClosed        = errors.New("store closed")
)
