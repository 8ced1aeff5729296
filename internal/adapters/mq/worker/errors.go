package worker

import "errors"

// ErrDrainTimeout is returned by Pool.Shutdown when workers are still busy
// after the shutdown deadline.
var ErrDrainTimeout = errors.New("worker drain timed out")
