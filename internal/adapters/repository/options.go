package repository

import "time"

const (
	defaultLedgerCapacity = 10_000
	defaultMaxOpenConns   = 10
)

// Option configures a store.
type Option func(*options)

type options struct {
	ledgerCapacity int
	maxOpenConns   int
	now            func() time.Time
}

func defaultOptions() options {
	return options{
		ledgerCapacity: defaultLedgerCapacity,
		maxOpenConns:   defaultMaxOpenConns,
		now:            time.Now,
	}
}

// WithLedgerCapacity bounds how many wins the memory store keeps.
func WithLedgerCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.ledgerCapacity = n
		}
	}
}

// WithMaxOpenConns caps the postgres connection pool. SQLite always uses one.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

// WithClock replaces time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
