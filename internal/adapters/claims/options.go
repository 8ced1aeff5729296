package claims

import "time"

const (
	defaultMaxSize = 100_000
	defaultPrefix  = "inkplay:claim:"
)

type options struct {
	maxSize int
	ttl     time.Duration
	prefix  string
	now     func() time.Time
}

func defaultOptions() options {
	return options{maxSize: defaultMaxSize, prefix: defaultPrefix, now: time.Now}
}

// Option configures a claim store.
type Option func(*options)

// WithMaxSize bounds the memory store. When full the oldest claim is evicted.
// maxSize <= 0 means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(o *options) {
		o.maxSize = maxSize
	}
}

// WithTTL expires claims after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl >= 0 {
			o.ttl = ttl
		}
	}
}

// WithPrefix sets the Redis key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithClock replaces time.Now for TTL checks in the memory store.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
