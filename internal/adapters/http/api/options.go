package api

import "github.com/okian/inkplay/pkg/logger"

type options struct {
	adminSecret    string
	allowedOrigins []string
	logger         logger.Logger
}

// Option configures the Server.
type Option func(*options)

// WithAdminSecret sets the HS256 secret admin bearer tokens are signed with.
// Without it the admin routes answer 503.
func WithAdminSecret(secret string) Option {
	return func(o *options) { o.adminSecret = secret }
}

// WithAllowedOrigins restricts WebSocket upgrades to the given origins.
// An empty list accepts any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(o *options) { o.allowedOrigins = append([]string(nil), origins...) }
}

// WithLogger sets the logger used by long-lived handlers.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
