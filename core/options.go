package session

import "github.com/marketpulse/voice-core/core/tools"

// Option adjusts a session at construction time.
type Option func(*Session)

// WithTools registers the tool set declared to the remote agent on
// session creation. The registry is immutable for the session's lifetime.
func WithTools(registered ...tools.Tool) Option {
	return func(s *Session) {
		s.registry = tools.NewRegistry(registered...)
	}
}

// WithID overrides the generated session id, mostly for tests.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}
