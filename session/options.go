package session

import "log/slog"

// Option configures a Session.
type Option func(*Session)

// WithHandler sets the subscriber that receives decoded chunks.
func WithHandler(h Handler) Option {
	return func(s *Session) {
		if h != nil {
			s.handler = h
		}
	}
}

// WithReporter sets the sink for failures. Defaults to LogReporter on the session logger.
func WithReporter(r Reporter) Option {
	return func(s *Session) {
		s.reporter = r
	}
}

// WithLogger sets the logger for lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver sets an Observer, typically a metrics collector.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithDeferredClose makes Disconnect only raise the stop signal. The read
// loop closes the stream after its pending read returns, so a disconnect
// completes only when the next chunk arrives or the stream ends.
func WithDeferredClose() Option {
	return func(s *Session) {
		s.deferredClose = true
	}
}
