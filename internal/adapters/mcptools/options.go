package mcptools

import "github.com/okian/coach/pkg/logger"

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used for failed tool calls.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}
