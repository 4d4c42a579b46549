package coach

import (
	"github.com/okian/coach/internal/domain/profile"
	"github.com/okian/coach/internal/domain/scoring"
	"github.com/okian/coach/pkg/logger"
)

// Option configures a Coach.
type Option func(*Coach)

// WithTracker shares the service's tracker so focus and difficulty match.
func WithTracker(t *profile.Tracker) Option {
	return func(c *Coach) {
		if t != nil {
			c.tracker = t
		}
	}
}

func WithScorer(s scoring.Scorer) Option {
	return func(c *Coach) {
		if s != nil {
			c.scorer = s
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Coach) {
		if l != nil {
			c.log = l
		}
	}
}

// WithSampling sets temperature and token budget for every request.
func WithSampling(temperature float64, maxTokens int) Option {
	return func(c *Coach) {
		c.temperature = &temperature
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}
