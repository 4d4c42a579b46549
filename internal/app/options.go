package service

import (
	"github.com/okian/coach/internal/adapters/llm"
	"github.com/okian/coach/internal/adapters/repository"
	"github.com/okian/coach/internal/domain/coach"
	"github.com/okian/coach/internal/domain/profile"
	"github.com/okian/coach/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the evaluation queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the number of per-player lock stripes.
func WithShardCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the profile store. Without one Start opens a memory store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithTrackerOptions tunes decay, thresholds and windows.
func WithTrackerOptions(opts ...profile.Option) Option {
	return func(s *Service) {
		s.trackerOpts = append(s.trackerOpts, opts...)
	}
}

// WithDefaultSkillLevel is the level given to players seen for the first time.
func WithDefaultSkillLevel(level profile.SkillLevel) Option {
	return func(s *Service) {
		if level.Valid() {
			s.defaultLevel = level
		}
	}
}

// WithLLM enables scenario generation and decision evaluation. A completer
// that reports provider health (llm.Manager does) shows up in stats.
func WithLLM(c coach.Completer, opts ...coach.Option) Option {
	return func(s *Service) {
		s.completer = c
		s.coachOpts = opts
		if r, ok := c.(providerReporter); ok {
			s.llmStatus = r
		}
	}
}

type providerReporter interface {
	Status() []llm.ProviderStatus
}
