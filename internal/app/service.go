// Package service wires the weakness tracker to storage, the evaluation
// queue and the coaching model, and implements what the HTTP API and the MCP
// tools need.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/coach/internal/adapters/mq/queue"
	workerpool "github.com/okian/coach/internal/adapters/mq/worker"
	"github.com/okian/coach/internal/adapters/repository"
	"github.com/okian/coach/internal/domain/coach"
	"github.com/okian/coach/internal/domain/dedupe"
	"github.com/okian/coach/internal/domain/model"
	"github.com/okian/coach/internal/domain/profile"
	"github.com/okian/coach/pkg/logger"
	"github.com/okian/coach/pkg/metrics"
)

const statsTimeout = 2 * time.Second

// Service implements the API dependencies for the coaching backend.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	deduper   dedupe.Deduper
	queue     *eventqueue.InMemoryQueue
	pool      *workerpool.Pool
	tracker   *profile.Tracker
	coach     *coach.Coach
	locks     *keyedLocks
	completer coach.Completer
	llmStatus providerReporter

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	shardCount   int
	defaultLevel profile.SkillLevel
	trackerOpts  []profile.Option
	coachOpts    []coach.Option

	// State
	started  bool
	stopped  bool
	applied  atomic.Int64
	degraded atomic.Int64

	logger logger.Logger
}

// New constructs a Service. The tracker exists immediately so synchronous
// reads work before Start; the queue and workers are created by Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU() * 2,
		queueSize:    10_000,
		dedupeSize:   100_000,
		shardCount:   64,
		defaultLevel: profile.Intermediate,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.tracker = profile.NewTracker(s.trackerOpts...)
	s.locks = newKeyedLocks(s.shardCount)
	if s.completer != nil {
		copts := append([]coach.Option{coach.WithTracker(s.tracker), coach.WithLogger(s.logger.Named("coach"))}, s.coachOpts...)
		s.coach = coach.New(s.completer, copts...)
	}
	return s
}

// Tracker exposes the configured tracker for read-only planning.
func (s *Service) Tracker() *profile.Tracker { return s.tracker }

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}

	s.logger.Info(ctx, "starting coach service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.logger.Info(ctx, "using profile store", logger.String("driver", s.store.Driver()))

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s,
		workerpool.WithLogger(s.logger.Named("worker")),
		workerpool.WithFailureHandler(s.onApplyFailure),
	)
	// Workers outlive the caller's context so Stop can drain the queue.
	s.pool.Start(context.WithoutCancel(ctx))

	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateProfiles(n)
	}

	s.started = true
	s.logger.Info(ctx, "coach service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("llm", s.coach != nil),
	)
	return nil
}

// Stop drains queued evaluations and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping coach service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "coach service stopped", logger.Int64("applied", s.applied.Load()))
	return errors.Join(errs...)
}

func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.stopped:
		return ErrStopped
	case !s.started:
		return ErrNotStarted
	}
	return nil
}

func validPlayerID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > 128 {
		return ErrInvalidPlayerID
	}
	return nil
}

// SeenAndRecord atomically checks if an evaluation id was seen and records
// it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordEvaluationDuplicate()
	}
	return seen
}

// Unrecord forgets an evaluation id so it can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Enqueue hands an evaluation to the workers without blocking.
func (s *Service) Enqueue(ctx context.Context, ev model.EvaluationEvent) error { //nolint:gocritic // hugeParam: queued by value
	if err := s.running(); err != nil {
		return err
	}
	err := s.queue.Enqueue(ctx, ev)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, eventqueue.ErrFull):
		return ErrBackpressure
	case errors.Is(err, eventqueue.ErrClosed):
		return ErrStopped
	default:
		return err
	}
}

// Submission is the outcome of Submit.
type Submission struct {
	EventID   string          `json:"eventId"`
	Duplicate bool            `json:"duplicate"`
	Warnings  []profile.Issue `json:"warnings,omitempty"`
}

// Submit validates an evaluation, drops it if its id was seen before and
// otherwise queues it. A blank eventID gets a fresh one.
func (s *Service) Submit(ctx context.Context, eventID, playerID string, e profile.Evaluation) (Submission, error) {
	if err := s.running(); err != nil {
		return Submission{}, err
	}
	if err := validPlayerID(playerID); err != nil {
		return Submission{}, err
	}
	if err := e.Validate(); err != nil {
		return Submission{}, err
	}
	if strings.TrimSpace(eventID) == "" {
		eventID = uuid.NewString()
	}
	sub := Submission{EventID: eventID, Warnings: profile.Inspect(e)}

	if s.SeenAndRecord(ctx, eventID) {
		sub.Duplicate = true
		return sub, nil
	}
	ev := model.EvaluationEvent{
		EventID:    eventID,
		PlayerID:   playerID,
		Evaluation: e,
		ReceivedAt: time.Now(),
	}
	if err := s.Enqueue(ctx, ev); err != nil {
		s.Unrecord(ctx, eventID)
		return Submission{}, err
	}
	return sub, nil
}

// Apply is the worker entry point.
func (s *Service) Apply(ctx context.Context, ev model.EvaluationEvent) error { //nolint:gocritic // hugeParam: matches worker.Applier
	_, _, err := s.Record(ctx, ev.PlayerID, ev.Evaluation)
	return err
}

func (s *Service) onApplyFailure(ctx context.Context, ev model.EvaluationEvent, err error) { //nolint:gocritic // hugeParam: matches worker.FailureHandler
	s.logger.Error(ctx, "evaluation dropped",
		logger.PlayerID(ev.PlayerID),
		logger.String("event_id", ev.EventID),
		logger.Error(err))
	s.Unrecord(ctx, ev.EventID)
}

// load returns the stored profile or a fresh default one. created reports
// the latter.
func (s *Service) load(ctx context.Context, playerID string) (p profile.Profile, created bool, err error) {
	p, err = s.store.Get(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.tracker.NewProfile(playerID, s.defaultLevel), true, nil
	}
	if err != nil {
		return profile.Profile{}, false, fmt.Errorf("load profile %s: %w", playerID, err)
	}
	return p, false, nil
}

func (s *Service) save(ctx context.Context, p profile.Profile, created bool) error {
	if err := s.store.Put(ctx, p.PlayerID, p); err != nil {
		return fmt.Errorf("store profile %s: %w", p.PlayerID, err)
	}
	if created {
		if n, err := s.store.Count(ctx); err == nil {
			metrics.UpdateProfiles(n)
		}
	}
	return nil
}

// Record applies one evaluation synchronously and returns the new profile
// with any degradations applied along the way.
func (s *Service) Record(ctx context.Context, playerID string, e profile.Evaluation) (profile.Profile, []profile.Issue, error) {
	if err := validPlayerID(playerID); err != nil {
		return profile.Profile{}, nil, err
	}
	if err := e.Validate(); err != nil {
		return profile.Profile{}, nil, err
	}

	var (
		out    profile.Profile
		issues []profile.Issue
	)
	err := s.locks.with(playerID, func() error {
		p, created, err := s.load(ctx, playerID)
		if err != nil {
			return err
		}
		start := time.Now()
		out, issues = s.tracker.RecordEvaluation(p, e)
		metrics.RecordTrackerApplyLatency(float64(time.Since(start).Microseconds()) / 1000)
		return s.save(ctx, out, created)
	})
	if err != nil {
		metrics.RecordErrorByComponent("service", "record")
		return profile.Profile{}, nil, err
	}

	s.applied.Add(1)
	metrics.RecordEvaluationProcessed()
	if cat, _, perr := profile.ParseLeak(e.LeakIdentified); perr == nil {
		metrics.RecordLeakReinforcement(cat)
	}
	for _, is := range issues {
		s.degraded.Add(1)
		metrics.RecordEvaluationDegraded(is.Reason)
		s.logger.Debug(ctx, "evaluation degraded",
			logger.PlayerID(playerID),
			logger.String("field", is.Field),
			logger.String("reason", is.Reason))
	}
	return out, issues, nil
}

// Profile returns the stored profile, or the default one (not persisted)
// for an unknown player.
func (s *Service) Profile(ctx context.Context, playerID string) (profile.Profile, error) {
	if err := validPlayerID(playerID); err != nil {
		return profile.Profile{}, err
	}
	p, _, err := s.load(ctx, playerID)
	return p, err
}

// CreateProfile persists a fresh profile at level. An existing profile is
// left alone and ErrProfileExists returned with it.
func (s *Service) CreateProfile(ctx context.Context, playerID string, level profile.SkillLevel) (profile.Profile, error) {
	if err := validPlayerID(playerID); err != nil {
		return profile.Profile{}, err
	}
	if level == "" {
		level = s.defaultLevel
	}
	if !level.Valid() {
		return profile.Profile{}, profile.ErrUnknownSkillLevel
	}

	var out profile.Profile
	err := s.locks.with(playerID, func() error {
		p, created, err := s.load(ctx, playerID)
		if err != nil {
			return err
		}
		if !created {
			out = p
			return ErrProfileExists
		}
		out = s.tracker.NewProfile(playerID, level)
		return s.save(ctx, out, true)
	})
	return out, err
}

// FocusAreas lists the player's top leaks. topN <= 0 means the default.
func (s *Service) FocusAreas(ctx context.Context, playerID string, topN int) ([]string, error) {
	p, err := s.Profile(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return s.tracker.SelectFocusAreas(p, topN), nil
}

// DifficultyView is the current level next to the recommendation.
type DifficultyView struct {
	Current        profile.SkillLevel `json:"current"`
	Recommended    profile.SkillLevel `json:"recommended"`
	RecentAccuracy float64            `json:"recentAccuracy"`
	WindowSize     int                `json:"windowSize"`
}

// Difficulty recommends a level without changing the profile.
func (s *Service) Difficulty(ctx context.Context, playerID string) (DifficultyView, error) {
	p, err := s.Profile(ctx, playerID)
	if err != nil {
		return DifficultyView{}, err
	}
	acc, n := s.tracker.RecentAccuracy(p)
	v := DifficultyView{
		Current:        p.SkillLevel,
		Recommended:    s.tracker.RecommendDifficulty(p),
		RecentAccuracy: acc,
		WindowSize:     n,
	}
	metrics.RecordDifficultyRecommendation(string(v.Current), string(v.Recommended))
	return v, nil
}

// PromoteSkill stores the recommended level. changed is false when the
// level stays the same.
func (s *Service) PromoteSkill(ctx context.Context, playerID string) (out profile.Profile, changed bool, err error) {
	if err = validPlayerID(playerID); err != nil {
		return profile.Profile{}, false, err
	}
	err = s.locks.with(playerID, func() error {
		p, created, err := s.load(ctx, playerID)
		if err != nil {
			return err
		}
		from := p.SkillLevel
		out, changed = s.tracker.Promote(p)
		if !changed {
			return nil
		}
		metrics.RecordDifficultyRecommendation(string(from), string(out.SkillLevel))
		s.logger.Info(ctx, "skill level changed",
			logger.PlayerID(playerID),
			logger.String("from", string(from)),
			logger.String("to", string(out.SkillLevel)))
		return s.save(ctx, out, created)
	})
	return out, changed, err
}

// Recommendations plans the next training session.
func (s *Service) Recommendations(ctx context.Context, playerID string) (profile.Recommendation, error) {
	p, err := s.Profile(ctx, playerID)
	if err != nil {
		return profile.Recommendation{}, err
	}
	return s.tracker.Recommend(p), nil
}

// SessionSummary reports the player's current or most recent session.
func (s *Service) SessionSummary(ctx context.Context, playerID string) (profile.SessionSummary, error) {
	p, err := s.Profile(ctx, playerID)
	if err != nil {
		return profile.SessionSummary{}, err
	}
	return s.tracker.SessionSummary(p), nil
}

// NextScenario asks the model for a spot aimed at the player's weakest area.
func (s *Service) NextScenario(ctx context.Context, playerID string, req coach.ScenarioRequest) (coach.Scenario, error) {
	if s.coach == nil {
		return coach.Scenario{}, ErrNoLLM
	}
	p, err := s.Profile(ctx, playerID)
	if err != nil {
		return coach.Scenario{}, err
	}
	return s.coach.GenerateScenario(ctx, p, req)
}

// DecisionResult is a judged decision after it has been recorded.
type DecisionResult struct {
	Feedback   coach.Feedback     `json:"feedback"`
	Evaluation profile.Evaluation `json:"evaluation"`
	Profile    profile.Profile    `json:"profile"`
	Warnings   []profile.Issue    `json:"warnings,omitempty"`
}

// EvaluateDecision has the model judge action in sc, then records the
// verdict against the player's profile.
func (s *Service) EvaluateDecision(ctx context.Context, playerID string, sc coach.Scenario, action string, decisionTime time.Duration) (DecisionResult, error) {
	if s.coach == nil {
		return DecisionResult{}, ErrNoLLM
	}
	p, err := s.Profile(ctx, playerID)
	if err != nil {
		return DecisionResult{}, err
	}
	fb, ev, err := s.coach.EvaluateDecision(ctx, p, sc, action, decisionTime)
	if err != nil {
		return DecisionResult{}, err
	}
	updated, issues, err := s.Record(ctx, playerID, ev)
	if err != nil {
		return DecisionResult{}, err
	}
	return DecisionResult{Feedback: fb, Evaluation: ev, Profile: updated, Warnings: issues}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"shardCount":  s.shardCount,
		"applied":     s.applied.Load(),
		"degraded":    s.degraded.Load(),
		"llmEnabled":  s.coach != nil,
	}
	if s.llmStatus != nil {
		stats["llmProviders"] = s.llmStatus.Status()
	}

	if s.started {
		ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
		defer cancel()

		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		stats["processed"] = s.pool.Processed()
		stats["storeDriver"] = s.store.Driver()
		if n, err := s.store.Count(ctx); err == nil {
			stats["totalProfiles"] = n
			metrics.UpdateProfiles(n)
		}

		metrics.UpdateQueueSize(queueLen, s.queue.Cap())
		metrics.UpdateWorkerCount(s.workerCount)
	}
	return stats
}
