package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/coach/pkg/logger"
	"github.com/okian/coach/pkg/metrics"
)

// ProviderStatus is what the manager remembers about one provider.
type ProviderStatus struct {
	Name      string     `json:"name"`
	Healthy   bool       `json:"healthy"`
	LastError string     `json:"lastError,omitempty"`
	LastUsed  *time.Time `json:"lastUsed,omitempty"`
}

// Manager tries providers in priority order until one answers.
type Manager struct {
	providers []Completer
	priority  []string
	log       logger.Logger

	mu     sync.Mutex
	status map[string]*ProviderStatus
}

// NewManager orders providers by WithPriority, if given.
func NewManager(providers []Completer, opts ...ManagerOption) *Manager {
	m := &Manager{
		log:    logger.Get().Named("llm"),
		status: make(map[string]*ProviderStatus),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.providers = order(providers, m.priority)
	for _, p := range m.providers {
		m.status[p.Name()] = &ProviderStatus{Name: p.Name(), Healthy: true}
	}
	return m
}

func order(providers []Completer, priority []string) []Completer {
	out := make([]Completer, 0, len(providers))
	used := make([]bool, len(providers))
	for _, name := range priority {
		for i, p := range providers {
			if !used[i] && p.Name() == name {
				out = append(out, p)
				used[i] = true
			}
		}
	}
	for i, p := range providers {
		if !used[i] {
			out = append(out, p)
		}
	}
	return out
}

func (m *Manager) Name() string { return "manager" }

// Providers lists provider names in the order they are tried.
func (m *Manager) Providers() []string {
	names := make([]string, len(m.providers))
	for i, p := range m.providers {
		names[i] = p.Name()
	}
	return names
}

// Complete returns the first successful answer. When every provider fails
// the error wraps ErrAllProvidersFailed and each cause.
func (m *Manager) Complete(ctx context.Context, r Request) (string, error) {
	if len(m.providers) == 0 {
		return "", ErrNoProviders
	}
	errs := []error{ErrAllProvidersFailed}
	for i, p := range m.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if i > 0 {
			metrics.RecordLLMFallback(p.Name())
		}
		start := time.Now()
		text, err := p.Complete(ctx, r)
		ms := float64(time.Since(start).Microseconds()) / 1000
		if err == nil {
			metrics.RecordLLMRequest(p.Name(), "ok", ms)
			m.mark(p.Name(), nil)
			return text, nil
		}
		metrics.RecordLLMRequest(p.Name(), "error", ms)
		m.mark(p.Name(), err)
		m.log.Warn(ctx, "llm provider failed",
			logger.String("provider", p.Name()),
			logger.Error(err))
		errs = append(errs, err)

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.Auth() {
			m.log.Error(ctx, "llm provider rejected credentials", logger.String("provider", p.Name()))
		}
	}
	return "", errors.Join(errs...)
}

func (m *Manager) mark(name string, err error) {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.status[name]
	if !ok {
		return
	}
	st.LastUsed = &now
	st.Healthy = err == nil
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
	}
}

// Status reports every configured provider in try order.
func (m *Manager) Status() []ProviderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ProviderStatus, 0, len(m.providers))
	for _, p := range m.providers {
		st := *m.status[p.Name()]
		if st.LastUsed != nil {
			t := *st.LastUsed
			st.LastUsed = &t
		}
		out = append(out, st)
	}
	return out
}

func (m *Manager) String() string {
	return fmt.Sprintf("llm.Manager%v", m.Providers())
}

var _ Completer = (*Manager)(nil)
