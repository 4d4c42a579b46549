// Package repository persists player profiles.
//
// Every backend stores the whole profile as one JSON document keyed by player
// id. Writes are last-writer-wins; callers serialize read-modify-write per
// player.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/coach/internal/domain/profile"
	"github.com/okian/coach/pkg/metrics"
)

const defaultOpTimeout = 3 * time.Second

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// Store reads and writes profiles.
type Store interface {
	// Get returns ErrNotFound when the player has no stored profile.
	Get(ctx context.Context, playerID string) (profile.Profile, error)
	Put(ctx context.Context, playerID string, p profile.Profile) error
	// Delete is a no-op for unknown players.
	Delete(ctx context.Context, playerID string) error
	// List returns player ids in ascending order.
	List(ctx context.Context, limit, offset int) ([]string, error)
	Count(ctx context.Context) (int, error)
	Close() error
	Driver() string
}

// Open builds the backend named by opts.Driver.
func Open(ctx context.Context, opts ...Option) (Store, error) {
	o := options{driver: DriverMemory, timeout: defaultOpTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	switch o.driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		path := o.dsn
		if path == "" {
			path = o.sqlitePath
		}
		s, err := NewSQLiteStore(ctx, path, o.timeout)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return s, nil
	case DriverPostgres:
		s, err := NewPostgresStore(ctx, o.dsn, o.timeout)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, nil
	case DriverPgx:
		s, err := NewPgxStore(ctx, o.dsn, o.timeout)
		if err != nil {
			return nil, fmt.Errorf("open pgx: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, o.driver)
	}
}

func validID(playerID string) error {
	if strings.TrimSpace(playerID) == "" {
		return ErrInvalidPlayerID
	}
	return nil
}

// observe records latency and failure for one store call. ErrNotFound is an
// answer, not a failure.
func observe(driver, op string, start time.Time, err error) {
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	metrics.RecordStoreOperation(driver, op, float64(time.Since(start).Microseconds())/1000, err)
}

func opContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
