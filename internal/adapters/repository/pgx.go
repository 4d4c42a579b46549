package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/coach/internal/domain/profile"
)

// PgxStore talks to Postgres through a native pgx pool.
type PgxStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPgxStore connects, pings and applies the schema.
func NewPgxStore(ctx context.Context, dsn string, timeout time.Duration) (*PgxStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	ictx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ictx); err != nil {
		pool.Close()
		return nil, err
	}
	ddl, err := schemas.ReadFile(postgresDialect.schema)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ictx, string(ddl)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate pgx: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &PgxStore{pool: pool, timeout: timeout}, nil
}

func (s *PgxStore) Driver() string { return DriverPgx }

func (s *PgxStore) Get(ctx context.Context, playerID string) (p profile.Profile, err error) {
	start := time.Now()
	defer func() { observe(DriverPgx, "get", start, err) }()
	if err = validID(playerID); err != nil {
		return profile.Profile{}, err
	}
	ctx, cancel := opContext(ctx, s.timeout)
	defer cancel()

	var raw []byte
	err = s.pool.QueryRow(ctx, `SELECT profile FROM player_profiles WHERE player_id = $1`, playerID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return profile.Profile{}, ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, err
	}
	if err = json.Unmarshal(raw, &p); err != nil {
		return profile.Profile{}, fmt.Errorf("decode profile %s: %w", playerID, err)
	}
	return p, nil
}

func (s *PgxStore) Put(ctx context.Context, playerID string, p profile.Profile) (err error) {
	start := time.Now()
	defer func() { observe(DriverPgx, "put", start, err) }()
	if err = validID(playerID); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", playerID, err)
	}
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	ctx, cancel := opContext(ctx, s.timeout)
	defer cancel()
	_, err = s.pool.Exec(ctx, postgresDialect.upsert, playerID, string(p.SkillLevel), string(raw), updated.UTC())
	return err
}

func (s *PgxStore) Delete(ctx context.Context, playerID string) (err error) {
	start := time.Now()
	defer func() { observe(DriverPgx, "delete", start, err) }()
	ctx, cancel := opContext(ctx, s.timeout)
	defer cancel()
	_, err = s.pool.Exec(ctx, postgresDialect.del, playerID)
	return err
}

func (s *PgxStore) List(ctx context.Context, limit, offset int) (ids []string, err error) {
	start := time.Now()
	defer func() { observe(DriverPgx, "list", start, err) }()
	limit, offset = clampPage(limit, offset)
	ctx, cancel := opContext(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, postgresDialect.list, limit, offset)
	if err != nil {
		return nil, err
	}
	ids, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if ids == nil && err == nil {
		ids = []string{}
	}
	return ids, err
}

func (s *PgxStore) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { observe(DriverPgx, "count", start, err) }()
	ctx, cancel := opContext(ctx, s.timeout)
	defer cancel()
	err = s.pool.QueryRow(ctx, postgresDialect.count).Scan(&n)
	return n, err
}

func (s *PgxStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}
