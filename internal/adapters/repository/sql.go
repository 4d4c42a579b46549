package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq" // postgres driver for database/sql
	_ "modernc.org/sqlite"

	"github.com/okian/coach/internal/domain/profile"
)

//go:embed schema/*.sql
var schemas embed.FS

// dialect holds the statements that differ between database/sql backends.
type dialect struct {
	driver  string
	schema  string
	upsert  string
	get     string
	del     string
	list    string
	count   string
	stamp   func(time.Time) any
	jsonArg func([]byte) any
}

var sqliteDialect = dialect{
	driver: DriverSQLite,
	schema: "schema/sqlite.sql",
	upsert: `
INSERT INTO player_profiles (player_id, skill_level, profile, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(player_id) DO UPDATE SET
    skill_level = excluded.skill_level,
    profile = excluded.profile,
    updated_at_ms = excluded.updated_at_ms`,
	get:     `SELECT profile FROM player_profiles WHERE player_id = ?`,
	del:     `DELETE FROM player_profiles WHERE player_id = ?`,
	list:    `SELECT player_id FROM player_profiles ORDER BY player_id LIMIT ? OFFSET ?`,
	count:   `SELECT COUNT(*) FROM player_profiles`,
	stamp:   func(t time.Time) any { return t.UnixMilli() },
	jsonArg: func(b []byte) any { return string(b) },
}

var postgresDialect = dialect{
	driver: DriverPostgres,
	schema: "schema/postgres.sql",
	upsert: `
INSERT INTO player_profiles (player_id, skill_level, profile, updated_at)
VALUES ($1, $2, $3::jsonb, $4)
ON CONFLICT (player_id) DO UPDATE SET
    skill_level = EXCLUDED.skill_level,
    profile = EXCLUDED.profile,
    updated_at = EXCLUDED.updated_at`,
	get:     `SELECT profile FROM player_profiles WHERE player_id = $1`,
	del:     `DELETE FROM player_profiles WHERE player_id = $1`,
	list:    `SELECT player_id FROM player_profiles ORDER BY player_id LIMIT $1 OFFSET $2`,
	count:   `SELECT COUNT(*) FROM player_profiles`,
	stamp:   func(t time.Time) any { return t.UTC() },
	jsonArg: func(b []byte) any { return string(b) },
}

// SQLStore is a database/sql backed Store.
type SQLStore struct {
	db      *sql.DB
	d       dialect
	timeout time.Duration
}

// NewSQLiteStore opens (creating if needed) the sqlite file at path.
// ":memory:" gives a private in-process database.
func NewSQLiteStore(ctx context.Context, path string, timeout time.Duration) (*SQLStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" coherent and avoids writer contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ictx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ictx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return newSQLStore(ictx, db, sqliteDialect, timeout)
}

// NewPostgresStore connects through lib/pq.
func NewPostgresStore(ctx context.Context, dsn string, timeout time.Duration) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ictx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return newSQLStore(ictx, db, postgresDialect, timeout)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, timeout time.Duration) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	ddl, err := schemas.ReadFile(d.schema)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, string(ddl)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", d.driver, err)
	}
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &SQLStore{db: db, d: d, timeout: timeout}, nil
}

func (s *SQLStore) Driver() string { return s.d.driver }

func (s *SQLStore) Get(ctx context.Context, playerID string) (p profile.Profile, err error) {
	start := time.Now()
	defer func() { observe(s.d.driver, "get", start, err) }()
	if err = validID(playerID); err != nil {
		return profile.Profile{}, err
	}
	ctx, cancel := opContext(ctx, s.timeout)
	defer cancel()

	var raw []byte
	err = s.db.QueryRowContext(ctx, s.d.get, playerID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *SQLStore) Put(ctx context.Context, playerID string, p profile.Profile) (err error) {
	start := time.Now()
	defer func() { observe(s.d.driver, "put", start, err) }()
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
	_, err = s.db.ExecContext(ctx, s.d.upsert, playerID, string(p.SkillLevel), s.d.jsonArg(raw), s.d.stamp(updated))
	return err
}

func (s *SQLStore) Delete(ctx context.Context, playerID string) (err error) {
	start := time.Now()
	defer func() { observe(s.d.driver, "delete", start, err) }()
	ctx, cancel := opContext(ctx, s.timeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx, s.d.del, playerID)
	return err
}

func (s *SQLStore) List(ctx context.Context, limit, offset int) (ids []string, err error) {
	start := time.Now()
	defer func() { observe(s.d.driver, "list", start, err) }()
	limit, offset = clampPage(limit, offset)
	ctx, cancel := opContext(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.d.list, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids = []string{}
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { observe(s.d.driver, "count", start, err) }()
	ctx, cancel := opContext(ctx, s.timeout)
	defer cancel()
	err = s.db.QueryRowContext(ctx, s.d.count).Scan(&n)
	return n, err
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
