package repository

import "time"

type options struct {
	driver     string
	dsn        string
	sqlitePath string
	timeout    time.Duration
}

// Option configures Open.
type Option func(*options)

// WithDriver selects memory, sqlite, postgres or pgx.
func WithDriver(driver string) Option {
	return func(o *options) {
		if driver != "" {
			o.driver = driver
		}
	}
}

// WithDSN sets the connection string. For sqlite it overrides the path.
func WithDSN(dsn string) Option {
	return func(o *options) { o.dsn = dsn }
}

// WithSQLitePath sets the database file used when no DSN is given.
func WithSQLitePath(path string) Option {
	return func(o *options) { o.sqlitePath = path }
}

// WithOpTimeout bounds every store call.
func WithOpTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}
