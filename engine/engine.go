package engine

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// DriverName is the database/sql driver name registered by modernc.org/sqlite.
const DriverName = "sqlite"

type options struct {
	busyTimeoutMS int
	foreignKeys   bool
	journalWAL    bool
}

// Option tweaks the pragmas applied to every connection.
type Option func(*options)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds.
func WithBusyTimeout(ms int) Option { return func(o *options) { o.busyTimeoutMS = ms } }

// WithForeignKeys toggles PRAGMA foreign_keys.
func WithForeignKeys(on bool) Option { return func(o *options) { o.foreignKeys = on } }

// WithWAL toggles PRAGMA journal_mode=WAL. It is ignored for in-memory DSNs.
func WithWAL(on bool) Option { return func(o *options) { o.journalWAL = on } }

// Open opens a SQLite database using the modernc.org/sqlite driver.
//
// For file-based databases, pass a path like "./logs.db". For in-memory
// databases, pass ":memory:". Pragmas are attached to the DSN so that every
// pooled connection gets them, not only the first one.
func Open(dsn string, opts ...Option) (*sql.DB, error) {
	o := options{busyTimeoutMS: 5000, foreignKeys: true, journalWAL: true}
	for _, opt := range opts {
		opt(&o)
	}
	db, err := sql.Open(DriverName, withPragmas(dsn, o))
	if err != nil {
		return nil, fmt.Errorf("engine: open %s: %w", dsn, err)
	}
	return db, nil
}

func withPragmas(dsn string, o options) string {
	var pragmas []string
	if o.busyTimeoutMS > 0 {
		pragmas = append(pragmas, fmt.Sprintf("_pragma=busy_timeout(%d)", o.busyTimeoutMS))
	}
	if o.foreignKeys {
		pragmas = append(pragmas, "_pragma=foreign_keys(1)")
	}
	if o.journalWAL && !isMemory(dsn) {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	if len(pragmas) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}

func isMemory(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
