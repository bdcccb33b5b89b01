package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/viant/crystalize/engine"
	"github.com/viant/crystalize/errs"
	"github.com/viant/crystalize/logging"
)

// Store owns the database handle shared by all sessions.
type Store struct {
	db     *sql.DB
	log    *logging.Logger
	color  func() string
	engine []engine.Option
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped rows and maintenance messages.
func WithLogger(l *logging.Logger) Option { return func(s *Store) { s.log = l } }

// WithColorFunc overrides the colour generator used by CreateCluster.
func WithColorFunc(fn func() string) Option { return func(s *Store) { s.color = fn } }

// WithBusyTimeout sets how long a connection waits on a locked database.
func WithBusyTimeout(ms int) Option {
	return func(s *Store) { s.engine = append(s.engine, engine.WithBusyTimeout(ms)) }
}

// Open opens (or creates) the database at path and ensures the schema.
// An in-memory path is limited to one connection, so sessions on it are
// served one after another.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errs.Storage("store.Open", fmt.Errorf("empty database path"))
	}
	s := newStore(opts)
	engine.RegisterVectorFunctions()
	db, err := engine.Open(path, s.engine...)
	if err != nil {
		return nil, errs.Storage("store.Open", err)
	}
	if strings.HasPrefix(path, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, errs.Storage("store.Open", fmt.Errorf("ensure schema: %w", err))
	}
	s.db = db
	return s, nil
}

// New wraps an already opened database and ensures the schema.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errs.Storage("store.New", fmt.Errorf("db is nil"))
	}
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, errs.Storage("store.New", fmt.Errorf("ensure schema: %w", err))
	}
	s := newStore(opts)
	s.db = db
	return s, nil
}

func newStore(opts []Option) *Store {
	s := &Store{color: RandomColor}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrNop(s.log)
	if s.color == nil {
		s.color = RandomColor
	}
	return s
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Session pins a connection for one worker. The caller must Close it.
func (s *Store) Session(ctx context.Context) (*Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, errs.Storage("store.Session", err)
	}
	return &Session{conn: conn, log: s.log, color: s.color}, nil
}

// Close closes the database. Open sessions must be closed first.
func (s *Store) Close() error {
	return s.db.Close()
}
