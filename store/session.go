package store

import (
	"context"
	"database/sql"

	"github.com/viant/crystalize/errs"
	"github.com/viant/crystalize/logging"
)

// Session is one worker's view of the store. It holds a dedicated connection
// so that a Batch started on it covers every statement issued through it.
type Session struct {
	conn  *sql.Conn
	log   *logging.Logger
	color func() string
	inTx  bool
}

// Close returns the connection to the pool, rolling back an open batch.
func (s *Session) Close() error {
	if s.inTx {
		_, _ = s.conn.ExecContext(context.Background(), "ROLLBACK")
		s.inTx = false
	}
	return s.conn.Close()
}

// Batch runs fn inside one write transaction. Statements issued through the
// session by fn commit together, or not at all when fn returns an error.
// Nested calls join the outer transaction.
func (s *Session) Batch(ctx context.Context, fn func() error) error {
	if s.inTx {
		return fn()
	}
	if _, err := s.conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return errs.Storage("store.Batch", err)
	}
	s.inTx = true
	committed := false
	defer func() {
		s.inTx = false
		if !committed {
			_, _ = s.conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()
	if err := fn(); err != nil {
		return err
	}
	if _, err := s.conn.ExecContext(ctx, "COMMIT"); err != nil {
		return errs.Storage("store.Batch", err)
	}
	committed = true
	return nil
}

// InBatch reports whether a Batch is open on the session.
func (s *Session) InBatch() bool { return s.inTx }

func (s *Session) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Storage(op, err)
	}
	return res, nil
}

// execOne runs an update that must hit exactly one row.
func (s *Session) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.exec(ctx, op, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Storage(op, err)
	}
	if n == 0 {
		return errs.Storage(op, ErrNotFound)
	}
	return nil
}

func (s *Session) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	var one int
	err := s.conn.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case isNoRows(err):
		return false, nil
	case err != nil:
		return false, errs.Storage(op, err)
	}
	return true, nil
}
