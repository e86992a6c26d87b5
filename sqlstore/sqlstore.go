// Package sqlstore keeps CSRF secrets in a PostgreSQL table, keyed by session id.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoSession is returned when no session id can be resolved from the context.
var ErrNoSession = errors.New("sqlstore: no session id in context")

// Schema creates the table used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS csrf_secrets (
	session_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	secret     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, name)
)`

const (
	getQuery    = `SELECT secret FROM csrf_secrets WHERE session_id = $1 AND name = $2`
	setQuery    = `INSERT INTO csrf_secrets (session_id, name, secret, updated_at) VALUES ($1, $2, $3, $4) ON CONFLICT (session_id, name) DO UPDATE SET secret = EXCLUDED.secret, updated_at = EXCLUDED.updated_at`
	removeQuery = `DELETE FROM csrf_secrets WHERE session_id = $1 AND name = $2`
	staleQuery  = `DELETE FROM csrf_secrets WHERE updated_at <= $1`
)

// SessionIDFunc resolves the session the current request belongs to.
type SessionIDFunc func(ctx context.Context) (string, bool)

type sessionIDKey struct{}

// WithSessionID attaches a session id for the default SessionIDFunc.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext reads the id stored by WithSessionID.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey{}).(string)
	return id, ok && id != ""
}

// Store implements csrf.TokenStore over database/sql.
type Store struct {
	db        *sql.DB
	sessionID SessionIDFunc
	now       func() time.Time
}

// New returns a Store using db. A nil sessionID means SessionIDFromContext.
func New(db *sql.DB, sessionID SessionIDFunc) *Store {
	if sessionID == nil {
		sessionID = SessionIDFromContext
	}
	return &Store{db: db, sessionID: sessionID, now: time.Now}
}

// Migrate creates the secrets table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

func (s *Store) session(ctx context.Context) (string, error) {
	id, ok := s.sessionID(ctx)
	if !ok {
		return "", ErrNoSession
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, name string) (string, bool, error) {
	id, err := s.session(ctx)
	if err != nil {
		return "", false, err
	}
	var secret string
	err = s.db.QueryRowContext(ctx, getQuery, id, name).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlstore: get %q: %w", name, err)
	}
	return secret, true, nil
}

func (s *Store) Set(ctx context.Context, name, secret string) error {
	id, err := s.session(ctx)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, setQuery, id, name, secret, s.now()); err != nil {
		return fmt.Errorf("sqlstore: set %q: %w", name, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, name string) error {
	id, err := s.session(ctx)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, removeQuery, id, name); err != nil {
		return fmt.Errorf("sqlstore: remove %q: %w", name, err)
	}
	return nil
}

// DeleteStale removes secrets not written since before, returning how many
// rows went away. Run it periodically to drop secrets of dead sessions.
func (s *Store) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, staleQuery, before)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: delete stale: %w", err)
	}
	return res.RowsAffected()
}
