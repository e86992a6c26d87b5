// Package sessionstore keeps CSRF secrets in gorilla/sessions sessions.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

// ErrNoSession is returned when the context was not prepared by Middleware.
var ErrNoSession = errors.New("sessionstore: no session in context")

type scopeKey struct{}

type scope struct {
	session *sessions.Session
	r       *http.Request
	w       http.ResponseWriter
}

// Store implements csrf.TokenStore on top of a gorilla sessions.Store.
type Store struct {
	sessions sessions.Store
	name     string
}

// New returns a Store keeping secrets in the session called name.
func New(s sessions.Store, name string) *Store {
	return &Store{sessions: s, name: name}
}

// Middleware loads the session for each request and makes it available to
// the Store through the request context. It must run before the CSRF guard.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// On a decode failure gorilla still hands back a fresh session, which
		// is what a tampered or stale cookie should get.
		sess, err := s.sessions.Get(r, s.name)
		if sess == nil {
			http.Error(w, fmt.Sprintf("session unavailable: %v", err), http.StatusInternalServerError)
			return
		}
		ctx := context.WithValue(r.Context(), scopeKey{}, &scope{session: sess, r: r, w: w})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func fromContext(ctx context.Context) (*scope, error) {
	sc, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok {
		return nil, ErrNoSession
	}
	return sc, nil
}

func (s *Store) Get(ctx context.Context, name string) (string, bool, error) {
	sc, err := fromContext(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := sc.session.Values[name].(string)
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, name, secret string) error {
	sc, err := fromContext(ctx)
	if err != nil {
		return err
	}
	sc.session.Values[name] = secret
	return s.save(sc)
}

func (s *Store) Remove(ctx context.Context, name string) error {
	sc, err := fromContext(ctx)
	if err != nil {
		return err
	}
	delete(sc.session.Values, name)
	return s.save(sc)
}

func (s *Store) save(sc *scope) error {
	if err := sc.session.Save(sc.r, sc.w); err != nil {
		return fmt.Errorf("sessionstore: save session %q: %w", s.name, err)
	}
	return nil
}
