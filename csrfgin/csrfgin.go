// Package csrfgin adapts the csrf guard to Gin.
package csrfgin

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/JeanGrijp/go-csrf/csrf"
)

// ErrNoSession is returned when the request did not go through gin-contrib
// sessions middleware before the guard.
var ErrNoSession = errors.New("csrfgin: no gin session in context")

type sessionKey struct{}

// Middleware runs the guard inside a Gin chain. Rejected requests abort the
// chain after the guard has written its response.
func Middleware(g *csrf.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		h := g.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// keep gin context in sync with the request carrying the token
			passed = true
			c.Request = r
			c.Next()
		}))

		r := c.Request
		if s := ginSession(c); s != nil {
			r = r.WithContext(context.WithValue(r.Context(), sessionKey{}, s))
		}
		h.ServeHTTP(c.Writer, r)
		if !passed {
			c.Abort()
		}
	}
}

func ginSession(c *gin.Context) sessions.Session {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return nil
	}
	return sessions.Default(c)
}

// SessionStore implements csrf.TokenStore on gin-contrib/sessions. The
// session is picked up from the request context prepared by Middleware.
type SessionStore struct{}

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

func session(ctx context.Context) (sessions.Session, error) {
	s, ok := ctx.Value(sessionKey{}).(sessions.Session)
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

func (*SessionStore) Get(ctx context.Context, name string) (string, bool, error) {
	s, err := session(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := s.Get(name).(string)
	return v, ok, nil
}

func (*SessionStore) Set(ctx context.Context, name, secret string) error {
	s, err := session(ctx)
	if err != nil {
		return err
	}
	s.Set(name, secret)
	return s.Save()
}

func (*SessionStore) Remove(ctx context.Context, name string) error {
	s, err := session(ctx)
	if err != nil {
		return err
	}
	s.Delete(name)
	return s.Save()
}
