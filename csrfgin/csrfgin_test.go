package csrfgin

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeanGrijp/go-csrf/csrf"
)

func newRouter(t *testing.T, cfg csrf.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	g := csrf.New(csrf.NewToken(NewSessionStore(), nil), cfg)

	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("0123456789abcdef0123456789abcdef"))))
	r.Use(Middleware(g))
	r.GET("/csrf-token", func(c *gin.Context) {
		tok, err := csrf.MaskedToken(c.Request)
		require.NoError(t, err)
		c.String(http.StatusOK, tok)
	})
	r.POST("/transfer", func(c *gin.Context) {
		c.String(http.StatusCreated, "ok")
	})
	return r
}

func fetch(t *testing.T, r http.Handler) (string, []*http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/csrf-token", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return rec.Body.String(), cookies
}

func postWith(r http.Handler, token string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/transfer", nil)
	if token != "" {
		req.Header.Set(csrf.DefaultHeaderName, token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGinValidToken(t *testing.T) {
	r := newRouter(t, csrf.Config{})
	token, cookies := fetch(t, r)

	rec := postWith(r, token, cookies)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestGinMissingTokenAborts(t *testing.T) {
	r := newRouter(t, csrf.Config{})
	_, cookies := fetch(t, r)

	rec := postWith(r, "", cookies)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Bad Request", rec.Body.String())
}

func TestGinCustomFailureHandler(t *testing.T) {
	r := newRouter(t, csrf.Config{
		FailureHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Forbidden"))
		}),
	})
	token, _ := fetch(t, r)

	// token from another session
	rec := postWith(r, token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", rec.Body.String())
}

func TestSessionStoreWithoutSession(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	_, _, err := s.Get(ctx, csrf.DefaultName)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, s.Set(ctx, csrf.DefaultName, "x"), ErrNoSession)
	assert.ErrorIs(t, s.Remove(ctx, csrf.DefaultName), ErrNoSession)
}

func TestMiddlewareWithoutSessionsReportsStoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := csrf.New(csrf.NewToken(NewSessionStore(), nil), csrf.Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	r := gin.New()
	r.Use(Middleware(g))
	r.POST("/transfer", func(c *gin.Context) {
		c.String(http.StatusCreated, "ok")
	})

	rec := postWith(r, "c29tZXRoaW5n", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
