// Package csrf provides a masked-token CSRF protection middleware.
package csrf

import (
	"log/slog"
	"net/http"
	"sync/atomic"
)

// DefaultHeaderName is the header read when the body carries no token.
const DefaultHeaderName = "X-CSRF-Token"

type Config struct {
	// Token transport
	HeaderName string        // e.g.: "X-CSRF-Token"
	Extractor  BodyExtractor // defaults to NewExtractor(MaxMemory)
	MaxMemory  int64         // multipart memory limit, defaults to DefaultMaxMemory

	// Rejections. FailureHandler fully owns the response when set;
	// otherwise the guard answers 400 "Bad Request".
	FailureHandler http.Handler

	// Paths starting with any of these prefixes are never checked.
	ExemptPaths []string

	// Extra security, off by default. When enabled, unsafe requests must also
	// carry an Origin (or Referer) matching AllowedOrigin.
	EnforceOriginCheck bool
	AllowedOrigin      string // if empty, uses r.Host

	// Observability
	Logger  *slog.Logger // defaults to slog.Default()
	Metrics *Metrics     // optional
}

type Guard struct {
	token      *Token
	cfg        Config
	headerName atomic.Pointer[string]
}

// New returns a Guard validating requests against token.
func New(token *Token, cfg Config) *Guard {
	if token == nil {
		panic("csrf: token is required")
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.MaxMemory <= 0 {
		cfg.MaxMemory = DefaultMaxMemory
	}
	if cfg.Extractor == nil {
		cfg.Extractor = NewExtractor(cfg.MaxMemory)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	g := &Guard{token: token, cfg: cfg}
	g.headerName.Store(&cfg.HeaderName)
	return g
}

// SetHeaderName changes the header consulted for AJAX submissions.
func (g *Guard) SetHeaderName(name string) {
	if name == "" {
		name = DefaultHeaderName
	}
	g.headerName.Store(&name)
}

// HeaderName returns the header consulted for AJAX submissions.
func (g *Guard) HeaderName() string {
	return *g.headerName.Load()
}

// Token returns the token the guard validates against.
func (g *Guard) Token() *Token {
	return g.token
}
