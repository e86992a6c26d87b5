package csrf

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
)

// Methods that require CSRF protection
var unsafeMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Protect wraps the given next http.Handler and enforces CSRF protection.
//
// Behavior:
//   - For any method other than POST/PUT/PATCH/DELETE: attaches the token to the
//     request context and calls next. The body and headers are not read.
//   - For POST/PUT/PATCH/DELETE: reads the candidate token from the body (under the
//     token name) or, when the body has none, from the configured header. Missing,
//     non-scalar or mismatched candidates are rejected; anything else reaches next.
//
// Params:
// - next: downstream handler to be executed after CSRF checks pass.
//
// Returns:
// - An http.Handler that performs the CSRF logic before delegating to next.
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := contextWithToken(r.Context(), g.token)
		r = r.WithContext(contextWithLogger(ctx, g.cfg.Logger))

		if !unsafeMethods[r.Method] || g.exempt(r.URL.Path) {
			g.cfg.Metrics.observe(outcomeSkipped)
			next.ServeHTTP(w, r)
			return
		}

		ok, err := g.Check(r)
		if err != nil {
			g.cfg.Logger.Error("CSRF token store failed",
				slog.String("error", err.Error()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			g.cfg.Metrics.observe(outcomeError)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if !ok {
			g.Fail(w, r)
			return
		}

		g.cfg.Metrics.observe(outcomePassed)
		next.ServeHTTP(w, r)
	})
}

// Check validates r without writing a response. The error is non-nil only
// when the token store fails.
func (g *Guard) Check(r *http.Request) (bool, error) {
	if g.cfg.EnforceOriginCheck {
		if err := validateOriginOrReferer(r, g.cfg.AllowedOrigin); err != nil {
			g.reject(r, outcomeOrigin)
			return false, nil
		}
	}

	c := g.Candidate(r)
	switch c.Kind {
	case Absent:
		g.reject(r, outcomeMissing)
		return false, nil
	case Composite:
		g.reject(r, outcomeComposite)
		return false, nil
	}
	ok, err := g.token.Equals(r.Context(), c.Value)
	if err != nil {
		return false, err
	}
	if !ok {
		g.reject(r, outcomeMismatch)
	}
	return ok, nil
}

// Candidate resolves the token the request carries: the body field first,
// then the first value of the header if the body had nothing.
func (g *Guard) Candidate(r *http.Request) Candidate {
	c := g.cfg.Extractor(r, g.token.Name())
	if c.Kind != Absent {
		return c
	}
	return headerCandidate(r, g.HeaderName())
}

// Fail writes the rejection response.
func (g *Guard) Fail(w http.ResponseWriter, r *http.Request) {
	if g.cfg.FailureHandler != nil {
		g.cfg.FailureHandler.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusBadRequest)
	w.Write([]byte(http.StatusText(http.StatusBadRequest)))
}

func (g *Guard) reject(r *http.Request, reason string) {
	g.cfg.Metrics.observe(reason)
	g.cfg.Logger.Warn("CSRF validation failed",
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)
}

func (g *Guard) exempt(path string) bool {
	for _, p := range g.cfg.ExemptPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// TokenHandler returns an HTTP handler that writes a freshly masked token.
// This is useful for SPAs to fetch the token and attach it to subsequent requests.
//
// Returns:
// - http.Handler that responds with the masked token in the response body (text/plain).
func (g *Guard) TokenHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, err := g.token.Value(r.Context())
		if err != nil {
			g.cfg.Logger.Error("failed to produce CSRF token", slog.String("error", err.Error()))
			http.Error(w, "no token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Write([]byte(v))
	})
}

// MaskedToken returns a fresh masked token for the request, using the Token
// placed in the context by Protect.
func MaskedToken(r *http.Request) (string, error) {
	t, ok := TokenFromContext(r.Context())
	if !ok {
		return "", fmt.Errorf("csrf: no token in request context")
	}
	return t.Value(r.Context())
}

// TemplateField returns a hidden input carrying a masked token, ready to be
// placed inside an HTML form.
func TemplateField(r *http.Request) (template.HTML, error) {
	t, ok := TokenFromContext(r.Context())
	if !ok {
		return "", fmt.Errorf("csrf: no token in request context")
	}
	v, err := t.Value(r.Context())
	if err != nil {
		return "", err
	}
	return template.HTML(fmt.Sprintf(`<input type="hidden" name="%s" value="%s">`,
		template.HTMLEscapeString(t.Name()), template.HTMLEscapeString(v))), nil
}
