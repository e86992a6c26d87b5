package csrf

import (
	"context"
	"log/slog"
)

type ctxKey string

const (
	tokenKey  ctxKey = "csrf_token_ctx"
	loggerKey ctxKey = "csrf_logger_ctx"
)

// contextWithToken returns a derived context that carries the Token.
func contextWithToken(ctx context.Context, t *Token) context.Context {
	return context.WithValue(ctx, tokenKey, t)
}

// TokenFromContext returns the Token attached by Guard.Protect, if present.
//
// Params:
// - ctx: context potentially containing a token set by the middleware.
//
// Returns:
// - the Token and a boolean indicating whether one was found.
func TokenFromContext(ctx context.Context) (*Token, bool) {
	t, ok := ctx.Value(tokenKey).(*Token)
	return t, ok && t != nil
}

func contextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the Guard's logger, or slog.Default outside Protect.
func loggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
