// Package csrf provides CSRF protection for Go net/http servers using a
// session-held secret and per-render masked tokens.
//
// How it works
//   - A secret is created on first use and kept in a TokenStore scoped to the
//     user's session. It never leaves the server in raw form.
//   - Forms and headers receive a masked value: a fresh random pad followed by
//     the secret xored with that pad, base64url-encoded. Every render differs,
//     which defeats compression side channels such as BREACH.
//   - Unsafe methods (POST, PUT, PATCH, DELETE) must echo a masked value, either
//     in the body under the token name or in a header. The value is unmasked and
//     compared to the secret in constant time. Everything else passes through
//     without the body being touched.
//
// # Configuration
//
// Token behavior is set with NewToken options:
//   - WithName (default: "_csrf")
//   - WithLength (default: 32, minimum 15)
//
// Guard behavior is driven by Config:
//   - HeaderName (default: "X-CSRF-Token")
//   - Extractor (default: DefaultExtractor, form and JSON bodies)
//   - FailureHandler (default: 400 "Bad Request")
//   - EnforceOriginCheck and AllowedOrigin (empty means use the request host)
//   - ExemptPaths, Logger, Metrics
//
// Typical usage
//
//	store := sessionstore.New(cookieStore, "app")
//	tok := csrf.NewToken(store, nil)
//	g := csrf.New(tok, csrf.Config{})
//	protected := store.Middleware(g.Protect(appMux))
//	http.ListenAndServe(":8080", protected)
//
// In handlers, render a masked value into forms:
//
//	field, err := csrf.TemplateField(r)
//
// Call Token.Regenerate after login so that tokens issued before the privilege
// change stop validating.
package csrf
