package csrf

import (
	"context"
	"crypto/subtle"
)

const (
	// DefaultName is the store key and form field used when no name is given.
	DefaultName = "_csrf"

	// DefaultSecretLength is the length, in characters, of generated secrets.
	DefaultSecretLength = 32
)

// Token owns one named secret in a TokenStore. A single Token is safe to share
// between requests; the per-request scope travels in ctx.
type Token struct {
	name   string
	length int
	store  TokenStore
	masker Masker
}

// TokenOption configures a Token in NewToken.
type TokenOption func(*Token)

// WithName sets the store key and form field name.
func WithName(name string) TokenOption {
	return func(t *Token) {
		if name != "" {
			t.name = name
		}
	}
}

// WithLength sets the length of secrets created by the token.
func WithLength(n int) TokenOption {
	return func(t *Token) {
		t.length = n
	}
}

// NewToken builds a Token over store. A nil masker means OneTimePad{}.
func NewToken(store TokenStore, masker Masker, opts ...TokenOption) *Token {
	if masker == nil {
		masker = OneTimePad{}
	}
	t := &Token{
		name:   DefaultName,
		length: DefaultSecretLength,
		store:  store,
		masker: masker,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the token name.
func (t *Token) Name() string {
	return t.name
}

// Secret returns the stored secret, creating and storing one first if the
// scope has none yet.
func (t *Token) Secret(ctx context.Context) (string, error) {
	secret, ok, err := t.store.Get(ctx, t.name)
	if err != nil {
		return "", err
	}
	if ok && secret != "" {
		return secret, nil
	}
	return t.create(ctx, t.length)
}

// Value returns a freshly masked copy of the secret, suitable for forms and
// headers. Every call returns a different string.
func (t *Token) Value(ctx context.Context) (string, error) {
	secret, err := t.Secret(ctx)
	if err != nil {
		return "", err
	}
	return t.masker.AddMask(secret)
}

// Equals reports whether candidate is a masked form of the stored secret.
// A candidate that cannot be unmasked is simply not equal; only store
// failures produce an error.
func (t *Token) Equals(ctx context.Context, candidate string) (bool, error) {
	secret, err := t.Secret(ctx)
	if err != nil {
		return false, err
	}
	plain, err := t.masker.RemoveMask(candidate)
	if err != nil {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(plain)) == 1, nil
}

// Regenerate replaces the secret, invalidating every value handed out before.
// Call it after login or any other privilege change.
func (t *Token) Regenerate(ctx context.Context) error {
	return t.RegenerateLength(ctx, t.length)
}

// RegenerateLength is Regenerate with an explicit secret length.
func (t *Token) RegenerateLength(ctx context.Context, n int) error {
	if err := t.store.Remove(ctx, t.name); err != nil {
		return err
	}
	_, err := t.create(ctx, n)
	return err
}

// Remove drops the secret. The next access creates a new one.
func (t *Token) Remove(ctx context.Context) error {
	return t.store.Remove(ctx, t.name)
}

func (t *Token) create(ctx context.Context, n int) (string, error) {
	secret, err := t.masker.GenerateSecret(n)
	if err != nil {
		return "", err
	}
	if err := t.store.Set(ctx, t.name, secret); err != nil {
		return "", err
	}
	return secret, nil
}
