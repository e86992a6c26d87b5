package csrf

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// MinSecretLength is the shortest secret GenerateSecret accepts.
const MinSecretLength = 15

// Masker creates secrets and converts them to and from their masked,
// client-facing form.
type Masker interface {
	GenerateSecret(length int) (string, error)
	AddMask(secret string) (string, error)
	RemoveMask(masked string) (string, error)
}

// OneTimePad masks secrets with a fresh random pad on every call, so the value
// handed to a client changes on each render while the stored secret stays put.
//
// The masked form is base64url(pad || pad XOR secret) without padding.
type OneTimePad struct {
	// Rand is the entropy source. Nil means crypto/rand.Reader.
	Rand io.Reader
}

func (o OneTimePad) reader() io.Reader {
	if o.Rand == nil {
		return rand.Reader
	}
	return o.Rand
}

func (o OneTimePad) randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(o.reader(), b); err != nil {
		return nil, fmt.Errorf("csrf: read random bytes: %w", err)
	}
	return b, nil
}

// GenerateSecret returns a url-safe random string of exactly length characters.
func (o OneTimePad) GenerateSecret(length int) (string, error) {
	if length < MinSecretLength {
		return "", fmt.Errorf("%w: got %d, minimum is %d", ErrInvalidLength, length, MinSecretLength)
	}
	// base64 expands by 4/3, so 3/4 of length (rounded up) is always enough
	b, err := o.randomBytes((length*3 + 3) / 4)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length], nil
}

// AddMask xors secret with a random pad of the same length.
func (o OneTimePad) AddMask(secret string) (string, error) {
	mask, err := o.randomBytes(len(secret))
	if err != nil {
		return "", err
	}
	out := make([]byte, 2*len(secret))
	copy(out, mask)
	for i := 0; i < len(secret); i++ {
		out[len(secret)+i] = mask[i] ^ secret[i]
	}
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// RemoveMask reverses AddMask. Input that was not produced by AddMask yields
// ErrMalformedToken.
func (o OneTimePad) RemoveMask(masked string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(masked, "="))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if len(raw) == 0 || len(raw)%2 != 0 {
		return "", fmt.Errorf("%w: decoded length %d", ErrMalformedToken, len(raw))
	}
	half := len(raw) / 2
	out := make([]byte, half)
	for i := range out {
		out[i] = raw[i] ^ raw[half+i]
	}
	return string(out), nil
}
