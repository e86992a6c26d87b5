package csrf

import "errors"

var (
	// ErrInvalidLength is returned when a secret shorter than MinSecretLength is requested.
	ErrInvalidLength = errors.New("csrf: secret length below minimum")

	// ErrMalformedToken is returned by RemoveMask for input that is not a masked token.
	ErrMalformedToken = errors.New("csrf: malformed masked token")
)
