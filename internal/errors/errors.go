package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy for the session core.
//
// ErrInvalidToken deliberately covers unknown jti, revoked token, bad
// signature, and secret mismatch: callers must not be able to tell whether a
// given token identifier exists. ErrExpiredToken is the only distinguishable
// refresh failure so clients know to re-authenticate instead of retrying.
var (
	// Refresh token errors
	ErrMalformedToken = errors.New("malformed refresh token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("expired token")

	// Access token / identity errors
	ErrUnauthenticated = errors.New("unauthenticated")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
