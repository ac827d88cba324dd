package errors

import (
	"errors"
	"fmt"
)

// Common error types for the embedded-app server
var (
	// Storage errors
	ErrStorageUnavailable = errors.New("storage namespace unavailable")
	ErrNoSuchTable        = errors.New("no such table")
	ErrInstanceClosed     = errors.New("storage instance closed")

	// Session errors
	ErrSessionNotFound     = errors.New("session not found")
	ErrMalformedSessionID  = errors.New("malformed session id")
	ErrInvalidSessionToken = errors.New("invalid session token")

	// Settings errors
	ErrSettingNotFound = errors.New("setting not found")
	ErrUnknownInstance = errors.New("unknown settings instance")

	// OAuth errors
	ErrInvalidShopDomain = errors.New("invalid shop domain")
	ErrInvalidHMAC       = errors.New("invalid hmac signature")
	ErrInvalidState      = errors.New("invalid oauth state")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
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
