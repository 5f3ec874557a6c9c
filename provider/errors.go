package provider

import "errors"

// ErrProviderExhausted is returned when the primary provider and its
// configured fallback (if any) have all failed. Callers surface it to the
// student as a generic apology; it never terminates a session.
var ErrProviderExhausted = errors.New("all configured providers exhausted")

// TransientError marks a temporary failure (timeout, rate limit) that may
// succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }

func (e *TransientError) Unwrap() error { return e.err }

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error { return &TransientError{err: err} }

// FatalError marks a permanent failure (bad request, auth) that should not
// be retried against the same provider.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string { return e.err.Error() }

func (e *FatalError) Unwrap() error { return e.err }

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error { return &FatalError{err: err} }

// IsTransient reports whether err is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal reports whether err is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
