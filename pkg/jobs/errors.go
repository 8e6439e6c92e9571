package jobs

import (
	"errors"
	"fmt"
)

// ErrFatal marks errors that abort a whole run: unreachable store, bad configuration.
var ErrFatal = errors.New("fatal")

type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

func (e *fatalError) Unwrap() []error {
	return []error{e.err, ErrFatal}
}

// Fatal wraps err so that errors.Is(err, ErrFatal) holds. A nil err stays nil.
func Fatal(err error) error {
	if err == nil || errors.Is(err, ErrFatal) {
		return err
	}
	return &fatalError{err: err}
}

// Fatalf is Fatal(fmt.Errorf(...))
func Fatalf(format string, args ...any) error {
	return Fatal(fmt.Errorf(format, args...))
}

// IsFatal reports whether err aborts the run
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// ProviderError is a per-record failure coming from a provider: network, timeout or a
// malformed payload. It is recorded and the run continues.
type ProviderError struct {
	Source string
	Key    string
	Err    error
}

func NewProviderError(source, key string, err error) *ProviderError {
	return &ProviderError{Source: source, Key: key, Err: err}
}

func (e *ProviderError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Source, e.Key, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
