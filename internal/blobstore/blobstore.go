// Package blobstore is the key/value layer under a repository. Values are
// immutable once written: a second Put of an existing key is a no-op.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

// Blobstore stores opaque values under string keys. Implementations are
// safe for concurrent use.
type Blobstore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Has(ctx context.Context, key string) (bool, error)
}

// ValidateKey rejects keys that cannot be used as a file name.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case strings.HasPrefix(key, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidKey, key)
	case strings.ContainsAny(key, "/\\\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// transientError marks a failure that is worth retrying.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so Retry will try the operation again.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err, or anything it wraps, was marked
// transient.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// Close closes s if it holds resources.
func Close(s Blobstore) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
