package blobstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Retry repeats operations that fail with a transient error, up to
// Attempts extra tries with exponential backoff.
type Retry struct {
	next     Blobstore
	attempts uint
	initial  time.Duration
	logger   *slog.Logger
}

func NewRetry(next Blobstore, attempts int, logger *slog.Logger) *Retry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Retry{
		next:     next,
		attempts: uint(max(attempts, 0)),
		initial:  50 * time.Millisecond,
		logger:   logger,
	}
}

func do[T any](ctx context.Context, r *Retry, op, key string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.attempts+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			r.logger.Warn("retrying blob operation", "op", op, "key", key, "wait", wait, "error", err)
		}),
	)
}

func (r *Retry) Get(ctx context.Context, key string) ([]byte, error) {
	return do(ctx, r, "get", key, func() ([]byte, error) { return r.next.Get(ctx, key) })
}

func (r *Retry) Put(ctx context.Context, key string, value []byte) error {
	_, err := do(ctx, r, "put", key, func() (struct{}, error) {
		return struct{}{}, r.next.Put(ctx, key, value)
	})
	return err
}

func (r *Retry) Has(ctx context.Context, key string) (bool, error) {
	return do(ctx, r, "has", key, func() (bool, error) { return r.next.Has(ctx, key) })
}

func (r *Retry) Close() error { return Close(r.next) }
