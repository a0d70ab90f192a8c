// Package retry runs fallible operations a bounded number of times with a
// fixed pause between attempts. It knows nothing about HTTP or entities:
// callers decide which errors are fatal.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultAttempts = 5
	DefaultDelay    = time.Second
)

// Static errors for err113 compliance.
var (
	ErrNoAttempts = errors.New("retry: attempts must be positive")
)

// Logger receives one entry per failed attempt.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
}

// Option configures an Executor.
type Option func(*Executor)

// WithFatal marks errors for which fatal returns true as not retryable.
// Multiple classifiers are combined with OR.
func WithFatal(fatal func(error) bool) Option {
	return func(e *Executor) {
		e.fatal = append(e.fatal, fatal)
	}
}

// WithSleep replaces the pause between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// WithLogger logs each failed attempt at debug level.
func WithLogger(logger Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// Executor retries operations.
type Executor struct {
	attempts int
	delay    time.Duration
	fatal    []func(error) bool
	sleep    func(ctx context.Context, d time.Duration) error
	logger   Logger
}

// New creates an executor making at most attempts calls per operation with
// delay between them. Non-positive values fall back to the defaults.
func New(attempts int, delay time.Duration, opts ...Option) *Executor {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	if delay < 0 {
		delay = DefaultDelay
	}

	e := &Executor{
		attempts: attempts,
		delay:    delay,
		sleep:    sleepContext,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Attempts returns the maximum number of calls per operation.
func (e *Executor) Attempts() int {
	return e.attempts
}

// Do calls op until it succeeds, fails fatally or the attempts run out.
// The last error is returned unchanged.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if e.attempts <= 0 {
		return ErrNoAttempts
	}

	var err error

	for attempt := 1; attempt <= e.attempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}

		if e.isFatal(err) {
			return unwrapPermanent(err)
		}

		if attempt == e.attempts {
			break
		}

		if e.logger != nil {
			e.logger.Debug("retrying operation", map[string]interface{}{
				"attempt":      attempt,
				"max_attempts": e.attempts,
				"error":        err.Error(),
			})
		}

		sleepErr := e.sleep(ctx, e.delay)
		if sleepErr != nil {
			return fmt.Errorf("%w (last error: %w)", sleepErr, err)
		}
	}

	return err
}

// Value is Do for operations returning a value.
func Value[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var result T

	err := e.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}

		result = v

		return nil
	})

	return result, err
}

func (e *Executor) isFatal(err error) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return true
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	for _, fatal := range e.fatal {
		if fatal(err) {
			return true
		}
	}

	return false
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so that Do returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

func unwrapPermanent(err error) error {
	var perm *permanentError
	if errors.As(err, &perm) && perm == err {
		return perm.err
	}

	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting to retry: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
