package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/jenkins-client/internal/retry"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// fetchFunc loads a fresh snapshot. It runs inside the retry executor.
type fetchFunc func(ctx context.Context) (jenkins.Document, error)

// resource is the snapshot cache shared by every entity. The snapshot is
// replaced wholesale under the mutex; a failed refresh leaves it untouched.
type resource struct {
	kind    string
	name    string
	baseURL string
	query   url.Values
	root    *Client
	fetch   fetchFunc

	mutex sync.RWMutex
	data  jenkins.Document
}

func (r *resource) init(root *Client, kind, name, baseURL string, query url.Values) {
	r.root = root
	r.kind = kind
	r.name = name
	r.baseURL = withSlash(baseURL)
	r.query = query
	r.data = jenkins.Document{}
}

// String implements fmt.Stringer.
func (r *resource) String() string {
	return fmt.Sprintf("<%s %s>", r.kind, r.name)
}

// BaseURL implements jenkins.Resource.
func (r *resource) BaseURL() string {
	return r.baseURL
}

// Jenkins implements jenkins.Resource.
func (r *resource) Jenkins() jenkins.Jenkins {
	return r.root
}

// Refresh implements jenkins.Resource.
func (r *resource) Refresh(ctx context.Context) error {
	doc, err := retry.Value(ctx, r.root.retry, func(ctx context.Context) (jenkins.Document, error) {
		if r.fetch != nil {
			return r.fetch(ctx)
		}

		return r.root.http.GetDocument(ctx, jenkins.APIURL(r.baseURL), r.query)
	})
	if err != nil {
		return fmt.Errorf("refreshing %s: %w", r, err)
	}

	r.mutex.Lock()
	r.data = doc
	r.mutex.Unlock()

	return nil
}

// Snapshot implements jenkins.Resource. The returned document must not be
// modified.
func (r *resource) Snapshot() jenkins.Document {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.data
}

// Read implements jenkins.Resource.
func (r *resource) Read(key string) (any, error) {
	return r.ReadNested(key)
}

// ReadNested implements jenkins.Resource.
func (r *resource) ReadNested(path ...string) (any, error) {
	v, err := r.Snapshot().Value(path...)
	if err != nil {
		return nil, r.annotate(err)
	}

	return v, nil
}

// annotate names the entity in missing-field errors.
func (r *resource) annotate(err error) error {
	if mf, ok := err.(*jenkins.MissingFieldError); ok && mf.Entity == "" { //nolint:errorlint // only direct results of Document accessors
		return &jenkins.MissingFieldError{Entity: r.String(), Path: mf.Path, Reason: mf.Reason}
	}

	return err
}

func (r *resource) log() jenkins.Logger {
	return r.root.logger
}

func (r *resource) endpoint(suffix string) string {
	return r.baseURL + suffix
}

// withSlash makes entity URLs end with exactly one slash.
func withSlash(u string) string {
	return strings.TrimRight(u, "/") + "/"
}

// sleep pauses for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// waitFor polls cond every interval until it reports done. A positive
// timeout bounds the wait with jenkins.ErrTimeout.
func waitFor(ctx context.Context, interval, timeout time.Duration, what string, cond func(ctx context.Context) (bool, error)) error {
	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(nonZero(interval))
	defer ticker.Stop()

	for {
		done, err := cond(ctx)
		if err != nil {
			if timeout > 0 && ctxDeadline(err) {
				return fmt.Errorf("%w: %s after %s", jenkins.ErrTimeout, what, timeout)
			}

			return err
		}

		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			if timeout > 0 && ctxDeadline(ctx.Err()) {
				return fmt.Errorf("%w: %s after %s", jenkins.ErrTimeout, what, timeout)
			}

			return fmt.Errorf("waiting for %s: %w", what, ctx.Err())
		case <-ticker.C:
		}
	}
}

func nonZero(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Millisecond
	}

	return d
}

// ctxDeadline reports whether err stems from an expired context deadline.
func ctxDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
