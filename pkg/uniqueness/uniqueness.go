// Package uniqueness answers whether a field value (a username, an email)
// is still free. Checks are network bound, so callers run them through the
// debouncer and pass a context that is cancelled when the user moves on.
package uniqueness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnavailable wraps failures of the backing service.
	ErrUnavailable = errors.New("uniqueness: check unavailable")
	// ErrEmptyValue is returned for blank values; there is nothing to check.
	ErrEmptyValue = errors.New("uniqueness: value is empty")
)

// Checker reports whether value is free for field.
type Checker interface {
	Available(ctx context.Context, field, value string) (bool, error)
}

// CheckerFunc adapts a function into a Checker.
type CheckerFunc func(ctx context.Context, field, value string) (bool, error)

// Available calls the underlying function.
func (fn CheckerFunc) Available(ctx context.Context, field, value string) (bool, error) {
	return fn(ctx, field, value)
}

// DefaultSharedTimeout bounds a shared backend call once it no longer
// follows any single caller's context.
const DefaultSharedTimeout = 10 * time.Second

// Shared collapses concurrent identical checks into one backend call.
type Shared struct {
	next    Checker
	timeout time.Duration
	group   singleflight.Group
}

var _ Checker = (*Shared)(nil)

// SharedOption configures NewShared.
type SharedOption func(*Shared)

// WithSharedTimeout sets the deadline of each shared backend call.
func WithSharedTimeout(timeout time.Duration) SharedOption {
	return func(s *Shared) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewShared wraps next.
func NewShared(next Checker, options ...SharedOption) *Shared {
	s := &Shared{next: next, timeout: DefaultSharedTimeout}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Available forwards to the wrapped checker, sharing the result with callers
// asking the same question at the same time. The backend call keeps the
// first caller's values but not its cancellation, so one caller giving up
// does not fail the others; each caller still returns on its own ctx.
func (s *Shared) Available(ctx context.Context, field, value string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := field + "\x00" + value
	ch := s.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.next.Available(callCtx, field, value)
	})
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

// DefaultConcurrency bounds CheckAll fan-out.
const DefaultConcurrency = 4

// CheckAll runs checks for every field/value pair with bounded concurrency
// and returns the fields that are already taken, sorted. The first backend
// error cancels the remaining checks.
func CheckAll(ctx context.Context, checker Checker, values map[string]string) ([]string, error) {
	if checker == nil || len(values) == 0 {
		return nil, nil
	}

	var (
		mu    sync.Mutex
		taken []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultConcurrency)
	for field, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		g.Go(func() error {
			free, err := checker.Available(gctx, field, value)
			if err != nil {
				return fmt.Errorf("uniqueness: check %s: %w", field, err)
			}
			if !free {
				mu.Lock()
				taken = append(taken, field)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(taken)
	return taken, nil
}
