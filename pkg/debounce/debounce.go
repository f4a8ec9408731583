// Package debounce coalesces bursts of calls into a single deferred action per
// key. Only the most recent call inside the quiet window runs; earlier pending
// calls are dropped without executing. Keys are independent and carry no
// ordering guarantee relative to each other.
package debounce

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDelay is the quiet interval used when none is configured.
const DefaultDelay = 500 * time.Millisecond

// Func is the deferred action. Its context is cancelled when a newer call for
// the same key arrives or the debouncer stops, so network-bound work can be
// abandoned.
type Func func(ctx context.Context)

type entry struct {
	timer  *time.Timer
	cancel context.CancelFunc
	seq    uint64
}

// Debouncer schedules keyed actions.
type Debouncer struct {
	delay  time.Duration
	logger *zap.Logger
	base   context.Context
	stop   context.CancelFunc

	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64
	stopped bool
	running sync.WaitGroup
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithDelay overrides the quiet interval.
func WithDelay(delay time.Duration) Option {
	return func(d *Debouncer) {
		if delay > 0 {
			d.delay = delay
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Debouncer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithContext derives every run context from parent instead of Background.
func WithContext(parent context.Context) Option {
	return func(d *Debouncer) {
		if parent != nil {
			d.base = parent
		}
	}
}

// New constructs a Debouncer.
func New(options ...Option) *Debouncer {
	d := &Debouncer{
		delay:   DefaultDelay,
		logger:  zap.NewNop(),
		base:    context.Background(),
		entries: make(map[string]*entry),
	}
	for _, opt := range options {
		if opt != nil {
			opt(d)
		}
	}
	d.base, d.stop = context.WithCancel(d.base)
	return d
}

// Delay reports the configured quiet interval.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Call schedules fn for key, replacing (and cancelling) any pending or running
// action for the same key. Calls after Stop are ignored.
func (d *Debouncer) Call(key string, fn Func) {
	if fn == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if prev, ok := d.entries[key]; ok {
		prev.timer.Stop()
		prev.cancel()
	}

	d.seq++
	seq := d.seq
	ctx, cancel := context.WithCancel(d.base)
	e := &entry{cancel: cancel, seq: seq}
	e.timer = time.AfterFunc(d.delay, func() {
		d.fire(key, seq, ctx, fn)
	})
	d.entries[key] = e
}

func (d *Debouncer) fire(key string, seq uint64, ctx context.Context, fn Func) {
	d.mu.Lock()
	current, ok := d.entries[key]
	if !ok || current.seq != seq || d.stopped || ctx.Err() != nil {
		d.mu.Unlock()
		return
	}
	d.running.Add(1)
	d.mu.Unlock()

	defer d.running.Done()
	defer func() {
		d.mu.Lock()
		if current, ok := d.entries[key]; ok && current.seq == seq {
			current.cancel()
			delete(d.entries, key)
		}
		d.mu.Unlock()
	}()

	d.logger.Debug("debounced call firing", zap.String("key", key))
	fn(ctx)
}

// Cancel drops the pending or running action for key and reports whether
// there was one.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	e.cancel()
	delete(d.entries, key)
	return true
}

// Pending reports whether an action for key is scheduled or running.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.entries[key]
	return ok
}

// Stop cancels every pending action, cancels running ones and waits for them
// to return. The debouncer cannot be reused afterwards.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		d.running.Wait()
		return
	}
	d.stopped = true
	for key, e := range d.entries {
		e.timer.Stop()
		e.cancel()
		delete(d.entries, key)
	}
	d.stop()
	d.mu.Unlock()

	d.running.Wait()
}

// Wrap adapts a typed function so each invocation passes through the
// debouncer under key; the arguments of the last call win.
func Wrap[T any](d *Debouncer, key string, fn func(ctx context.Context, arg T)) func(arg T) {
	return func(arg T) {
		d.Call(key, func(ctx context.Context) {
			fn(ctx, arg)
		})
	}
}
