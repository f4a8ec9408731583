// Package announce writes transient messages into live regions so assistive
// technology narrates state changes. Polite and assertive messages use
// separate regions. Each region is cleared after a fixed expiry so that a
// later identical message is a real content change and gets read again.
package announce

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formwizard/pkg/i18n"
	"github.com/goliatone/go-formwizard/pkg/metrics"
	"github.com/goliatone/go-formwizard/pkg/page"
)

// DefaultExpiry is how long a message stays in its region.
const DefaultExpiry = 3 * time.Second

var (
	// ErrUnknownUrgency is returned for channels other than polite/assertive.
	ErrUnknownUrgency = errors.New("announce: unknown urgency")
	// ErrEmptyMessage is returned when nothing is left after sanitising.
	ErrEmptyMessage = errors.New("announce: message is empty")
	// ErrStopped is returned after Stop.
	ErrStopped = errors.New("announce: announcer stopped")
)

// Announcement describes a message currently held by a region.
type Announcement struct {
	Text      string
	Urgency   page.Politeness
	ExpiresAt time.Time
}

type region struct {
	text  string
	gen   uint64
	timer *time.Timer
}

// Announcer owns the two live regions of a page.
type Announcer struct {
	page     page.Page
	expiry   time.Duration
	logger   *zap.Logger
	recorder metrics.Recorder
	now      func() time.Time

	mu      sync.Mutex
	regions map[page.Politeness]*region
	stopped bool
}

// Option configures an Announcer.
type Option func(*Announcer)

// WithExpiry overrides DefaultExpiry.
func WithExpiry(expiry time.Duration) Option {
	return func(a *Announcer) {
		if expiry > 0 {
			a.expiry = expiry
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Announcer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(a *Announcer) {
		if rec != nil {
			a.recorder = rec
		}
	}
}

// New creates an Announcer writing to p.
func New(p page.Page, options ...Option) *Announcer {
	a := &Announcer{
		page:     p,
		expiry:   DefaultExpiry,
		logger:   zap.NewNop(),
		recorder: metrics.Nop{},
		now:      time.Now,
		regions: map[page.Politeness]*region{
			page.Polite:    {},
			page.Assertive: {},
		},
	}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Expiry reports the configured expiry.
func (a *Announcer) Expiry() time.Duration {
	return a.expiry
}

// Announce places message in the region for urgency and schedules its
// removal. Markup is stripped; live regions only carry plain text.
func (a *Announcer) Announce(message string, urgency page.Politeness) (Announcement, error) {
	if !urgency.Valid() {
		return Announcement{}, ErrUnknownUrgency
	}
	text := i18n.PlainText(message)
	if text == "" {
		return Announcement{}, ErrEmptyMessage
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return Announcement{}, ErrStopped
	}

	r := a.regions[urgency]
	if r.timer != nil {
		r.timer.Stop()
	}
	if r.text == text {
		// Unchanged content is not re-read, so force a change first.
		a.page.SetLiveText(urgency, "")
	}
	r.text = text
	r.gen++
	gen := r.gen
	a.page.SetLiveText(urgency, text)
	r.timer = time.AfterFunc(a.expiry, func() {
		a.expire(urgency, gen)
	})

	a.recorder.Announced(string(urgency))
	a.logger.Debug("announced", zap.String("urgency", string(urgency)), zap.String("text", text))

	return Announcement{Text: text, Urgency: urgency, ExpiresAt: a.now().Add(a.expiry)}, nil
}

// Polite is shorthand for Announce(message, page.Polite) that drops the
// result; announcement failures never interrupt the form.
func (a *Announcer) Polite(message string) {
	if _, err := a.Announce(message, page.Polite); err != nil && !errors.Is(err, ErrStopped) {
		a.logger.Debug("announcement dropped", zap.Error(err))
	}
}

// Assertive is shorthand for Announce(message, page.Assertive).
func (a *Announcer) Assertive(message string) {
	if _, err := a.Announce(message, page.Assertive); err != nil && !errors.Is(err, ErrStopped) {
		a.logger.Debug("announcement dropped", zap.Error(err))
	}
}

// Current returns the text held by a region.
func (a *Announcer) Current(urgency page.Politeness) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.regions[urgency]; ok {
		return r.text
	}
	return ""
}

func (a *Announcer) expire(urgency page.Politeness, gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := a.regions[urgency]
	if a.stopped || r.gen != gen {
		return
	}
	r.text = ""
	r.timer = nil
	a.page.SetLiveText(urgency, "")
}

// Stop cancels pending expiries and clears both regions.
func (a *Announcer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.stopped = true
	for urgency, r := range a.regions {
		if r.timer != nil {
			r.timer.Stop()
			r.timer = nil
		}
		if r.text != "" {
			r.text = ""
			a.page.SetLiveText(urgency, "")
		}
	}
}
