// Package wizard drives a linear multi-step form. A Wizard owns all the
// state of one form session: current step, field values and verdicts, the
// debouncer for network-bound checks and the announcer. Every transition
// cancels the step context so checks and submissions started on the old
// step are abandoned.
package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-formwizard/pkg/announce"
	"github.com/goliatone/go-formwizard/pkg/debounce"
	"github.com/goliatone/go-formwizard/pkg/i18n"
	"github.com/goliatone/go-formwizard/pkg/metrics"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/page"
	"github.com/goliatone/go-formwizard/pkg/submit"
	"github.com/goliatone/go-formwizard/pkg/uniqueness"
	"github.com/goliatone/go-formwizard/pkg/validation"
)

type position struct {
	step  int
	field int
}

// Wizard is safe for concurrent use; debounced checks complete on timer
// goroutines and synchronise through the same lock as user events.
type Wizard struct {
	mu sync.Mutex

	initial   model.Form
	form      model.Form
	positions map[string]position
	current   int
	stepValid []bool
	taken     map[string]string

	page      page.Page
	localizer i18n.Localizer
	validator *validation.Validator
	announcer *announce.Announcer
	debouncer *debounce.Debouncer
	submitter submit.Submitter
	checker   uniqueness.Checker
	recorder  metrics.Recorder
	logger    *zap.Logger

	delay  time.Duration
	expiry time.Duration
	parent context.Context

	stepCtx    context.Context
	stepCancel context.CancelFunc
	generation uint64

	submitting bool
	closed     bool
	sessionID  string
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithPage sets the page the wizard mutates. Defaults to page.NewMemory().
func WithPage(p page.Page) Option {
	return func(w *Wizard) {
		if p != nil {
			w.page = p
		}
	}
}

// WithLocalizer selects the message catalog and locale.
func WithLocalizer(l i18n.Localizer) Option {
	return func(w *Wizard) {
		w.localizer = l
	}
}

// WithValidator injects a validator, e.g. one carrying custom rules.
func WithValidator(v *validation.Validator) Option {
	return func(w *Wizard) {
		if v != nil {
			w.validator = v
		}
	}
}

// WithAnnouncer injects an announcer. It must write to the same page.
func WithAnnouncer(a *announce.Announcer) Option {
	return func(w *Wizard) {
		if a != nil {
			w.announcer = a
		}
	}
}

// WithDebouncer injects the debouncer used for uniqueness checks.
func WithDebouncer(d *debounce.Debouncer) Option {
	return func(w *Wizard) {
		if d != nil {
			w.debouncer = d
		}
	}
}

// WithDebounceDelay sets the quiet interval of the default debouncer.
func WithDebounceDelay(delay time.Duration) Option {
	return func(w *Wizard) {
		if delay > 0 {
			w.delay = delay
		}
	}
}

// WithAnnouncementExpiry sets the expiry of the default announcer.
func WithAnnouncementExpiry(expiry time.Duration) Option {
	return func(w *Wizard) {
		if expiry > 0 {
			w.expiry = expiry
		}
	}
}

// WithSubmitter sets the submission collaborator.
func WithSubmitter(s submit.Submitter) Option {
	return func(w *Wizard) {
		w.submitter = s
	}
}

// WithChecker enables uniqueness checks for fields marked unique.
func WithChecker(c uniqueness.Checker) Option {
	return func(w *Wizard) {
		w.checker = c
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(w *Wizard) {
		if r != nil {
			w.recorder = r
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Wizard) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithContext sets the parent of every step context.
func WithContext(ctx context.Context) Option {
	return func(w *Wizard) {
		if ctx != nil {
			w.parent = ctx
		}
	}
}

// New validates form and shows its first step.
func New(form model.Form, options ...Option) (*Wizard, error) {
	if err := form.Validate(); err != nil {
		return nil, fmt.Errorf("wizard: %w", err)
	}

	w := &Wizard{
		localizer: i18n.NewLocalizer(i18n.LocaleRU),
		recorder:  metrics.Nop{},
		logger:    zap.NewNop(),
		delay:     debounce.DefaultDelay,
		expiry:    announce.DefaultExpiry,
		parent:    context.Background(),
		sessionID: uuid.NewString(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(w)
		}
	}

	w.logger = w.logger.With(zap.String("form", form.ID), zap.String("session", w.sessionID))
	if w.page == nil {
		w.page = page.NewMemory()
	}
	if w.validator == nil {
		w.validator = validation.New(validation.WithLocalizer(w.localizer), validation.WithLogger(w.logger))
	}
	if w.announcer == nil {
		w.announcer = announce.New(w.page,
			announce.WithExpiry(w.expiry),
			announce.WithLogger(w.logger),
			announce.WithRecorder(w.recorder))
	}
	if w.debouncer == nil {
		w.debouncer = debounce.New(debounce.WithDelay(w.delay), debounce.WithLogger(w.logger))
	}

	w.initial = form.Clone()
	for si := range w.initial.Steps {
		for fi := range w.initial.Steps[si].Fields {
			w.initial.Steps[si].Fields[fi].Valid = true
		}
	}
	w.positions = make(map[string]position)
	for si, step := range w.initial.Steps {
		for fi, field := range step.Fields {
			w.positions[field.ID] = position{step: si, field: fi}
		}
	}

	w.mu.Lock()
	w.resetLocked()
	w.mu.Unlock()

	w.logger.Debug("wizard started", zap.Int("steps", len(form.Steps)))
	return w, nil
}

// SessionID identifies this form session in logs.
func (w *Wizard) SessionID() string {
	return w.sessionID
}

// Page returns the page the wizard writes to.
func (w *Wizard) Page() page.Page {
	return w.page
}

// Current returns the 1-based active step.
func (w *Wizard) Current() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Total returns the number of steps.
func (w *Wizard) Total() int {
	return len(w.initial.Steps)
}

// Progress returns current and total, as shown in the progress indicator.
func (w *Wizard) Progress() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current, len(w.form.Steps)
}

// AtReview reports whether the final step is active.
func (w *Wizard) AtReview() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current == len(w.form.Steps)
}

// Step returns a copy of the active step with current values.
func (w *Wizard) Step() model.Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	step := w.form.Steps[w.current-1]
	step.Fields = append([]model.Field(nil), step.Fields...)
	return step
}

// StepValid reports the last verdict for a 1-based step. Steps that were
// never validated report false.
func (w *Wizard) StepValid(step int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if step < 1 || step > len(w.stepValid) {
		return false
	}
	return w.stepValid[step-1]
}

// Field returns a copy of a field.
func (w *Wizard) Field(id string) (model.Field, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, err := w.fieldLocked(id)
	if err != nil {
		return model.Field{}, err
	}
	return *f, nil
}

// Values returns a snapshot of every field value.
func (w *Wizard) Values() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.valuesLocked()
}

// StepContext is cancelled on the next transition, reset or Close.
func (w *Wizard) StepContext() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stepCtx
}

// Close cancels in-flight work, stops the debouncer and the announcer and
// waits for running checks to return.
func (w *Wizard) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.stepCancel()
	w.mu.Unlock()

	// Running checks take w.mu, so the lock must be released first.
	w.debouncer.Stop()
	w.announcer.Stop()
	w.logger.Debug("wizard closed")
}

func (w *Wizard) fieldLocked(id string) (*model.Field, error) {
	pos, ok := w.positions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, id)
	}
	return &w.form.Steps[pos.step].Fields[pos.field], nil
}

func (w *Wizard) valuesLocked() map[string]string {
	values := make(map[string]string, len(w.positions))
	for _, step := range w.form.Steps {
		for _, field := range step.Fields {
			values[field.ID] = field.Value
		}
	}
	return values
}

// newStepContextLocked cancels the previous step context and opens the next.
// A submission started on the old step is abandoned, so the wizard accepts a
// new one; the abandoned result is dropped by the generation check.
func (w *Wizard) newStepContextLocked() {
	if w.stepCancel != nil {
		w.stepCancel()
	}
	w.submitting = false
	w.stepCtx, w.stepCancel = context.WithCancel(w.parent)
	w.generation++
}

// linked returns a context cancelled when either ctx or other is.
func linked(ctx, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(other, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
