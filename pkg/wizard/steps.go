package wizard

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-formwizard/pkg/i18n"
	"github.com/goliatone/go-formwizard/pkg/metrics"
	"github.com/goliatone/go-formwizard/pkg/validation"
)

// Advance validates the active step and moves forward. On failure the step
// stays, the first invalid field receives focus, the error count is
// announced assertively and a *StepError is returned.
func (w *Wizard) Advance() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.current >= len(w.form.Steps) {
		return ErrLastStep
	}

	if err := w.validateStepLocked(w.current); err != nil {
		w.reportFailureLocked(err)
		return err
	}
	w.showLocked(w.current+1, metrics.DirectionForward)
	return nil
}

// Retreat moves back one step without validating. At step 1 it does
// nothing.
func (w *Wizard) Retreat() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.current <= 1 {
		return nil
	}
	w.showLocked(w.current-1, metrics.DirectionBack)
	return nil
}

// Reset returns to step 1 with the initial values and no errors shown.
func (w *Wizard) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.resetLocked()
	w.announcer.Polite(w.localizer.T(i18n.KeyFormReset))
	return nil
}

// validateStepLocked checks every field of a 1-based step, applying verdicts
// to the page.
func (w *Wizard) validateStepLocked(step int) *StepError {
	var failed []validation.Result
	for i := range w.form.Steps[step-1].Fields {
		result := w.checkLocked(&w.form.Steps[step-1].Fields[i])
		if !result.Valid {
			failed = append(failed, result)
		}
	}
	w.stepValid[step-1] = len(failed) == 0
	if len(failed) == 0 {
		return nil
	}
	return &StepError{Step: step, StepID: w.form.Steps[step-1].ID, Fields: failed}
}

func (w *Wizard) reportFailureLocked(err *StepError) {
	w.page.Focus(err.Fields[0].FieldID)
	w.announcer.Assertive(w.localizer.T(i18n.KeyStepErrors, len(err.Fields)))
	w.logger.Debug("step blocked",
		zap.Int("step", err.Step),
		zap.Strings("fields", err.FieldIDs()))
}

// showLocked hides the active step and reveals target. The step context is
// replaced so work tied to the old step stops.
func (w *Wizard) showLocked(target int, direction string) {
	total := len(w.form.Steps)
	previous := w.current

	w.newStepContextLocked()
	if previous >= 1 && previous != target {
		w.page.SetHidden(w.form.Steps[previous-1].ID, true)
	}
	step := w.form.Steps[target-1]
	w.page.SetHidden(step.ID, false)
	w.current = target
	w.page.Focus(step.Heading())
	w.page.SetProgress(target, total)

	message := w.localizer.T(i18n.KeyStepShown, target, total, step.Title)
	if target == total {
		message += ". " + w.localizer.T(i18n.KeyReview)
	}
	w.announcer.Polite(message)

	w.recorder.StepChanged(direction, target)
	w.logger.Debug("step shown",
		zap.Int("from", previous),
		zap.Int("step", target),
		zap.String("direction", direction))
}

// resetLocked restores initial values and shows step 1 without announcing.
func (w *Wizard) resetLocked() {
	w.newStepContextLocked()
	for id := range w.positions {
		w.debouncer.Cancel(uniqueKey(id))
	}

	w.form = w.initial.Clone()
	w.taken = make(map[string]string)
	w.stepValid = make([]bool, len(w.form.Steps))
	w.submitting = false

	for _, step := range w.form.Steps {
		w.page.SetHidden(step.ID, true)
		for _, field := range step.Fields {
			w.page.SetInvalid(field.ID, false)
			w.page.SetFieldMessage(field.ID, "")
		}
	}
	w.page.SetFormMessage("")

	first := w.form.Steps[0]
	w.current = 1
	w.page.SetHidden(first.ID, false)
	w.page.Focus(first.Heading())
	w.page.SetProgress(1, len(w.form.Steps))
	w.recorder.StepChanged(metrics.DirectionReset, 1)
}
