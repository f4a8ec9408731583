package wizard

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/goliatone/go-formwizard/pkg/i18n"
	"github.com/goliatone/go-formwizard/pkg/metrics"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/submit"
	"github.com/goliatone/go-formwizard/pkg/uniqueness"
	"github.com/goliatone/go-formwizard/pkg/validation"
)

const mask = "••••••••"

// ReviewEntry is one line of the summary shown on the final step.
type ReviewEntry struct {
	StepID  string
	FieldID string
	Label   string
	Value   string
}

// Review lists every field with its display value. Passwords are masked and
// card numbers reduced to their last four digits.
func (w *Wizard) Review() ([]ReviewEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != len(w.form.Steps) {
		return nil, ErrNotAtReview
	}

	var entries []ReviewEntry
	for _, step := range w.form.Steps {
		for _, field := range step.Fields {
			entries = append(entries, ReviewEntry{
				StepID:  step.ID,
				FieldID: field.ID,
				Label:   field.DisplayLabel(),
				Value:   displayValue(field),
			})
		}
	}
	return entries, nil
}

func displayValue(field model.Field) string {
	if field.Value == "" {
		return ""
	}
	switch field.Kind {
	case model.KindPassword:
		return mask
	case model.KindCard:
		digits := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, field.Value)
		if len(digits) <= 4 {
			return mask
		}
		return "•••• " + digits[len(digits)-4:]
	default:
		return field.Value
	}
}

// Submit revalidates the whole form and hands the values to the submitter.
// Invalid fields move the wizard to the first failing step. On success the
// form resets; on failure it stays, the endpoint's message is shown and
// field errors are mapped onto their inputs. There are no retries.
func (w *Wizard) Submit(ctx context.Context) (submit.Response, error) {
	w.mu.Lock()
	if err := w.beginSubmitLocked(); err != nil {
		w.mu.Unlock()
		return submit.Response{}, err
	}
	payload := submit.Payload(w.valuesLocked())
	unique := w.uniqueValuesLocked()
	generation := w.generation
	stepCtx := w.stepCtx
	w.submitting = true
	w.page.SetFormMessage("")
	w.announcer.Polite(w.localizer.T(i18n.KeySubmitPending))
	w.mu.Unlock()

	ctx, cancel := linked(ctx, stepCtx)
	defer cancel()

	if w.checker != nil && len(unique) > 0 {
		taken, err := uniqueness.CheckAll(ctx, w.checker, unique)
		if err != nil && ctx.Err() == nil {
			// The endpoint remains authoritative; a broken checker must not
			// block submission.
			w.logger.Warn("pre-submit uniqueness check failed", zap.Error(err))
		}
		if len(taken) > 0 {
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.generation != generation || w.closed {
				return submit.Response{}, ErrSuperseded
			}
			w.submitting = false
			return submit.Response{}, w.rejectTakenLocked(unique, taken)
		}
	}

	start := time.Now()
	resp, err := w.submitter.Submit(ctx, payload)
	elapsed := time.Since(start)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.generation != generation || w.closed {
		w.recorder.Submitted(metrics.OutcomeCancelled, elapsed)
		if err != nil {
			return submit.Response{}, errors.Join(ErrSuperseded, err)
		}
		return submit.Response{}, ErrSuperseded
	}
	w.submitting = false

	if err != nil {
		return submit.Response{}, w.failSubmitLocked(err, elapsed)
	}

	w.recorder.Submitted(metrics.OutcomeSuccess, elapsed)
	w.logger.Info("form submitted", zap.String("request_id", resp.RequestID), zap.Duration("elapsed", elapsed))
	w.resetLocked()
	message := i18n.PlainText(resp.Message)
	if message == "" {
		message = w.localizer.T(i18n.KeySubmitSuccess)
	}
	w.announcer.Polite(message)
	return resp, nil
}

func (w *Wizard) beginSubmitLocked() error {
	switch {
	case w.closed:
		return ErrClosed
	case w.submitter == nil:
		return ErrNoSubmitter
	case w.current != len(w.form.Steps):
		return ErrNotAtReview
	case w.submitting:
		return ErrSubmitInProgress
	}

	for step := 1; step <= len(w.form.Steps); step++ {
		if err := w.validateStepLocked(step); err != nil {
			if step != w.current {
				w.showLocked(step, metrics.DirectionBack)
			}
			w.reportFailureLocked(err)
			return err
		}
	}
	return nil
}

func (w *Wizard) uniqueValuesLocked() map[string]string {
	values := make(map[string]string)
	for _, step := range w.form.Steps {
		for _, field := range step.Fields {
			if field.Unique && strings.TrimSpace(field.Value) != "" {
				values[field.ID] = field.Value
			}
		}
	}
	return values
}

func (w *Wizard) rejectTakenLocked(values map[string]string, taken []string) error {
	var stepErr *StepError
	for _, id := range taken {
		field, err := w.fieldLocked(id)
		if err != nil {
			continue
		}
		w.taken[id] = values[id]
		result := w.takenResult(id)
		w.applyLocked(field, result)

		step := w.positions[id].step + 1
		w.stepValid[step-1] = false
		if stepErr == nil || step < stepErr.Step {
			stepErr = &StepError{Step: step, StepID: w.form.Steps[step-1].ID}
		}
	}
	if stepErr == nil {
		return ErrInvalidStep
	}
	for _, field := range w.form.Steps[stepErr.Step-1].Fields {
		if !field.Valid {
			stepErr.Fields = append(stepErr.Fields, w.takenResult(field.ID))
		}
	}
	if stepErr.Step != w.current {
		w.showLocked(stepErr.Step, metrics.DirectionBack)
	}
	w.reportFailureLocked(stepErr)
	return stepErr
}

func (w *Wizard) failSubmitLocked(err error, elapsed time.Duration) error {
	var subErr *submit.Error
	if !errors.As(err, &subErr) {
		subErr = &submit.Error{Err: err}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		w.recorder.Submitted(metrics.OutcomeCancelled, elapsed)
		w.logger.Debug("submission cancelled", zap.Error(err))
		return err
	}

	outcome := metrics.OutcomeError
	if errors.Is(err, submit.ErrRejected) {
		outcome = metrics.OutcomeRejected
	}
	w.recorder.Submitted(outcome, elapsed)
	w.logger.Warn("submission failed",
		zap.String("request_id", subErr.RequestID),
		zap.Int("status", subErr.Status),
		zap.Error(err))

	message := i18n.PlainText(subErr.Message)
	if message == "" || errors.Is(err, submit.ErrTransport) {
		message = w.localizer.T(i18n.KeyNetworkError)
	}

	ids := make([]string, 0, len(w.positions))
	for id := range w.positions {
		ids = append(ids, id)
	}
	mapping := submit.MapFieldErrors(ids, subErr.Fields)
	for id, messages := range mapping.Fields {
		field, lookupErr := w.fieldLocked(id)
		if lookupErr != nil {
			continue
		}
		w.applyLocked(field, validation.Result{
			FieldID: id,
			Valid:   false,
			Rule:    validation.RuleCustom,
			Message: i18n.PlainText(strings.Join(messages, " ")),
		})
		w.stepValid[w.positions[id].step] = false
	}

	w.page.SetFormMessage(strings.Join(mapping.Merge(message), " "))
	w.announcer.Assertive(w.localizer.T(i18n.KeySubmitFailure, message))
	return err
}
