package wizard

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formwizard/pkg/i18n"
	"github.com/goliatone/go-formwizard/pkg/metrics"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/validation"
)

// RuleTaken marks fields rejected by the uniqueness check.
const RuleTaken validation.Rule = "taken"

// Input records a new value. A field currently shown as invalid is
// revalidated at once so the error clears as soon as it is fixed; unique
// fields schedule a debounced availability check.
func (w *Wizard) Input(id, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	field, err := w.fieldLocked(id)
	if err != nil {
		return err
	}

	field.Value = value
	if taken, ok := w.taken[id]; ok && taken != value {
		delete(w.taken, id)
	}
	w.stepValid[w.positions[id].step] = false

	var result validation.Result
	if !field.Valid {
		result = w.checkLocked(field)
	} else {
		result = w.validator.ValidateWith(*field, w.lookupLocked)
	}

	if field.Unique && w.checker != nil {
		key := uniqueKey(id)
		if result.Valid && strings.TrimSpace(value) != "" {
			w.scheduleCheckLocked(id, value)
		} else {
			w.debouncer.Cancel(key)
		}
	}
	return nil
}

// Blur validates a field and shows the verdict.
func (w *Wizard) Blur(id string) (validation.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return validation.Result{}, ErrClosed
	}
	field, err := w.fieldLocked(id)
	if err != nil {
		return validation.Result{}, err
	}
	return w.checkLocked(field), nil
}

// checkLocked validates field, folds in a known taken verdict and applies
// the result to the page.
func (w *Wizard) checkLocked(field *model.Field) validation.Result {
	result := w.validator.ValidateWith(*field, w.lookupLocked)
	if result.Valid {
		if taken, ok := w.taken[field.ID]; ok && taken == field.Value {
			result = w.takenResult(field.ID)
		}
	}
	w.applyLocked(field, result)
	return result
}

func (w *Wizard) applyLocked(field *model.Field, result validation.Result) {
	field.Valid = result.Valid
	validation.Apply(w.page, result)
	if !result.Valid {
		w.recorder.ValidationFailed(field.ID, string(result.Rule))
	}
}

func (w *Wizard) takenResult(id string) validation.Result {
	return validation.Result{
		FieldID: id,
		Valid:   false,
		Rule:    RuleTaken,
		Message: w.localizer.T(i18n.KeyTaken),
	}
}

func (w *Wizard) lookupLocked(id string) string {
	if pos, ok := w.positions[id]; ok {
		return w.form.Steps[pos.step].Fields[pos.field].Value
	}
	return ""
}

func uniqueKey(id string) string {
	return "unique:" + id
}

// scheduleCheckLocked debounces an availability check. The check is bound
// to the current step context, so leaving the step aborts it.
func (w *Wizard) scheduleCheckLocked(id, value string) {
	stepCtx := w.stepCtx
	generation := w.generation
	w.debouncer.Call(uniqueKey(id), func(ctx context.Context) {
		ctx, cancel := linked(ctx, stepCtx)
		defer cancel()

		start := time.Now()
		free, err := w.checker.Available(ctx, id, value)
		elapsed := time.Since(start)

		w.mu.Lock()
		defer w.mu.Unlock()
		w.settleCheckLocked(id, value, generation, free, err, ctx.Err(), elapsed)
	})
}

func (w *Wizard) settleCheckLocked(id, value string, generation uint64, free bool, err, ctxErr error, elapsed time.Duration) {
	field, lookupErr := w.fieldLocked(id)
	stale := w.closed || lookupErr != nil || w.generation != generation || field.Value != value
	if stale || ctxErr != nil || errors.Is(err, context.Canceled) {
		w.recorder.UniquenessChecked(metrics.OutcomeCancelled, elapsed)
		return
	}

	log := w.logger.With(zap.String("field", id), zap.Duration("elapsed", elapsed))
	switch {
	case err != nil:
		w.recorder.UniquenessChecked(metrics.OutcomeError, elapsed)
		log.Warn("uniqueness check failed", zap.Error(err))
		w.announcer.Polite(w.localizer.T(i18n.KeyCheckFailed))
	case !free:
		w.recorder.UniquenessChecked(metrics.OutcomeTaken, elapsed)
		w.taken[id] = value
		w.stepValid[w.positions[id].step] = false
		result := w.takenResult(id)
		w.applyLocked(field, result)
		w.announcer.Polite(result.Message)
		log.Debug("value taken")
	default:
		w.recorder.UniquenessChecked(metrics.OutcomeAvailable, elapsed)
		log.Debug("value available")
	}
}
