package wizard

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formwizard/pkg/validation"
)

var (
	ErrUnknownField     = errors.New("wizard: unknown field")
	ErrLastStep         = errors.New("wizard: already at the last step")
	ErrNotAtReview      = errors.New("wizard: submission is only possible from the review step")
	ErrSubmitInProgress = errors.New("wizard: submission already in progress")
	ErrNoSubmitter      = errors.New("wizard: no submitter configured")
	ErrClosed           = errors.New("wizard: closed")
	ErrSuperseded       = errors.New("wizard: form changed while the request was in flight")
	// ErrInvalidStep is matched by every *StepError.
	ErrInvalidStep = errors.New("wizard: step has invalid fields")
)

// StepError reports the fields that blocked a transition or a submission.
type StepError struct {
	Step   int
	StepID string
	Fields []validation.Result
}

func (e *StepError) Error() string {
	return fmt.Sprintf("wizard: step %d (%s) has %d invalid field(s)", e.Step, e.StepID, len(e.Fields))
}

func (e *StepError) Unwrap() error {
	return ErrInvalidStep
}

// FieldIDs lists the failing fields in form order.
func (e *StepError) FieldIDs() []string {
	ids := make([]string, len(e.Fields))
	for i, r := range e.Fields {
		ids[i] = r.FieldID
	}
	return ids
}
