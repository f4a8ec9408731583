// Package tui runs a wizard as an interactive terminal session. The page
// tree is a page.Memory; its live regions are echoed as plain lines so
// screen readers attached to the terminal pick them up.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formwizard/pkg/i18n"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/page"
	"github.com/goliatone/go-formwizard/pkg/submit"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

type action int

const (
	actionNext action = iota
	actionBack
	actionSubmit
	actionReset
	actionQuit
)

// Session drives one wizard through a PromptDriver.
type Session struct {
	wizard    *wizard.Wizard
	page      *page.Memory
	driver    PromptDriver
	localizer i18n.Localizer
	theme     Theme
	logger    *zap.Logger

	mu      sync.Mutex
	pending []string
}

// NewSession attaches to w, which must write to a *page.Memory.
func NewSession(w *wizard.Wizard, options ...Option) (*Session, error) {
	mem, ok := w.Page().(*page.Memory)
	if !ok {
		return nil, ErrNoPage
	}
	s := &Session{
		wizard:    w,
		page:      mem,
		driver:    NewSurveyDriver(os.Stdout),
		localizer: i18n.NewLocalizer(i18n.LocaleRU),
		theme:     DefaultTheme(),
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	mem.Observe(s.observe)
	return s, nil
}

// observe queues live region text; clears are not echoed.
func (s *Session) observe(ev page.Event) {
	if ev.Kind != page.EventLiveText || ev.Text == "" {
		return
	}
	prefix := s.theme.PolitePrefix
	if ev.Target == string(page.Assertive) {
		prefix = s.theme.AssertivePrefix
	}
	s.mu.Lock()
	s.pending = append(s.pending, prefix+ev.Text)
	s.mu.Unlock()
}

func (s *Session) flush(ctx context.Context) error {
	s.mu.Lock()
	lines := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, line := range lines {
		if err := s.driver.Info(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

// Run prompts until the form is submitted or the user quits. A successful
// submission returns the endpoint's response.
func (s *Session) Run(ctx context.Context) (submit.Response, error) {
	for {
		if err := ctx.Err(); err != nil {
			return submit.Response{}, err
		}
		if err := s.flush(ctx); err != nil {
			return submit.Response{}, err
		}

		if s.wizard.AtReview() {
			resp, done, err := s.review(ctx)
			if err != nil || done {
				return resp, err
			}
			continue
		}

		if err := s.fillStep(ctx); err != nil {
			return submit.Response{}, err
		}
		if err := s.flush(ctx); err != nil {
			return submit.Response{}, err
		}

		actions := []action{actionNext}
		if s.wizard.Current() > 1 {
			actions = append(actions, actionBack)
		}
		actions = append(actions, actionQuit)
		chosen, err := s.choose(ctx, actions)
		if err != nil {
			return submit.Response{}, err
		}

		switch chosen {
		case actionNext:
			if err := s.wizard.Advance(); err != nil && !errors.Is(err, wizard.ErrInvalidStep) {
				return submit.Response{}, err
			}
		case actionBack:
			if err := s.wizard.Retreat(); err != nil {
				return submit.Response{}, err
			}
		case actionQuit:
			return submit.Response{}, ErrAborted
		}
	}
}

func (s *Session) fillStep(ctx context.Context) error {
	step := s.wizard.Step()
	if err := s.driver.Info(ctx, s.theme.HeadingPrefix+step.Title); err != nil {
		return err
	}
	for _, field := range step.Fields {
		if err := s.askField(ctx, field); err != nil {
			return err
		}
	}
	return nil
}

// askField repeats the prompt until the value passes validation. Verdicts
// come from the wizard so page state stays authoritative.
func (s *Session) askField(ctx context.Context, field model.Field) error {
	check := func(value string) error {
		if err := s.wizard.Input(field.ID, value); err != nil {
			return err
		}
		result, err := s.wizard.Blur(field.ID)
		if err != nil {
			return err
		}
		if !result.Valid {
			return errors.New(result.Message)
		}
		return nil
	}

	label := field.DisplayLabel()
	if field.Constraints.Required {
		label += " *"
	}
	cfg := InputConfig{Message: label, Validator: check}
	ask := s.driver.Input
	if field.Kind == model.KindPassword {
		ask = s.driver.Password
	} else {
		cfg.Default = field.Value
	}

	for {
		value, err := ask(ctx, cfg)
		if err != nil {
			return err
		}
		verr := check(value)
		if verr == nil {
			return nil
		}
		if errors.Is(verr, wizard.ErrClosed) || errors.Is(verr, wizard.ErrUnknownField) {
			return verr
		}
		s.logger.Debug("field rejected", zap.String("field", field.ID), zap.String("reason", verr.Error()))
		if err := s.driver.Info(ctx, s.theme.ErrorPrefix+verr.Error()); err != nil {
			return err
		}
	}
}

func (s *Session) review(ctx context.Context) (submit.Response, bool, error) {
	step := s.wizard.Step()
	if err := s.driver.Info(ctx, s.theme.HeadingPrefix+step.Title); err != nil {
		return submit.Response{}, false, err
	}
	entries, err := s.wizard.Review()
	if err != nil {
		return submit.Response{}, false, err
	}
	for _, entry := range entries {
		if err := s.driver.Info(ctx, fmt.Sprintf("  %s: %s", entry.Label, entry.Value)); err != nil {
			return submit.Response{}, false, err
		}
	}

	chosen, err := s.choose(ctx, []action{actionSubmit, actionBack, actionReset, actionQuit})
	if err != nil {
		return submit.Response{}, false, err
	}
	switch chosen {
	case actionSubmit:
		resp, err := s.wizard.Submit(ctx)
		if err == nil {
			return resp, true, s.flush(ctx)
		}
		if errors.Is(err, wizard.ErrInvalidStep) {
			return submit.Response{}, false, nil
		}
		if errors.Is(err, wizard.ErrClosed) || (errors.Is(err, context.Canceled) && ctx.Err() != nil) {
			return submit.Response{}, false, err
		}
		s.logger.Info("submission failed", zap.Error(err))
		if msg := strings.TrimSpace(s.page.FormMessage()); msg != "" {
			if err := s.driver.Info(ctx, s.theme.ErrorPrefix+msg); err != nil {
				return submit.Response{}, false, err
			}
		}
		return submit.Response{}, false, nil
	case actionBack:
		return submit.Response{}, false, s.wizard.Retreat()
	case actionReset:
		return submit.Response{}, false, s.wizard.Reset()
	default:
		return submit.Response{}, false, ErrAborted
	}
}

func (s *Session) choose(ctx context.Context, actions []action) (action, error) {
	labels := make([]string, len(actions))
	for i, a := range actions {
		labels[i] = s.label(a)
	}
	idx, err := s.driver.Select(ctx, SelectConfig{
		Message: s.localizer.T(i18n.KeyActionPrompt),
		Options: labels,
	})
	if err != nil {
		return actionQuit, err
	}
	if idx < 0 || idx >= len(actions) {
		return actionQuit, fmt.Errorf("tui: selection %d out of range", idx)
	}
	return actions[idx], nil
}

func (s *Session) label(a action) string {
	switch a {
	case actionNext:
		return s.localizer.T(i18n.KeyActionNext)
	case actionBack:
		return s.localizer.T(i18n.KeyActionBack)
	case actionSubmit:
		return s.localizer.T(i18n.KeyActionSubmit)
	case actionReset:
		return s.localizer.T(i18n.KeyActionReset)
	default:
		return s.localizer.T(i18n.KeyActionQuit)
	}
}
