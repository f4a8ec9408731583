package tui

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-formwizard/pkg/i18n"
)

// Theme captures optional prefixes applied to printed lines.
type Theme struct {
	HeadingPrefix   string
	ErrorPrefix     string
	PolitePrefix    string
	AssertivePrefix string
}

// DefaultTheme marks announcements so they stand apart from prompts.
func DefaultTheme() Theme {
	return Theme{
		HeadingPrefix:   "== ",
		ErrorPrefix:     "✗ ",
		PolitePrefix:    "ℹ ",
		AssertivePrefix: "! ",
	}
}

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		s.theme = theme
	}
}

// WithLocalizer selects the language of menu labels.
func WithLocalizer(l i18n.Localizer) Option {
	return func(s *Session) {
		s.localizer = l
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}
