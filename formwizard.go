// Package formwizard wires the form wizard components from a Config: the
// submission client, the uniqueness backend, metrics and logging.
package formwizard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/goliatone/go-formwizard/pkg/config"
	"github.com/goliatone/go-formwizard/pkg/definition"
	"github.com/goliatone/go-formwizard/pkg/i18n"
	"github.com/goliatone/go-formwizard/pkg/metrics"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/submit"
	"github.com/goliatone/go-formwizard/pkg/uniqueness"
	"github.com/goliatone/go-formwizard/pkg/validation"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Form aliases model.Form for callers that only import the root package.
type Form = model.Form

// Wizard aliases wizard.Wizard.
type Wizard = wizard.Wizard

// CheckCard exposes the Luhn/brand check.
func CheckCard(number string) validation.Card {
	return validation.CheckCard(number)
}

// LoadDefinition loads a form from a path or http(s) URL.
func LoadDefinition(ctx context.Context, raw string, options ...definition.Option) (model.Form, error) {
	src, err := definition.Parse(raw)
	if err != nil {
		return model.Form{}, err
	}
	return definition.NewLoader(options...).Load(ctx, src)
}

// Runtime holds the collaborators shared by every wizard built from one
// configuration.
type Runtime struct {
	cfg       config.Config
	logger    *zap.Logger
	localizer i18n.Localizer
	recorder  metrics.Recorder
	checker   uniqueness.Checker
	client    *http.Client
	closers   []func() error
}

// RuntimeOption configures NewRuntime.
type RuntimeOption func(*Runtime)

// WithLogger sets the logger handed to every component.
func WithLogger(logger *zap.Logger) RuntimeOption {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegisterer exports metrics to reg.
func WithRegisterer(reg prometheus.Registerer) RuntimeOption {
	return func(r *Runtime) {
		if reg == nil {
			return
		}
		rec, err := metrics.NewPrometheus(reg, r.cfg.Metrics.Namespace)
		if err != nil {
			r.logger.Warn("metrics disabled", zap.Error(err))
			return
		}
		r.recorder = rec
	}
}

// WithHTTPClient sets the client used for submissions and HTTP checks.
func WithHTTPClient(client *http.Client) RuntimeOption {
	return func(r *Runtime) {
		if client != nil {
			r.client = client
		}
	}
}

// NewRuntime builds collaborators from cfg. Redis takes precedence over the
// HTTP uniqueness endpoint when both are configured.
func NewRuntime(cfg config.Config, options ...RuntimeOption) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runtime{
		cfg:       cfg,
		logger:    zap.NewNop(),
		localizer: i18n.NewLocalizer(cfg.Locale),
		recorder:  metrics.Nop{},
		client:    &http.Client{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}

	switch {
	case cfg.Uniqueness.RedisAddr != "":
		redisChecker := uniqueness.NewRedis(cfg.Uniqueness.RedisAddr, "", cfg.Uniqueness.RedisDB,
			uniqueness.WithPrefix(cfg.Uniqueness.RedisPrefix))
		r.closers = append(r.closers, redisChecker.Close)
		r.checker = uniqueness.NewShared(redisChecker)
	case cfg.Uniqueness.URL != "":
		httpChecker, err := uniqueness.NewHTTP(cfg.Uniqueness.URL,
			uniqueness.WithHTTPClient(r.client),
			uniqueness.WithHTTPLogger(r.logger))
		if err != nil {
			return nil, err
		}
		r.checker = uniqueness.NewShared(httpChecker)
	}
	return r, nil
}

// Recorder returns the metrics recorder in use.
func (r *Runtime) Recorder() metrics.Recorder {
	return r.recorder
}

// Localizer returns the configured localizer.
func (r *Runtime) Localizer() i18n.Localizer {
	return r.localizer
}

// WizardOptions returns the options for a wizard over form. The configured
// submit endpoint overrides the one declared by the form.
func (r *Runtime) WizardOptions(form model.Form) ([]wizard.Option, error) {
	options := []wizard.Option{
		wizard.WithLocalizer(r.localizer),
		wizard.WithDebounceDelay(r.cfg.Debounce),
		wizard.WithAnnouncementExpiry(r.cfg.Expiry),
		wizard.WithRecorder(r.recorder),
		wizard.WithLogger(r.logger),
	}
	if r.checker != nil {
		options = append(options, wizard.WithChecker(r.checker))
	}

	endpoint := strings.TrimSpace(r.cfg.Submit.Endpoint)
	if endpoint == "" {
		endpoint = strings.TrimSpace(form.Endpoint)
	}
	if endpoint == "" {
		return options, nil
	}

	method := form.Method
	if r.cfg.Submit.Endpoint != "" || method == "" {
		method = r.cfg.Submit.Method
	}
	subOpts := []submit.HTTPOption{
		submit.WithHTTPClient(r.client),
		submit.WithMethod(method),
		submit.WithTimeout(r.cfg.Submit.Timeout),
		submit.WithLogger(r.logger),
	}
	for name, value := range r.cfg.Submit.Headers {
		subOpts = append(subOpts, submit.WithHeader(name, value))
	}
	submitter, err := submit.NewHTTP(endpoint, subOpts...)
	if err != nil {
		return nil, fmt.Errorf("formwizard: submitter: %w", err)
	}
	return append(options, wizard.WithSubmitter(submitter)), nil
}

// NewWizard builds a wizard over form with the runtime's collaborators and
// any extra options.
func (r *Runtime) NewWizard(form model.Form, extra ...wizard.Option) (*wizard.Wizard, error) {
	options, err := r.WizardOptions(form)
	if err != nil {
		return nil, err
	}
	return wizard.New(form, append(options, extra...)...)
}

// Close releases backend connections.
func (r *Runtime) Close() error {
	var errs []error
	for _, closer := range r.closers {
		errs = append(errs, closer())
	}
	return errors.Join(errs...)
}
