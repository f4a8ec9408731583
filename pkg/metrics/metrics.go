// Package metrics records form interaction counters. Components depend on the
// Recorder interface; Nop is the default and Prometheus exports the counters
// through a prometheus.Registerer.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by submissions and uniqueness checks.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
	OutcomeTaken     = "taken"
	OutcomeAvailable = "available"
)

// Step transition directions.
const (
	DirectionForward = "forward"
	DirectionBack    = "back"
	DirectionReset   = "reset"
)

// Recorder receives interaction events.
type Recorder interface {
	ValidationFailed(fieldID, rule string)
	StepChanged(direction string, step int)
	Announced(urgency string)
	Submitted(outcome string, elapsed time.Duration)
	UniquenessChecked(outcome string, elapsed time.Duration)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ValidationFailed(string, string)         {}
func (Nop) StepChanged(string, int)                 {}
func (Nop) Announced(string)                        {}
func (Nop) Submitted(string, time.Duration)         {}
func (Nop) UniquenessChecked(string, time.Duration) {}

// Prometheus implements Recorder with client_golang collectors.
type Prometheus struct {
	validationFailures *prometheus.CounterVec
	stepTransitions    *prometheus.CounterVec
	currentStep        prometheus.Gauge
	announcements      *prometheus.CounterVec
	submissions        *prometheus.HistogramVec
	uniquenessChecks   *prometheus.HistogramVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates and registers the collectors. A nil registerer uses
// prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "formwizard"
	}

	p := &Prometheus{
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Field validation failures by field and rule.",
		}, []string{"field", "rule"}),
		stepTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_transitions_total",
			Help:      "Step controller transitions by direction.",
		}, []string{"direction"}),
		currentStep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_step",
			Help:      "Step most recently shown.",
		}),
		announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_total",
			Help:      "Live region announcements by urgency.",
		}, []string{"urgency"}),
		submissions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Submission round trips by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		uniquenessChecks: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "uniqueness_check_duration_seconds",
			Help:      "Uniqueness lookups by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	var err error
	if p.validationFailures, err = register(reg, p.validationFailures); err != nil {
		return nil, err
	}
	if p.stepTransitions, err = register(reg, p.stepTransitions); err != nil {
		return nil, err
	}
	if p.currentStep, err = register(reg, p.currentStep); err != nil {
		return nil, err
	}
	if p.announcements, err = register(reg, p.announcements); err != nil {
		return nil, err
	}
	if p.submissions, err = register(reg, p.submissions); err != nil {
		return nil, err
	}
	if p.uniquenessChecks, err = register(reg, p.uniquenessChecks); err != nil {
		return nil, err
	}
	return p, nil
}

// register adds c to reg. When an equal collector is already registered the
// existing one is returned so every recorder on reg shares the same series.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("metrics: register collector: %w", err)
}

func (p *Prometheus) ValidationFailed(fieldID, rule string) {
	p.validationFailures.WithLabelValues(fieldID, rule).Inc()
}

func (p *Prometheus) StepChanged(direction string, step int) {
	p.stepTransitions.WithLabelValues(direction).Inc()
	p.currentStep.Set(float64(step))
}

func (p *Prometheus) Announced(urgency string) {
	p.announcements.WithLabelValues(urgency).Inc()
}

func (p *Prometheus) Submitted(outcome string, elapsed time.Duration) {
	p.submissions.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (p *Prometheus) UniquenessChecked(outcome string, elapsed time.Duration) {
	p.uniquenessChecks.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
