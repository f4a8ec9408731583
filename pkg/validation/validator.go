package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/goliatone/go-formwizard/pkg/i18n"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/page"
)

// Rule names the constraint that produced a verdict.
type Rule string

const (
	RuleNone      Rule = ""
	RuleRequired  Rule = "required"
	RuleType      Rule = "type"
	RuleMinLength Rule = "minLength"
	RuleMaxLength Rule = "maxLength"
	RuleMin       Rule = "min"
	RuleMax       Rule = "max"
	RulePattern   Rule = "pattern"
	RuleCustom    Rule = "custom"
)

// Result is the outcome of validating one field.
type Result struct {
	FieldID string `json:"field"`
	Valid   bool   `json:"valid"`
	Rule    Rule   `json:"rule,omitempty"`
	Message string `json:"message,omitempty"`
}

// Values exposes the other fields of the form to custom rules.
type Values func(fieldID string) string

// CustomRule runs after the declarative rules. It returns an empty string when
// the value passes, otherwise the message to show.
type CustomRule func(value string, values Values) string

// Validator evaluates fields. It is safe for concurrent use.
type Validator struct {
	localizer i18n.Localizer
	logger    *zap.Logger

	mu       sync.RWMutex
	custom   map[string][]CustomRule
	patterns map[string]*regexp.Regexp
}

// Option configures a Validator.
type Option func(*Validator)

// WithLocalizer overrides the message source.
func WithLocalizer(l i18n.Localizer) Option {
	return func(v *Validator) {
		v.localizer = l
	}
}

// WithLogger attaches a logger used for rejected pattern expressions.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithRule registers a custom rule for a field id.
func WithRule(fieldID string, rule CustomRule) Option {
	return func(v *Validator) {
		v.AddRule(fieldID, rule)
	}
}

// New constructs a Validator using the Russian catalog by default.
func New(options ...Option) *Validator {
	v := &Validator{
		localizer: i18n.NewLocalizer(i18n.LocaleRU),
		logger:    zap.NewNop(),
		custom:    make(map[string][]CustomRule),
		patterns:  make(map[string]*regexp.Regexp),
	}
	for _, opt := range options {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// AddRule appends a custom rule for a field id.
func (v *Validator) AddRule(fieldID string, rule CustomRule) {
	if rule == nil || fieldID == "" {
		return
	}
	v.mu.Lock()
	v.custom[fieldID] = append(v.custom[fieldID], rule)
	v.mu.Unlock()
}

// Validate checks a field in isolation.
func (v *Validator) Validate(field model.Field) Result {
	return v.ValidateWith(field, nil)
}

// ValidateWith checks a field, giving custom rules access to sibling values.
func (v *Validator) ValidateWith(field model.Field, values Values) Result {
	if values == nil {
		values = func(string) string { return "" }
	}

	value := field.Value
	trimmed := strings.TrimSpace(value)
	c := field.Constraints

	if trimmed == "" {
		if c.Required {
			return v.fail(field, RuleRequired, v.localizer.T(i18n.KeyRequired))
		}
		return pass(field)
	}

	kind := typeRules[field.Kind]
	if kind == nil {
		if alias, ok := model.ParseKind(string(field.Kind)); ok {
			kind = typeRules[alias]
		}
	}
	if kind == nil {
		v.logger.Debug("unknown field kind", zap.String("field", field.ID), zap.String("kind", string(field.Kind)))
		return v.fail(field, RuleType, v.localizer.T(i18n.KeyInvalid))
	}
	if key := kind.check(trimmed); key != "" {
		return v.fail(field, RuleType, v.localizer.T(key))
	}

	length := utf8.RuneCountInString(trimmed)
	if c.MinLength != nil && length < *c.MinLength {
		return v.fail(field, RuleMinLength, v.localizer.T(i18n.KeyMinLength, *c.MinLength))
	}
	if c.MaxLength != nil && length > *c.MaxLength {
		return v.fail(field, RuleMaxLength, v.localizer.T(i18n.KeyMaxLength, *c.MaxLength))
	}
	if field.Kind == model.KindNumber && (c.Min != nil || c.Max != nil) {
		number, _ := parseNumber(trimmed)
		if c.Min != nil && number < *c.Min {
			return v.fail(field, RuleMin, v.localizer.T(i18n.KeyMin, formatNumber(*c.Min)))
		}
		if c.Max != nil && number > *c.Max {
			return v.fail(field, RuleMax, v.localizer.T(i18n.KeyMax, formatNumber(*c.Max)))
		}
	}

	if c.Pattern != "" {
		re := v.pattern(c.Pattern)
		if re == nil || !re.MatchString(value) {
			msg := i18n.PlainText(c.PatternMessage)
			if msg == "" {
				msg = v.localizer.T(i18n.KeyPattern)
			}
			return v.fail(field, RulePattern, msg)
		}
	}

	v.mu.RLock()
	rules := v.custom[field.ID]
	v.mu.RUnlock()
	for _, rule := range rules {
		if msg := rule(value, values); msg != "" {
			return v.fail(field, RuleCustom, i18n.PlainText(msg))
		}
	}

	return pass(field)
}

// Apply mirrors a verdict onto the page.
func Apply(p page.Page, result Result) {
	if p == nil || result.FieldID == "" {
		return
	}
	if result.Valid {
		p.SetInvalid(result.FieldID, false)
		p.SetFieldMessage(result.FieldID, "")
		return
	}
	p.SetInvalid(result.FieldID, true)
	p.SetFieldMessage(result.FieldID, result.Message)
}

func (v *Validator) fail(field model.Field, rule Rule, message string) Result {
	if strings.TrimSpace(message) == "" {
		message = v.localizer.T(i18n.KeyInvalid)
	}
	return Result{FieldID: field.ID, Valid: false, Rule: rule, Message: message}
}

func pass(field model.Field) Result {
	return Result{FieldID: field.ID, Valid: true}
}

func (v *Validator) pattern(expr string) *regexp.Regexp {
	v.mu.RLock()
	re, ok := v.patterns[expr]
	v.mu.RUnlock()
	if ok {
		return re
	}

	compiled, err := regexp.Compile(model.AnchoredPattern(expr))
	if err != nil {
		v.logger.Warn("rejecting field pattern", zap.String("pattern", expr), zap.Error(err))
		compiled = nil
	}
	v.mu.Lock()
	v.patterns[expr] = compiled
	v.mu.Unlock()
	return compiled
}

// decimalPattern admits plain decimal notation only; ParseFloat alone would
// also take NaN, Inf and hex floats.
var decimalPattern = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

func parseNumber(raw string) (float64, bool) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	normalized = strings.ReplaceAll(normalized, " ", "")
	if !decimalPattern.MatchString(normalized) {
		return 0, false
	}
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
