// Package i18n holds the message catalog shared by the validator, the step
// controller and the announcer. Messages are fmt format strings keyed by a
// stable identifier; the default locale is Russian.
package i18n

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Message keys.
const (
	KeyRequired      = "required"
	KeyTypeEmail     = "type.email"
	KeyTypeURL       = "type.url"
	KeyTypeTel       = "type.tel"
	KeyTypeNumber    = "type.number"
	KeyTypeCard      = "type.card"
	KeyTypeDate      = "type.date"
	KeyMinLength     = "minLength"
	KeyMaxLength     = "maxLength"
	KeyMin           = "min"
	KeyMax           = "max"
	KeyPattern       = "pattern"
	KeyInvalid       = "invalid"
	KeyTaken         = "taken"
	KeyCheckFailed   = "check.failed"
	KeyStepShown     = "step.shown"
	KeyStepErrors    = "step.errors"
	KeyReview        = "step.review"
	KeySubmitSuccess = "submit.success"
	KeySubmitFailure = "submit.failure"
	KeySubmitPending = "submit.pending"
	KeyFormReset     = "form.reset"
	KeyNetworkError  = "network.error"

	KeyActionPrompt = "action.prompt"
	KeyActionNext   = "action.next"
	KeyActionBack   = "action.back"
	KeyActionSubmit = "action.submit"
	KeyActionReset  = "action.reset"
	KeyActionQuit   = "action.quit"
)

// Default locales.
const (
	LocaleRU = "ru"
	LocaleEN = "en"
)

var (
	// ErrMissingTranslation is passed to MissingHandler when a key is absent.
	ErrMissingTranslation = errors.New("i18n: translation not found")
)

// Translator resolves a key for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingHandler decides what is shown when a translation fails.
type MissingHandler func(locale, key string, args []any, err error) string

// Catalog is an in-memory Translator keyed by locale then message key.
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]map[string]string
}

var _ Translator = (*Catalog)(nil)

// NewCatalog returns a catalog seeded with the built-in ru and en messages.
func NewCatalog() *Catalog {
	c := &Catalog{messages: make(map[string]map[string]string)}
	c.Add(LocaleRU, russian)
	c.Add(LocaleEN, english)
	return c
}

// Add merges messages for a locale, overriding existing keys.
func (c *Catalog) Add(locale string, messages map[string]string) {
	locale = normalizeLocale(locale)
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.messages[locale]
	if !ok {
		bucket = make(map[string]string, len(messages))
		c.messages[locale] = bucket
	}
	for key, msg := range messages {
		bucket[key] = msg
	}
}

// Translate formats the message for key. Locales such as "ru-RU" fall back to
// their base language.
func (c *Catalog) Translate(locale, key string, args ...any) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	locale = normalizeLocale(locale)
	for _, candidate := range []string{locale, baseLanguage(locale)} {
		if msg, ok := c.messages[candidate][key]; ok {
			if len(args) == 0 {
				return msg, nil
			}
			return fmt.Sprintf(msg, args...), nil
		}
	}
	return "", fmt.Errorf("%w: %s/%s", ErrMissingTranslation, locale, key)
}

// Localizer binds a Translator to a locale.
type Localizer struct {
	Translator Translator
	Locale     string
	OnMissing  MissingHandler
}

// NewLocalizer returns a Localizer over the built-in catalog.
func NewLocalizer(locale string) Localizer {
	if strings.TrimSpace(locale) == "" {
		locale = LocaleRU
	}
	return Localizer{Translator: NewCatalog(), Locale: locale}
}

// T translates key, falling back to the generic invalid message and finally
// to the key itself.
func (l Localizer) T(key string, args ...any) string {
	if l.Translator != nil {
		msg, err := l.Translator.Translate(l.Locale, key, args...)
		if err == nil && strings.TrimSpace(msg) != "" {
			return msg
		}
		if l.OnMissing != nil {
			return l.OnMissing(l.Locale, key, args, err)
		}
		if generic, gerr := l.Translator.Translate(l.Locale, KeyInvalid); gerr == nil && key != KeyInvalid {
			return generic
		}
		return key
	}
	if l.OnMissing != nil {
		return l.OnMissing(l.Locale, key, args, ErrMissingTranslation)
	}
	return key
}

func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	return strings.ReplaceAll(locale, "_", "-")
}

func baseLanguage(locale string) string {
	if idx := strings.IndexByte(locale, '-'); idx > 0 {
		return locale[:idx]
	}
	return locale
}

var (
	plainOnce   sync.Once
	plainPolicy *bluemonday.Policy
)

// PlainText strips markup from text destined for message regions and live
// regions, which must only ever contain plain text.
func PlainText(raw string) string {
	plainOnce.Do(func() {
		plainPolicy = bluemonday.StrictPolicy()
	})
	cleaned := plainPolicy.Sanitize(raw)
	cleaned = html.UnescapeString(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}
