package validation

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-formwizard/pkg/i18n"
	"github.com/goliatone/go-formwizard/pkg/model"
)

// typeRule returns the message key of a type mismatch, or "" on success.
type typeRule struct {
	check func(value string) string
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	telPattern   = regexp.MustCompile(`^\+?[0-9\s\-()]+$`)
)

// typeRules is exhaustive over model.Kinds.
var typeRules = map[model.Kind]*typeRule{
	model.KindText:     {check: func(string) string { return "" }},
	model.KindPassword: {check: func(string) string { return "" }},
	model.KindEmail: {check: func(value string) string {
		if !emailPattern.MatchString(value) {
			return i18n.KeyTypeEmail
		}
		return ""
	}},
	model.KindURL: {check: func(value string) string {
		u, err := url.Parse(value)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return i18n.KeyTypeURL
		}
		return ""
	}},
	model.KindTel: {check: func(value string) string {
		if !telPattern.MatchString(value) || countDigits(value) < 7 {
			return i18n.KeyTypeTel
		}
		return ""
	}},
	model.KindNumber: {check: func(value string) string {
		if _, ok := parseNumber(value); !ok {
			return i18n.KeyTypeNumber
		}
		return ""
	}},
	model.KindCard: {check: func(value string) string {
		if !CheckCard(value).Valid {
			return i18n.KeyTypeCard
		}
		return ""
	}},
	model.KindDate: {check: func(value string) string {
		if _, err := time.Parse(time.DateOnly, strings.TrimSpace(value)); err != nil {
			return i18n.KeyTypeDate
		}
		return ""
	}},
}

func countDigits(value string) int {
	n := 0
	for _, r := range value {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
