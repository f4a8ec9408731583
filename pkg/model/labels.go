package model

import (
	"strings"
	"unicode"
)

// DefaultLabeler turns an identifier such as "billing_address" or
// "cardNumber" into "Billing Address" / "Card Number".
func DefaultLabeler(id string) string {
	var (
		words   []string
		current []rune
	)
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	runes := []rune(id)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
			continue
		case i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]):
			flush()
		case i > 0 && unicode.IsDigit(r) != unicode.IsDigit(runes[i-1]):
			flush()
		}
		current = append(current, r)
	}
	flush()

	for i, word := range words {
		lower := []rune(strings.ToLower(word))
		lower[0] = unicode.ToUpper(lower[0])
		words[i] = string(lower)
	}
	return strings.Join(words, " ")
}
