package validation

import "strings"

// CardType is the issuing network inferred from a card number prefix.
type CardType string

const (
	CardUnknown    CardType = "unknown"
	CardVisa       CardType = "visa"
	CardMastercard CardType = "mastercard"
	CardAmex       CardType = "amex"
	CardDiscover   CardType = "discover"
	CardMir        CardType = "mir"
)

// Card is the outcome of CheckCard.
type Card struct {
	Number string   `json:"number"`
	Valid  bool     `json:"valid"`
	Type   CardType `json:"type"`
}

// CheckCard normalises a card number (spaces and dashes removed) and verifies
// its length and Luhn checksum. The network is reported even for invalid
// numbers when the prefix is recognisable.
func CheckCard(raw string) Card {
	digits := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	card := Card{Number: digits, Type: CardUnknown}
	if digits == "" {
		return card
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return card
		}
	}

	card.Type = cardType(digits)
	card.Valid = len(digits) >= 12 && len(digits) <= 19 && luhn(digits)
	return card
}

// luhn expects a string of ASCII digits.
func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func cardType(digits string) CardType {
	prefix := func(n int) int {
		if len(digits) < n {
			return -1
		}
		v := 0
		for _, r := range digits[:n] {
			v = v*10 + int(r-'0')
		}
		return v
	}

	switch {
	case prefix(4) >= 2200 && prefix(4) <= 2204:
		return CardMir
	case digits[0] == '4':
		return CardVisa
	case prefix(2) >= 51 && prefix(2) <= 55, prefix(4) >= 2221 && prefix(4) <= 2720:
		return CardMastercard
	case prefix(2) == 34 || prefix(2) == 37:
		return CardAmex
	case prefix(4) == 6011 || prefix(2) == 65 || (prefix(3) >= 644 && prefix(3) <= 649):
		return CardDiscover
	default:
		return CardUnknown
	}
}
