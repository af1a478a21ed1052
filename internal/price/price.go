// Package price parses currency amounts out of free-form page text.
package price

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Price is a currency symbol paired with a parsed decimal amount.
type Price struct {
	Symbol string
	Amount float64
}

// amountPattern matches a currency symbol followed by a number in either
// US grouping (1,234.56) or EU grouping (1.234,56). Word-boundary checks
// around the match are done separately since RE2 has no lookaround.
var amountPattern = regexp.MustCompile(`[$€£]\s?(?:\d{1,3}(?:[\s,.]\d{3})*(?:[.,]\d{2})?|\d+(?:[.,]\d{2})?)`)

// Parse returns the first well-formed price found in text, in reading
// order. It returns nil when no candidate substring parses.
func Parse(text string) *Price {
	if text == "" {
		return nil
	}
	for _, loc := range amountPattern.FindAllStringIndex(text, -1) {
		match := text[loc[0]:loc[1]]
		if wordRuneBefore(text, loc[0]) || wordRuneAt(text, loc[1]) {
			continue
		}
		symbol, rest := splitSymbol(match)
		amount, err := strconv.ParseFloat(normalizeNumber(rest), 64)
		if err != nil {
			continue
		}
		return &Price{Symbol: symbol, Amount: amount}
	}
	return nil
}

// CurrencyCode maps a detected symbol to its ISO 4217 code. Unknown
// symbols default to USD.
func CurrencyCode(symbol string) string {
	switch symbol {
	case "€":
		return "EUR"
	case "£":
		return "GBP"
	default:
		return "USD"
	}
}

// Format renders an amount with thousands grouping and two decimals,
// prefixed with the currency symbol.
func Format(symbol string, amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if negative {
		b.WriteString("-")
	}
	b.WriteString(symbol)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

func splitSymbol(match string) (symbol, rest string) {
	for i, r := range match {
		if r == '$' || r == '€' || r == '£' {
			continue
		}
		return match[:i], strings.TrimSpace(match[i:])
	}
	return match, ""
}

// normalizeNumber collapses grouping separators and coerces a trailing
// two-digit group into a decimal point. A separator followed by exactly
// three digits is a thousands separator and is dropped.
func normalizeNumber(raw string) string {
	raw = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != ',' && c != '.' {
			b.WriteByte(c)
			continue
		}
		run := 0
		for j := i + 1; j < len(raw) && raw[j] >= '0' && raw[j] <= '9'; j++ {
			run++
		}
		switch {
		case run == 3:
			// thousands separator
		case run == 2 && i+3 == len(raw):
			b.WriteByte('.')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func wordRuneBefore(text string, idx int) bool {
	if idx == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:idx])
	return isWordRune(r)
}

func wordRuneAt(text string, idx int) bool {
	if idx >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[idx:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
