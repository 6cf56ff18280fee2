package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var currencySymbols = map[rune]string{
	'$': "USD",
	'€': "EUR",
	'£': "GBP",
	'¥': "JPY",
}

var currencyCodes = []string{
	"USD", "EUR", "GBP", "JPY", "AUD", "CAD", "CHF", "CNY",
	"SEK", "NOK", "DKK", "THB", "MXN", "INR", "KRW", "NZD",
}

var (
	amountRe      = regexp.MustCompile(`[0-9][0-9.,]*`)
	symbolPriceRe = regexp.MustCompile(`[$€£¥]\s?[0-9][0-9.,]*`)
)

// ParsePrice pulls the first price out of free text. The currency comes
// from a symbol or ISO code near the amount, falling back to
// defaultCurrency when the text names none.
func ParsePrice(text, defaultCurrency string) (float64, string, bool) {
	currency := ""
	for _, r := range text {
		if code, ok := currencySymbols[r]; ok {
			currency = code
			break
		}
	}
	if currency == "" {
		upper := strings.ToUpper(text)
		for _, code := range currencyCodes {
			if containsWord(upper, code) {
				currency = code
				break
			}
		}
	}

	raw := amountRe.FindString(text)
	if raw == "" {
		return 0, "", false
	}
	amount, ok := parseAmount(raw)
	if !ok {
		return 0, "", false
	}
	if currency == "" {
		currency = defaultCurrency
	}
	return amount, currency, true
}

// parseAmount normalizes separator conventions before parsing. With
// both separators present the last one is the decimal mark; a single
// comma with one or two trailing digits reads as a decimal comma,
// otherwise commas group thousands. Repeated dots group thousands.
func parseAmount(s string) (float64, bool) {
	s = strings.Trim(s, ".,")
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastComma >= 0:
		trailing := len(s) - lastComma - 1
		if strings.Count(s, ",") == 1 && trailing >= 1 && trailing <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// PriceRange formats a display price range from free text: the first
// two symbol-prefixed amounts joined with a dash, a single amount on
// its own, or "Free" when the text says so.
func PriceRange(text string) string {
	matches := symbolPriceRe.FindAllString(text, 2)
	for i, m := range matches {
		matches[i] = strings.ReplaceAll(m, " ", "")
	}
	switch len(matches) {
	case 2:
		return matches[0] + "-" + matches[1]
	case 1:
		return matches[0]
	}
	if strings.Contains(strings.ToLower(text), "free") {
		return "Free"
	}
	return ""
}

func containsWord(upper, word string) bool {
	for from := 0; ; {
		i := strings.Index(upper[from:], word)
		if i < 0 {
			return false
		}
		i += from
		before := i == 0 || !isLetter(upper[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(upper) || !isLetter(upper[afterIdx])
		if before && after {
			return true
		}
		from = i + len(word)
	}
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
