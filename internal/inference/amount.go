package inference

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/subtrack/subtrack/internal/catalog"
)

// Money is an extracted monetary amount with its currency code.
type Money struct {
	Amount   float64
	Currency string
}

// A number adjacent to a currency marker: optional comma thousands groups,
// optional decimal point with exactly two fraction digits.
const numberPattern = `[0-9][0-9,]*(?:\.[0-9]{2})?`

// currencyMatcher is one compiled marker pattern. Matchers are tried in
// configuration order and the first hit short-circuits the rest.
type currencyMatcher struct {
	code   string
	after  *regexp.Regexp // marker then number: "$15.99", "usd 20"
	before *regexp.Regexp // number then marker: "15.99 usd"
}

// AmountExtractor finds a monetary amount adjacent to a recognized currency
// marker. Requiring adjacency is the extractor's core precision control:
// free-floating numbers (dates, percentages, order IDs) never produce an
// amount, and no currency is ever guessed from an unrelated number.
type AmountExtractor struct {
	matchers []currencyMatcher
}

func NewAmountExtractor(patterns []catalog.CurrencyPattern) *AmountExtractor {
	e := &AmountExtractor{matchers: make([]currencyMatcher, 0, len(patterns))}
	for _, p := range patterns {
		// Alphabetic markers get a word-boundary anchor on their outer
		// side, so "usd" never fires inside "used". The number side stays
		// unanchored: "usd20" and "20usd" are still adjacent matches.
		// Symbol markers ("$", "₦") sit next to non-word characters and
		// take no anchor.
		lead := make([]string, 0, len(p.Markers))
		trail := make([]string, 0, len(p.Markers))
		for _, m := range p.Markers {
			quoted := regexp.QuoteMeta(strings.ToLower(m))
			if wordMarker(quoted) {
				lead = append(lead, `\b`+quoted)
				trail = append(trail, quoted+`\b`)
				continue
			}
			lead = append(lead, quoted)
			trail = append(trail, quoted)
		}
		e.matchers = append(e.matchers, currencyMatcher{
			code:   p.Code,
			after:  regexp.MustCompile(`(?:` + strings.Join(lead, `|`) + `)\s?(` + numberPattern + `)`),
			before: regexp.MustCompile(`(` + numberPattern + `)\s?(?:` + strings.Join(trail, `|`) + `)`),
		})
	}
	return e
}

// wordMarker reports whether a lowercased marker is ASCII letters only, the
// only shape \b anchors correctly.
func wordMarker(m string) bool {
	for _, r := range m {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return m != ""
}

// Extract returns the first amount found, in currency priority order. A false
// result means no recognized currency marker had an adjacent number.
func (e *AmountExtractor) Extract(text string) (Money, bool) {
	lower := strings.ToLower(text)
	for _, m := range e.matchers {
		if match := m.after.FindStringSubmatch(lower); match != nil {
			if amount, ok := parseAmount(match[1]); ok {
				return Money{Amount: amount, Currency: m.code}, true
			}
		}
		if match := m.before.FindStringSubmatch(lower); match != nil {
			if amount, ok := parseAmount(match[1]); ok {
				return Money{Amount: amount, Currency: m.code}, true
			}
		}
	}
	return Money{}, false
}

// parseAmount strips thousands separators before parsing, so "6,600" yields
// 6600 rather than 6.6 or a parse failure.
func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
