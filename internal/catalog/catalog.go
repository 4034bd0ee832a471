// Package catalog holds the injected heuristic data the inference pipeline
// runs on: the provider catalog, the relevance keyword set and the recognized
// currency patterns. All three are loaded once at startup and treated as
// immutable for the duration of a scan.
package catalog

import (
	"fmt"

	"github.com/spf13/viper"
)

// Entry maps a known vendor to its display name and category tag. Name is the
// token matched against headers and body text (matching is case-insensitive);
// DisplayName is what gets persisted and shown to users.
type Entry struct {
	Name        string `mapstructure:"name"`
	DisplayName string `mapstructure:"display_name"`
	Tag         string `mapstructure:"tag"`
}

// Display returns the entry's display name, falling back to the match token.
func (e Entry) Display() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Name
}

// CurrencyPattern describes one recognized currency: the ISO-like code that
// gets persisted and the markers (symbol, code aliases) searched for in text.
// Patterns are evaluated in list order; the first match wins.
type CurrencyPattern struct {
	Code    string   `mapstructure:"code"`
	Markers []string `mapstructure:"markers"`
}

// Catalog is the full injected configuration for a scan.
type Catalog struct {
	Providers  []Entry
	Keywords   []string
	Currencies []CurrencyPattern
}

// DefaultKeywords is the fixed relevance gate: a message must contain at
// least one of these (case-insensitive) to be considered subscription-like.
func DefaultKeywords() []string {
	return []string{
		"subscription", "renew", "renewal", "invoice", "receipt",
		"charged", "payment", "processed", "billed",
	}
}

// DefaultCurrencies returns the recognized currency patterns in priority
// order: USD, NGN, EUR, GBP.
func DefaultCurrencies() []CurrencyPattern {
	return []CurrencyPattern{
		{Code: "USD", Markers: []string{"$", "usd"}},
		{Code: "NGN", Markers: []string{"₦", "ngn"}},
		{Code: "EUR", Markers: []string{"€", "eur"}},
		{Code: "GBP", Markers: []string{"£", "gbp"}},
	}
}

// Load reads the catalog from viper configuration. The provider list is
// mandatory: the pipeline cannot run without it, so an empty list is a
// startup error. Keywords and currencies fall back to the built-in defaults
// when not configured.
func Load() (*Catalog, error) {
	var c Catalog

	if err := viper.UnmarshalKey("catalog.providers", &c.Providers); err != nil {
		return nil, fmt.Errorf("failed to parse catalog.providers: %w", err)
	}
	if len(c.Providers) == 0 {
		return nil, fmt.Errorf("catalog.providers is empty: at least one provider entry is required")
	}
	for i, e := range c.Providers {
		if e.Name == "" {
			return nil, fmt.Errorf("catalog.providers[%d] has no name", i)
		}
	}

	if err := viper.UnmarshalKey("catalog.keywords", &c.Keywords); err != nil {
		return nil, fmt.Errorf("failed to parse catalog.keywords: %w", err)
	}
	if len(c.Keywords) == 0 {
		c.Keywords = DefaultKeywords()
	}

	if err := viper.UnmarshalKey("catalog.currencies", &c.Currencies); err != nil {
		return nil, fmt.Errorf("failed to parse catalog.currencies: %w", err)
	}
	if len(c.Currencies) == 0 {
		c.Currencies = DefaultCurrencies()
	}
	for i, p := range c.Currencies {
		if p.Code == "" || len(p.Markers) == 0 {
			return nil, fmt.Errorf("catalog.currencies[%d] needs a code and at least one marker", i)
		}
	}

	return &c, nil
}
