package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/subtrack/subtrack/internal/catalog"
)

func TestAmountExtractor(t *testing.T) {
	e := NewAmountExtractor(catalog.DefaultCurrencies())

	tests := []struct {
		name     string
		text     string
		amount   float64
		currency string
		ok       bool
	}{
		{"symbol before number", "you were charged $15.99 today", 15.99, "USD", true},
		{"number before code", "a total of 15.99 usd was billed", 15.99, "USD", true},
		{"thousands separator stripped", "your plan renewed at ₦6,600", 6600, "NGN", true},
		{"euro symbol", "invoice total €9.99", 9.99, "EUR", true},
		{"pound symbol", "we processed £12.00", 12, "GBP", true},
		{"whole amount no decimals", "payment of $20 received", 20, "USD", true},
		{"priority order usd wins", "€5.00 or $7.00 per month", 7, "USD", true},
		{"no marker no guess", "order 12345 confirmed on 2024-03-01", 0, "", false},
		{"marker without adjacent number", "pay in usd whenever you like", 0, "", false},
		{"code inside longer word not a marker", "network plan with 10 gbps speed", 0, "", false},
		{"code prefix of longer word ignored", "20 eurozone countries visited", 0, "", false},
		{"code glued to number still matches", "charged usd20 today", 20, "USD", true},
		{"empty text", "", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := e.Extract(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.amount, m.Amount)
			assert.Equal(t, tt.currency, m.Currency)
		})
	}
}

func TestAmountExtractorNeverInventsCurrency(t *testing.T) {
	e := NewAmountExtractor(catalog.DefaultCurrencies())
	known := map[string]bool{"USD": true, "NGN": true, "EUR": true, "GBP": true, "": true}

	texts := []string{
		"charged $15.99", "renewal 2,500 ngn", "nothing here",
		"total: 99.00", "CHF 20.00 billed", "€1,200.50 annual plan",
	}
	for _, text := range texts {
		m, _ := e.Extract(text)
		assert.True(t, known[m.Currency], "unexpected currency %q for %q", m.Currency, text)
	}
}
