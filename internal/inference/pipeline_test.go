package inference

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subtrack/subtrack/internal/catalog"
	"github.com/subtrack/subtrack/internal/models"
)

func testPipeline(now time.Time) *Pipeline {
	p := NewPipeline(&catalog.Catalog{
		Providers:  testCatalogEntries(),
		Keywords:   catalog.DefaultKeywords(),
		Currencies: catalog.DefaultCurrencies(),
	}, 30)
	p.now = func() time.Time { return now }
	return p
}

func TestParseSnippetOnlyMessage(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	p := testPipeline(now)

	out := p.Parse([]models.RawMessage{
		{ID: "1", Snippet: "Your Netflix subscription was charged $15.99 on 2024-03-01"},
	})

	require.Len(t, out, 1)
	c := out[0]
	assert.Equal(t, "Netflix", c.Provider)
	assert.Equal(t, "streaming", c.Tag)
	assert.Equal(t, 15.99, c.Amount)
	assert.Equal(t, "USD", c.Currency)
	// No Date header on a snippet-only message: start falls back to scan time.
	assert.Equal(t, now, c.StartDate)
	assert.Equal(t, now.Add(30*24*time.Hour), c.NextBilling)
	assert.Equal(t, "1", c.Raw.MessageID)
}

func TestParseExcludesIrrelevantMessages(t *testing.T) {
	p := testPipeline(time.Now())

	out := p.Parse([]models.RawMessage{
		// No provider, no keywords.
		{ID: "1", Snippet: "Welcome to our newsletter"},
		// Provider matches but no relevance keyword.
		{ID: "2", Snippet: "New shows on Netflix this week for $5.99"},
		// Provider and keyword but no currency-adjacent amount.
		{ID: "3", Snippet: "Your Netflix subscription settings changed on 2024-03-01"},
	})

	assert.Empty(t, out)
}

func TestParseOneWinnerPerProvider(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	p := testPipeline(now)

	date := func(d string) *models.MessagePayload {
		return &models.MessagePayload{Headers: []models.Header{
			{Name: "From", Value: "info@netflix.com"},
			{Name: "Date", Value: d},
			{Name: "Subject", Value: "Receipt"},
		}}
	}

	out := p.Parse([]models.RawMessage{
		{ID: "welcome", Snippet: "netflix subscription started, first charge $1.99", Payload: date("Mon, 04 Mar 2024 10:00:00 +0000")},
		{ID: "charge", Snippet: "netflix payment receipt $15.99", Payload: date("Mon, 04 Mar 2024 11:00:00 +0000")},
		{ID: "spotify", Snippet: "spotify premium invoice 9.99 usd"},
	})

	require.Len(t, out, 2)
	// Provider first-seen order: Netflix bucket opened first.
	assert.Equal(t, "Netflix", out[0].Provider)
	assert.Equal(t, "charge", out[0].Raw.MessageID, "plausible amount must beat tiny first charge")
	assert.Equal(t, 15.99, out[0].Amount)
	assert.Equal(t, "Receipt", out[0].Raw.Subject)
	assert.Equal(t, "Spotify", out[1].Provider)
}

func TestParseDateHeaderDrivesBilling(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	p := testPipeline(now)

	out := p.Parse([]models.RawMessage{{
		ID:      "1",
		Snippet: "netflix renewal $15.99",
		Payload: &models.MessagePayload{Headers: []models.Header{
			{Name: "Date", Value: "Fri, 01 Mar 2024 08:30:00 +0000"},
			{Name: "From", Value: "info@netflix.com"},
		}},
	}})

	require.Len(t, out, 1)
	want := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	assert.True(t, out[0].StartDate.Equal(want))
	assert.True(t, out[0].NextBilling.Equal(want.Add(30*24*time.Hour)))
}

func TestParseMalformedDateHeaderFallsBack(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	p := testPipeline(now)

	out := p.Parse([]models.RawMessage{{
		ID:      "1",
		Snippet: "netflix renewal $15.99",
		Payload: &models.MessagePayload{Headers: []models.Header{
			{Name: "Date", Value: "not a date"},
			{Name: "From", Value: "info@netflix.com"},
		}},
	}})

	require.Len(t, out, 1)
	// An unparseable Date header behaves like an absent one.
	assert.Equal(t, now, out[0].StartDate)
	assert.Equal(t, now.Add(30*24*time.Hour), out[0].NextBilling)
}

func TestParseHTMLBodyAmount(t *testing.T) {
	now := time.Now()
	p := testPipeline(now)

	out := p.Parse([]models.RawMessage{{
		ID: "1",
		Payload: &models.MessagePayload{
			MimeType: "text/html",
			Headers: []models.Header{
				{Name: "From", Value: "billing@dstv.com"},
			},
			Body: &models.MessageBody{
				Data: b64(`<html><body>Your DStv invoice: <b>₦6,600</b> charged.</body></html>`),
			},
		},
	}})

	require.Len(t, out, 1)
	assert.Equal(t, float64(6600), out[0].Amount, "thousands separator must be stripped, not split")
	assert.Equal(t, "NGN", out[0].Currency)
}

func TestParseIdempotence(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	p := testPipeline(now)

	batch := []models.RawMessage{
		{ID: "1", Snippet: "Your Netflix subscription was charged $15.99"},
		{ID: "2", Snippet: "spotify premium receipt 9.99 usd"},
		{ID: "3", Snippet: "netflix renewal receipt $15.99"},
	}

	first := p.Parse(batch)
	second := p.Parse(batch)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Provider, second[i].Provider)
		assert.Equal(t, first[i].Amount, second[i].Amount)
		assert.Equal(t, first[i].Currency, second[i].Currency)
		assert.Equal(t, first[i].Product, second[i].Product)
	}
}
