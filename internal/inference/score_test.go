package inference

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/subtrack/subtrack/internal/models"
)

func TestScorePrefersPlausibleAmount(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(-24 * time.Hour)

	tiny := models.Candidate{Provider: "Netflix", Amount: 4.50, Currency: "USD", StartDate: start}
	plausible := models.Candidate{Provider: "Netflix", Amount: 49.99, Currency: "USD", StartDate: start}

	assert.Greater(t, Score(plausible, now), Score(tiny, now))

	winner := SelectWinner([]models.Candidate{tiny, plausible}, now)
	assert.Equal(t, 49.99, winner.Amount)
}

func TestScoreComponents(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-12 * time.Hour)

	tests := []struct {
		name string
		c    models.Candidate
		want int
	}{
		{
			"full plausible candidate",
			models.Candidate{Amount: 15.99, Currency: "USD", Product: "family", StartDate: fresh},
			20 + 30 + 5 + 5 + 10,
		},
		{
			"placeholder product earns nothing",
			models.Candidate{Amount: 15.99, Currency: "USD", Product: "premium", StartDate: fresh},
			20 + 30 + 5 + 10,
		},
		{
			"no amount",
			models.Candidate{Currency: "USD", StartDate: fresh},
			-20 + 5 + 10,
		},
		{
			"huge amount gets base only",
			models.Candidate{Amount: 25000, Currency: "USD", StartDate: fresh},
			20 + 5 + 10,
		},
		{
			"stale candidate loses recency",
			models.Candidate{Amount: 15.99, Currency: "USD", StartDate: now.Add(-40 * 24 * time.Hour)},
			20 + 30 + 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.c, now))
		})
	}
}

func TestSelectWinnerTieBreaksFirstSeen(t *testing.T) {
	now := time.Now()
	a := models.Candidate{Provider: "Spotify", Amount: 9.99, Currency: "USD", StartDate: now, Raw: models.RawData{MessageID: "a"}}
	b := models.Candidate{Provider: "Spotify", Amount: 9.99, Currency: "USD", StartDate: now, Raw: models.RawData{MessageID: "b"}}

	winner := SelectWinner([]models.Candidate{a, b}, now)
	assert.Equal(t, "a", winner.Raw.MessageID)
}

func TestRecencyBonusBounds(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 10, recencyBonus(now, now))
	assert.Equal(t, 10, recencyBonus(now.Add(24*time.Hour), now)) // future dates clamp
	assert.Equal(t, 9, recencyBonus(now.Add(-3*24*time.Hour), now))
	assert.Equal(t, 0, recencyBonus(now.Add(-90*24*time.Hour), now))
	assert.Equal(t, 0, recencyBonus(time.Time{}, now))
}
