package inference

import (
	"time"

	"github.com/subtrack/subtrack/internal/models"
)

// Amounts inside this band look like real subscription prices; tiny numbers
// are usually incidental (quantities, per-unit rates) and get penalized.
const (
	plausibleAmountMin = 5
	plausibleAmountMax = 10000
)

// Score rates how trustworthy a candidate looks as a whole record. The
// pipeline already drops amount-less candidates, but the scorer stays robust
// if that gate is ever relaxed.
func Score(c models.Candidate, now time.Time) int {
	score := 0

	if c.Amount > 0 {
		score += 20
		switch {
		case c.Amount >= plausibleAmountMin && c.Amount <= plausibleAmountMax:
			score += 30
		case c.Amount < plausibleAmountMin:
			score -= 10
		}
	} else {
		score -= 20
	}

	if c.Product != "" && !placeholderProduct(c.Product) {
		score += 5
	}
	if c.Currency != "" {
		score += 5
	}

	score += recencyBonus(c.StartDate, now)

	return score
}

// recencyBonus rewards recently dated candidates: 10 points fading by one
// every three days, floored at zero.
func recencyBonus(start time.Time, now time.Time) int {
	if start.IsZero() {
		return 0
	}
	days := int(now.Sub(start).Hours() / 24)
	if days < 0 {
		days = 0
	}
	bonus := 10 - days/3
	if bonus < 0 {
		return 0
	}
	return bonus
}

// SelectWinner picks the single most-trustworthy candidate among several for
// the same provider. Ties break toward the earliest-seen candidate. Fields
// are never merged across candidates; the winner is kept whole.
func SelectWinner(candidates []models.Candidate, now time.Time) models.Candidate {
	best := candidates[0]
	bestScore := Score(best, now)
	for _, c := range candidates[1:] {
		if s := Score(c, now); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}
