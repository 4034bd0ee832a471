package inference

import (
	"net/mail"
	"time"

	"github.com/subtrack/subtrack/internal/models"
)

// DeriveDates resolves the billing window for a message. The start date comes
// from the Date header; an absent or unparseable header falls back to the
// scan time. Next billing is one fixed cycle later — there is no way to learn
// the real cadence from a single email, so a monthly cycle is assumed.
func DeriveDates(p *models.MessagePayload, now time.Time, cycle time.Duration) (start, next time.Time) {
	start = now
	if raw := p.HeaderValue("Date"); raw != "" {
		if parsed, err := mail.ParseDate(raw); err == nil {
			start = parsed
		}
	}
	return start, start.Add(cycle)
}
