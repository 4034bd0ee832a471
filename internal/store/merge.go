package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/subtrack/subtrack/internal/models"
)

// MergeResult summarizes one merge pass over a user's candidates.
type MergeResult struct {
	Created int
	Updated int
	Failed  int
	Records []models.Subscription
}

// Merge reconciles pipeline output against a user's stored subscriptions.
// Match key is provider-only: at most one effective subscription per
// (user, provider). Existing rows get a full replace of their volatile
// fields — newer scan data supersedes older, no field-by-field coalescing.
// A failure on one candidate never aborts the rest of the batch.
func Merge(ctx context.Context, subs Subscriptions, userID uuid.UUID, candidates []models.Candidate) MergeResult {
	var res MergeResult

	for _, c := range candidates {
		existing, err := subs.FindByProvider(ctx, userID, c.Provider)
		switch {
		case err == nil:
			updated, err := subs.Update(ctx, existing.ID, updateFromCandidate(c))
			if err != nil {
				log.Printf("Error updating subscription %s/%s: %v", userID, c.Provider, err)
				res.Failed++
				continue
			}
			res.Updated++
			res.Records = append(res.Records, *updated)

		case errors.Is(err, ErrNotFound):
			created, err := subs.Create(ctx, subscriptionFromCandidate(userID, c))
			if err != nil {
				log.Printf("Error creating subscription %s/%s: %v", userID, c.Provider, err)
				res.Failed++
				continue
			}
			res.Created++
			res.Records = append(res.Records, *created)

		default:
			log.Printf("Error looking up subscription %s/%s: %v", userID, c.Provider, err)
			res.Failed++
		}
	}

	return res
}

func updateFromCandidate(c models.Candidate) UpdateFields {
	f := UpdateFields{
		Amount:      c.Amount,
		Currency:    c.Currency,
		Tag:         c.Tag,
		StartDate:   timePtr(c.StartDate),
		NextBilling: timePtr(c.NextBilling),
	}
	raw := c.Raw
	f.RawData = &raw
	if c.Product != "" {
		product := c.Product
		f.Product = &product
	}
	return f
}

func subscriptionFromCandidate(userID uuid.UUID, c models.Candidate) *models.Subscription {
	raw := c.Raw
	return &models.Subscription{
		UserID:      userID,
		Provider:    c.Provider,
		Product:     c.Product,
		Amount:      c.Amount,
		Currency:    c.Currency,
		StartDate:   timePtr(c.StartDate),
		NextBilling: timePtr(c.NextBilling),
		Status:      models.StatusActive,
		Tag:         c.Tag,
		RawData:     &raw,
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
