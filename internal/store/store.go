// Package store persists subscriptions and users, and implements the merge
// policy that reconciles pipeline output with previously stored rows.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/subtrack/subtrack/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// UpdateFields carries the volatile subscription fields replaced on every
// merge. Product is a pointer: nil keeps the stored value, since a newer
// scan without a product name shouldn't erase a previously extracted one.
type UpdateFields struct {
	Amount      float64
	Currency    string
	Product     *string
	StartDate   *time.Time
	NextBilling *time.Time
	Tag         string
	RawData     *models.RawData
}

// Subscriptions defines the persistence contract for subscription rows.
// Implementations must be safe for concurrent use. Create must behave as
// idempotent-if-exists: a racing duplicate for the same (user, provider)
// merges instead of erroring, backed by the store's unique constraint.
type Subscriptions interface {
	// FindByProvider returns the user's subscription for a provider, or
	// ErrNotFound.
	FindByProvider(ctx context.Context, userID uuid.UUID, provider string) (*models.Subscription, error)

	// Create inserts a subscription, merging into an existing
	// (user, provider) row if one races in first.
	Create(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)

	// Update replaces the volatile fields of a subscription.
	Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*models.Subscription, error)

	// ListByUser returns all of a user's subscriptions, provider-ordered.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)

	// ListDueBetween returns active subscriptions whose next billing falls
	// inside [from, to), across all users. Used by the reminder worker.
	ListDueBetween(ctx context.Context, from, to time.Time) ([]models.Subscription, error)

	// ExpireOverdue flips active subscriptions whose billing or expiry
	// date has passed to expired, returning how many rows changed.
	ExpireOverdue(ctx context.Context, asOf time.Time) (int64, error)

	// Delete removes a user's subscription for a provider.
	Delete(ctx context.Context, userID uuid.UUID, provider string) error
}

// Users defines the persistence contract for user rows.
type Users interface {
	Get(ctx context.Context, id uuid.UUID) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	FindByChatID(ctx context.Context, chatID string) (models.User, error)

	// BindChat links a chat conversation to the user.
	BindChat(ctx context.Context, id uuid.UUID, chatID string) error

	// TouchScan records that a scan ran for the user.
	TouchScan(ctx context.Context, id uuid.UUID, at time.Time) error

	// RecordReceived advances last_message_received, never backwards.
	RecordReceived(ctx context.Context, id uuid.UUID, at time.Time) error
}
