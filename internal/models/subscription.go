package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription lifecycle states. Transitions to expired are driven by the
// expiry worker, never by the inference pipeline.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// RawData is the opaque audit blob kept with a subscription: enough of the
// source message to explain where a record came from.
type RawData struct {
	MessageID string    `json:"message_id"`
	Subject   string    `json:"subject,omitempty"`
	Snippet   string    `json:"snippet,omitempty"`
	SentDate  time.Time `json:"sent_date"`
}

// Candidate is a provisional subscription record extracted from a single
// email, prior to scoring and selection. Candidates are never persisted
// directly.
type Candidate struct {
	Provider    string
	Tag         string
	Product     string
	Amount      float64
	Currency    string
	StartDate   time.Time
	NextBilling time.Time
	Raw         RawData
}

// Subscription database model. At most one effective row exists per
// (user, provider); the store enforces this with a unique constraint.
type Subscription struct {
	ID          uuid.UUID  `db:"id"`
	UserID      uuid.UUID  `db:"user_id"`
	Provider    string     `db:"provider"`
	Product     string     `db:"product"`
	Amount      float64    `db:"amount"`
	Currency    string     `db:"currency"`
	StartDate   *time.Time `db:"start_date"`
	NextBilling *time.Time `db:"next_billing"`
	ExpiryDate  *time.Time `db:"expiry_date"`
	Status      string     `db:"status"`
	Tag         string     `db:"tag"`
	RawData     *RawData   `db:"raw_data"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}
