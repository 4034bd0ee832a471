package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/subtrack/subtrack/internal/models"
)

// PGSubscriptions is the pgx-backed Subscriptions implementation. The
// subscriptions table carries UNIQUE(user_id, provider); Create leans on it
// so a racing duplicate merges instead of failing.
type PGSubscriptions struct {
	pool *pgxpool.Pool
}

func NewPGSubscriptions(pool *pgxpool.Pool) *PGSubscriptions {
	return &PGSubscriptions{pool: pool}
}

const subscriptionColumns = `id, user_id, provider, product, amount, currency,
	start_date, next_billing, expiry_date, status, tag, raw_data, created_at, updated_at`

func (s *PGSubscriptions) FindByProvider(ctx context.Context, userID uuid.UUID, provider string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions WHERE user_id = $1 AND provider = $2`

	sub, err := scanSubscription(s.pool.QueryRow(ctx, query, userID, provider))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return sub, nil
}

func (s *PGSubscriptions) Create(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	raw, err := marshalRawData(sub.RawData)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO subscriptions
			(id, user_id, provider, product, amount, currency,
			 start_date, next_billing, status, tag, raw_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			product = COALESCE(NULLIF(EXCLUDED.product, ''), subscriptions.product),
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			start_date = EXCLUDED.start_date,
			next_billing = EXCLUDED.next_billing,
			tag = EXCLUDED.tag,
			raw_data = EXCLUDED.raw_data,
			updated_at = now()
		RETURNING ` + subscriptionColumns

	id := sub.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	status := sub.Status
	if status == "" {
		status = models.StatusActive
	}

	created, err := scanSubscription(s.pool.QueryRow(ctx, query,
		id, sub.UserID, sub.Provider, sub.Product, sub.Amount, sub.Currency,
		sub.StartDate, sub.NextBilling, status, sub.Tag, raw,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return created, nil
}

func (s *PGSubscriptions) Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*models.Subscription, error) {
	raw, err := marshalRawData(fields.RawData)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE subscriptions SET
			amount = $2,
			currency = $3,
			product = COALESCE($4, product),
			start_date = $5,
			next_billing = $6,
			tag = $7,
			raw_data = $8,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + subscriptionColumns

	updated, err := scanSubscription(s.pool.QueryRow(ctx, query,
		id, fields.Amount, fields.Currency, fields.Product,
		fields.StartDate, fields.NextBilling, fields.Tag, raw,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	return updated, nil
}

func (s *PGSubscriptions) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions WHERE user_id = $1 ORDER BY provider`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

func (s *PGSubscriptions) ListDueBetween(ctx context.Context, from, to time.Time) ([]models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = $1 AND next_billing >= $2 AND next_billing < $3
		ORDER BY next_billing`

	rows, err := s.pool.Query(ctx, query, models.StatusActive, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list due subscriptions: %w", err)
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

func (s *PGSubscriptions) ExpireOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE subscriptions SET status = $1, updated_at = now()
		WHERE status = $2
			AND (
				(expiry_date IS NOT NULL AND expiry_date < $3)
				OR (expiry_date IS NULL AND next_billing IS NOT NULL AND next_billing < $3)
			)`

	tag, err := s.pool.Exec(ctx, query, models.StatusExpired, models.StatusActive, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGSubscriptions) Delete(ctx context.Context, userID uuid.UUID, provider string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM subscriptions WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	var raw []byte
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.Provider, &sub.Product, &sub.Amount,
		&sub.Currency, &sub.StartDate, &sub.NextBilling, &sub.ExpiryDate,
		&sub.Status, &sub.Tag, &raw, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		var rd models.RawData
		if err := json.Unmarshal(raw, &rd); err == nil {
			sub.RawData = &rd
		}
	}
	return &sub, nil
}

func collectSubscriptions(rows pgx.Rows) ([]models.Subscription, error) {
	var subs []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func marshalRawData(rd *models.RawData) ([]byte, error) {
	if rd == nil {
		return nil, nil
	}
	raw, err := json.Marshal(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal raw data: %w", err)
	}
	return raw, nil
}
