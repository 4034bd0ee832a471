package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/subtrack/subtrack/internal/models"
)

// PGUsers is the pgx-backed Users implementation.
type PGUsers struct {
	pool *pgxpool.Pool
}

func NewPGUsers(pool *pgxpool.Pool) *PGUsers {
	return &PGUsers{pool: pool}
}

const userColumns = `id, email, chat_id, last_scan_at, last_message_received`

func (u *PGUsers) Get(ctx context.Context, id uuid.UUID) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user models.User
	err := u.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.ChatID,
		&user.LastScanAt, &user.LastMessageReceived,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (u *PGUsers) List(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY email`

	rows, err := u.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.ID, &user.Email, &user.ChatID,
			&user.LastScanAt, &user.LastMessageReceived,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (u *PGUsers) FindByChatID(ctx context.Context, chatID string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE chat_id = $1`

	var user models.User
	err := u.pool.QueryRow(ctx, query, chatID).Scan(
		&user.ID, &user.Email, &user.ChatID,
		&user.LastScanAt, &user.LastMessageReceived,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to find user by chat id: %w", err)
	}
	return user, nil
}

func (u *PGUsers) BindChat(ctx context.Context, id uuid.UUID, chatID string) error {
	tag, err := u.pool.Exec(ctx,
		`UPDATE users SET chat_id = $1 WHERE id = $2`, chatID, id)
	if err != nil {
		return fmt.Errorf("failed to bind chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (u *PGUsers) TouchScan(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := u.pool.Exec(ctx,
		`UPDATE users SET last_scan_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last_scan_at: %w", err)
	}
	return nil
}

func (u *PGUsers) RecordReceived(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := u.pool.Exec(ctx,
		`UPDATE users
		SET last_message_received = $1
		WHERE id = $2
			AND (last_message_received IS NULL OR $1 > last_message_received)`,
		at, id)
	if err != nil {
		return fmt.Errorf("failed to update last_message_received: %w", err)
	}
	return nil
}
