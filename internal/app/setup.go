package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/subtrack/subtrack/internal/db"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Setup database and create a development user",
	Long:  "Creates database tables and inserts an initial user record for development/testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		// Initialize database
		if err := db.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		// Run migrations
		fmt.Println("Running migrations...")
		migrationSQL := `
			-- Users table
			CREATE TABLE IF NOT EXISTS users (
			    id UUID PRIMARY KEY,
			    email VARCHAR(255) NOT NULL UNIQUE,
			    chat_id VARCHAR(255) NOT NULL DEFAULT '',
			    last_scan_at TIMESTAMP WITH TIME ZONE,
			    last_message_received TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_users_chat_id ON users(chat_id);

			-- Subscriptions table (one row per user and provider)
			CREATE TABLE IF NOT EXISTS subscriptions (
			    id UUID PRIMARY KEY,
			    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			    provider VARCHAR(255) NOT NULL,
			    tag VARCHAR(64) NOT NULL DEFAULT '',
			    product VARCHAR(255) NOT NULL DEFAULT '',
			    amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			    currency VARCHAR(8) NOT NULL DEFAULT '',
			    status VARCHAR(16) NOT NULL DEFAULT 'active',
			    start_date TIMESTAMP WITH TIME ZONE,
			    next_billing TIMESTAMP WITH TIME ZONE,
			    expiry_date TIMESTAMP WITH TIME ZONE,
			    raw_data JSONB,
			    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
			    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
			    UNIQUE (user_id, provider)
			);

			CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id);
			CREATE INDEX IF NOT EXISTS idx_subscriptions_next_billing ON subscriptions(next_billing);
			CREATE INDEX IF NOT EXISTS idx_subscriptions_status ON subscriptions(status);
		`

		if _, err := db.Pool.Exec(ctx, migrationSQL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		// Insert development user
		fmt.Println("Inserting development user...")
		devUserID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
		insertUserSQL := `
			INSERT INTO users (id, email)
			VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email
		`

		if _, err := db.Pool.Exec(ctx, insertUserSQL, devUserID, "dev@example.com"); err != nil {
			return fmt.Errorf("failed to insert development user: %w", err)
		}

		fmt.Printf("✓ Database setup complete. Development user: %s (dev@example.com)\n", devUserID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
