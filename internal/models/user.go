package models

import (
	"time"

	"github.com/google/uuid"
)

// User model for database. ChatID binds the user to their chat-bot
// conversation; empty means the user never linked the bot.
type User struct {
	ID                  uuid.UUID  `db:"id"`
	Email               string     `db:"email"`
	ChatID              string     `db:"chat_id"`
	LastScanAt          *time.Time `db:"last_scan_at"`
	LastMessageReceived *time.Time `db:"last_message_received"`
}
