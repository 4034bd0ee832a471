// Package notify delivers user-facing alerts: scan summaries, renewal
// reminders and bot replies. Callers never know the delivery channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subtrack/subtrack/internal/models"
	"github.com/subtrack/subtrack/internal/store"
)

// Notifier is the outbound alert contract.
type Notifier interface {
	// ScanSummary tells a user what a completed scan found.
	ScanSummary(ctx context.Context, user models.User, res store.MergeResult) error

	// RenewalReminder warns a user about an approaching billing date.
	RenewalReminder(ctx context.Context, user models.User, sub models.Subscription) error

	// Reply sends free-form text to a chat conversation.
	Reply(ctx context.Context, chatID, text string) error
}

// BotClient delivers notifications through the chat-bot gateway's HTTP API.
type BotClient struct {
	baseURL string
	client  *http.Client
}

func NewBotClient() *BotClient {
	baseURL := viper.GetString("bot.api_url")
	if baseURL == "" {
		baseURL = "http://localhost:9090"
	}

	return &BotClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (b *BotClient) ScanSummary(ctx context.Context, user models.User, res store.MergeResult) error {
	if user.ChatID == "" {
		return nil // user never linked the bot
	}
	return b.Reply(ctx, user.ChatID, FormatSummary(res))
}

func (b *BotClient) RenewalReminder(ctx context.Context, user models.User, sub models.Subscription) error {
	if user.ChatID == "" {
		return nil
	}
	return b.Reply(ctx, user.ChatID, FormatReminder(sub))
}

func (b *BotClient) Reply(ctx context.Context, chatID, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := b.baseURL + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// FormatSummary renders a merge result as a chat message.
func FormatSummary(res store.MergeResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scan finished: %d new, %d updated subscription(s).", res.Created, res.Updated)
	for _, sub := range res.Records {
		b.WriteString("\n• ")
		b.WriteString(describeSubscription(sub))
	}
	return b.String()
}

// FormatReminder renders an approaching-renewal warning.
func FormatReminder(sub models.Subscription) string {
	msg := fmt.Sprintf("Reminder: %s renews", sub.Provider)
	if sub.NextBilling != nil {
		msg += " on " + sub.NextBilling.Format("Jan 2, 2006")
	}
	if sub.Amount > 0 {
		msg += fmt.Sprintf(" for %s", formatMoney(sub.Amount, sub.Currency))
	}
	return msg + "."
}

func describeSubscription(sub models.Subscription) string {
	desc := sub.Provider
	if sub.Product != "" {
		desc += " (" + sub.Product + ")"
	}
	if sub.Amount > 0 {
		desc += " — " + formatMoney(sub.Amount, sub.Currency)
	}
	if sub.NextBilling != nil {
		desc += ", next billing " + sub.NextBilling.Format("Jan 2, 2006")
	}
	return desc
}

func formatMoney(amount float64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}

// LogNotifier writes notifications to the process log. Useful in development
// when no bot gateway is running.
type LogNotifier struct{}

func (LogNotifier) ScanSummary(_ context.Context, user models.User, res store.MergeResult) error {
	log.Printf("Scan summary for %s: %s", user.Email, FormatSummary(res))
	return nil
}

func (LogNotifier) RenewalReminder(_ context.Context, user models.User, sub models.Subscription) error {
	log.Printf("Reminder for %s: %s", user.Email, FormatReminder(sub))
	return nil
}

func (LogNotifier) Reply(_ context.Context, chatID, text string) error {
	log.Printf("Reply to chat %s: %s", chatID, text)
	return nil
}
