// Package bot turns inbound chat messages into actions against a user's
// subscriptions and renders the replies. Delivery is the gateway's problem;
// the dispatcher only maps commands to store and scan operations.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/subtrack/subtrack/internal/authstate"
	"github.com/subtrack/subtrack/internal/models"
	"github.com/subtrack/subtrack/internal/notify"
	"github.com/subtrack/subtrack/internal/scan"
	"github.com/subtrack/subtrack/internal/store"
)

const helpText = `Commands:
link <token> — link this chat to your account
list — all tracked subscriptions
upcoming — renewals in the next 7 days
scan — scan your inbox now
remove <provider> — stop tracking a provider
help — this message`

// Scanner triggers an on-demand inbox scan.
type Scanner interface {
	ScanNow(ctx context.Context, userID uuid.UUID) (scan.Result, error)
}

type Dispatcher struct {
	subs    store.Subscriptions
	users   store.Users
	scanner Scanner
	states  authstate.Store

	upcomingWindow time.Duration
}

func NewDispatcher(subs store.Subscriptions, users store.Users, scanner Scanner, states authstate.Store) *Dispatcher {
	return &Dispatcher{
		subs:           subs,
		users:          users,
		scanner:        scanner,
		states:         states,
		upcomingWindow: 7 * 24 * time.Hour,
	}
}

// Handle executes one chat command and returns the reply text. Unknown chat
// IDs get a hint instead of an error: the webhook should never 500 on a
// stranger saying hello.
func (d *Dispatcher) Handle(ctx context.Context, chatID, text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return helpText
	}

	cmd := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	args := fields[1:]

	// Linking is the one command available before the chat is known.
	if cmd == "link" {
		return d.handleLink(ctx, chatID, args)
	}

	user, err := d.users.FindByChatID(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return "This chat isn't linked to an account yet. Send \"link <token>\" to connect it."
	}
	if err != nil {
		return "Something went wrong, please try again."
	}

	switch cmd {
	case "list":
		return d.handleList(ctx, user)
	case "upcoming":
		return d.handleUpcoming(ctx, user)
	case "scan":
		return d.handleScan(ctx, user)
	case "remove":
		return d.handleRemove(ctx, user, args)
	default:
		return helpText
	}
}

func (d *Dispatcher) handleLink(ctx context.Context, chatID string, args []string) string {
	if len(args) != 1 {
		return "Usage: link <token>"
	}
	value, ok, err := d.states.Take(ctx, args[0])
	if err != nil {
		return "Something went wrong, please try again."
	}
	if !ok {
		return "That link token is invalid or expired. Request a new one and try again."
	}
	userID, err := uuid.Parse(value)
	if err != nil {
		return "That link token is invalid or expired. Request a new one and try again."
	}
	if err := d.users.BindChat(ctx, userID, chatID); err != nil {
		return "Something went wrong, please try again."
	}
	return "Chat linked. Send \"help\" to see what I can do."
}

func (d *Dispatcher) handleList(ctx context.Context, user models.User) string {
	subs, err := d.subs.ListByUser(ctx, user.ID)
	if err != nil {
		return "Couldn't load your subscriptions, please try again."
	}
	if len(subs) == 0 {
		return "No subscriptions tracked yet. Send \"scan\" to check your inbox."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d subscription(s):", len(subs))
	for _, sub := range subs {
		b.WriteString("\n• ")
		b.WriteString(describeLine(sub))
	}
	return b.String()
}

func (d *Dispatcher) handleUpcoming(ctx context.Context, user models.User) string {
	subs, err := d.subs.ListByUser(ctx, user.ID)
	if err != nil {
		return "Couldn't load your subscriptions, please try again."
	}

	now := time.Now()
	cutoff := now.Add(d.upcomingWindow)
	var due []models.Subscription
	for _, sub := range subs {
		if sub.Status != models.StatusActive || sub.NextBilling == nil {
			continue
		}
		if sub.NextBilling.After(now) && sub.NextBilling.Before(cutoff) {
			due = append(due, sub)
		}
	}
	if len(due) == 0 {
		return "No renewals in the next 7 days."
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].NextBilling.Before(*due[j].NextBilling)
	})

	var b strings.Builder
	b.WriteString("Upcoming renewals:")
	for _, sub := range due {
		b.WriteString("\n• ")
		b.WriteString(describeLine(sub))
	}
	return b.String()
}

func (d *Dispatcher) handleScan(ctx context.Context, user models.User) string {
	res, err := d.scanner.ScanNow(ctx, user.ID)
	if err != nil {
		return "Scan failed, please try again later."
	}
	if res.Merge.Created == 0 && res.Merge.Updated == 0 {
		return fmt.Sprintf("Scanned %d message(s), nothing new found.", res.Scanned)
	}
	return notify.FormatSummary(res.Merge)
}

func (d *Dispatcher) handleRemove(ctx context.Context, user models.User, args []string) string {
	if len(args) == 0 {
		return "Usage: remove <provider>"
	}
	provider := strings.Join(args, " ")

	// Providers are stored by display name; match case-insensitively so
	// "remove netflix" works.
	subs, err := d.subs.ListByUser(ctx, user.ID)
	if err != nil {
		return "Couldn't load your subscriptions, please try again."
	}
	for _, sub := range subs {
		if strings.EqualFold(sub.Provider, provider) {
			if err := d.subs.Delete(ctx, user.ID, sub.Provider); err != nil {
				return "Couldn't remove it, please try again."
			}
			return fmt.Sprintf("Stopped tracking %s.", sub.Provider)
		}
	}
	return fmt.Sprintf("No tracked subscription for %q.", provider)
}

func describeLine(sub models.Subscription) string {
	line := sub.Provider
	if sub.Amount > 0 {
		line += fmt.Sprintf(" — %.2f %s", sub.Amount, sub.Currency)
	}
	if sub.NextBilling != nil {
		line += ", renews " + sub.NextBilling.Format("Jan 2")
	}
	if sub.Status == models.StatusExpired {
		line += " (expired)"
	}
	return line
}
