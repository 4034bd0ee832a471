package worker

import (
	"context"
	"log"
	"time"

	"github.com/subtrack/subtrack/internal/notify"
	"github.com/subtrack/subtrack/internal/store"
)

const (
	DefaultReminderInterval = 24 * time.Hour
	DefaultReminderLead     = 3 * 24 * time.Hour
)

// Reminder warns users about renewals landing within the lead window.
type Reminder struct {
	subs     store.Subscriptions
	users    store.Users
	notifier notify.Notifier
	interval time.Duration
	lead     time.Duration
}

func NewReminder(subs store.Subscriptions, users store.Users, notifier notify.Notifier,
	interval, lead time.Duration) *Reminder {
	if interval <= 0 {
		interval = DefaultReminderInterval
	}
	if lead <= 0 {
		lead = DefaultReminderLead
	}
	return &Reminder{subs: subs, users: users, notifier: notifier, interval: interval, lead: lead}
}

func (w *Reminder) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Reminder) sweep(ctx context.Context) {
	now := time.Now()
	due, err := w.subs.ListDueBetween(ctx, now, now.Add(w.lead))
	if err != nil {
		log.Printf("Error listing due subscriptions: %v", err)
		return
	}

	for _, sub := range due {
		user, err := w.users.Get(ctx, sub.UserID)
		if err != nil {
			log.Printf("Error loading user %s for reminder: %v", sub.UserID, err)
			continue
		}
		if err := w.notifier.RenewalReminder(ctx, user, sub); err != nil {
			// One failed delivery must not starve the rest.
			log.Printf("Error sending reminder for %s/%s: %v", sub.UserID, sub.Provider, err)
		}
	}
}
