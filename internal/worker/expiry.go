// Package worker runs the periodic background jobs around the subscription
// store: expiring passed subscriptions and reminding users about approaching
// renewals. The inference pipeline never touches status; these workers own
// the active → expired transition.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/subtrack/subtrack/internal/store"
)

const DefaultExpiryInterval = time.Hour

// Expiry flips active subscriptions whose billing or expiry date has passed
// to expired.
type Expiry struct {
	subs     store.Subscriptions
	interval time.Duration
}

func NewExpiry(subs store.Subscriptions, interval time.Duration) *Expiry {
	if interval <= 0 {
		interval = DefaultExpiryInterval
	}
	return &Expiry{subs: subs, interval: interval}
}

func (w *Expiry) Run(ctx context.Context) {
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

func (w *Expiry) sweep(ctx context.Context) {
	n, err := w.subs.ExpireOverdue(ctx, time.Now())
	if err != nil {
		log.Printf("Error expiring subscriptions: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Expired %d overdue subscription(s)", n)
	}
}
