// Package scan schedules and runs inbox scans: it keeps one polling loop per
// user, funnels results into a single processor, and hands summaries to the
// notifier. Per-user loops also guarantee that merges for one user never run
// concurrently with each other.
package scan

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/subtrack/subtrack/internal/inference"
	"github.com/subtrack/subtrack/internal/mail"
	"github.com/subtrack/subtrack/internal/models"
	"github.com/subtrack/subtrack/internal/notify"
	"github.com/subtrack/subtrack/internal/store"
)

const (
	DefaultInterval = 30 * time.Minute
	DefaultLookback = 24 * time.Hour

	// Users refresh much more often than they scan; new signups should
	// not wait a full scan interval to be picked up.
	userRefreshInterval = time.Minute

	// Maximum stagger applied to a user's first scan, so all loops don't
	// hit the provider API at once.
	scanJitterMax = 5 * time.Minute
)

// Result is the outcome of one user scan.
type Result struct {
	User    models.User
	Scanned int // messages in the batch
	Merge   store.MergeResult
}

// Config holds the scan cadence knobs.
type Config struct {
	Interval time.Duration // time between scans per user
	Lookback time.Duration // how far back a first-ever scan reaches
}

type Service struct {
	mail     mail.Retriever
	subs     store.Subscriptions
	users    store.Users
	notifier notify.Notifier
	pipeline *inference.Pipeline

	interval time.Duration
	lookback time.Duration

	results     chan Result
	activeUsers sync.Map // map[uuid.UUID]*userScanLoop

	// WaitGroup tracking in-flight scan work, for graceful shutdown.
	processingWg sync.WaitGroup

	// Performance metrics
	scansRun        int64
	messagesScanned int64
	subsCreated     int64
	subsUpdated     int64
}

type userScanLoop struct {
	user   models.User
	cancel context.CancelFunc
}

func NewService(retriever mail.Retriever, subs store.Subscriptions, users store.Users,
	notifier notify.Notifier, pipeline *inference.Pipeline, cfg Config) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	return &Service{
		mail:     retriever,
		subs:     subs,
		users:    users,
		notifier: notifier,
		pipeline: pipeline,
		interval: cfg.Interval,
		lookback: cfg.Lookback,
		results:  make(chan Result), // unbuffered: natural backpressure
	}
}

// Run starts the user refresh loop, the metrics logger and the result
// processor. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	log.Printf("Starting scan service (interval %v, lookback %v)", s.interval, s.lookback)

	go s.userRefreshLoop(ctx)
	go s.logMetricsLoop(ctx)

	s.processResults(ctx)
	return nil
}

// Shutdown waits for in-flight scans to complete, up to the timeout.
// Returns true if everything drained in time.
func (s *Service) Shutdown(timeout time.Duration) bool {
	log.Printf("Shutting down scan service, waiting up to %v for scans to complete...", timeout)

	done := make(chan struct{})
	go func() {
		s.processingWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("All scans completed")
		return true
	case <-time.After(timeout):
		log.Printf("Shutdown timeout (%v) reached, some scans may still be in progress", timeout)
		return false
	}
}

// userRefreshLoop keeps the set of per-user scan loops in sync with the
// users table: new users get a loop, deleted users get theirs cancelled.
func (s *Service) userRefreshLoop(ctx context.Context) {
	ticker := time.NewTicker(userRefreshInterval)
	defer ticker.Stop()

	if err := s.refreshUsersOnce(ctx); err != nil {
		log.Printf("Error in initial user refresh: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			s.activeUsers.Range(func(_, value interface{}) bool {
				value.(*userScanLoop).cancel()
				return true
			})
			return
		case <-ticker.C:
			if err := s.refreshUsersOnce(ctx); err != nil {
				log.Printf("Error refreshing users: %v", err)
			}
		}
	}
}

func (s *Service) refreshUsersOnce(ctx context.Context) error {
	users, err := s.users.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	current := make(map[uuid.UUID]bool, len(users))
	for _, user := range users {
		current[user.ID] = true
		if _, exists := s.activeUsers.Load(user.ID); exists {
			continue
		}

		userCtx, cancel := context.WithCancel(ctx)
		s.activeUsers.Store(user.ID, &userScanLoop{user: user, cancel: cancel})
		go s.scanLoopForUser(userCtx, user)
		log.Printf("Started scan loop for user %s (%s)", user.Email, user.ID)
	}

	s.activeUsers.Range(func(key, value interface{}) bool {
		id := key.(uuid.UUID)
		if !current[id] {
			value.(*userScanLoop).cancel()
			s.activeUsers.Delete(id)
			log.Printf("Stopped scan loop for removed user %s", id)
		}
		return true
	})

	return nil
}

// scanLoopForUser scans one user's inbox on a fixed interval. The first scan
// is delayed by a deterministic per-user jitter so loops don't thunder-herd
// the provider API.
func (s *Service) scanLoopForUser(ctx context.Context, user models.User) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.initialDelay(user.ID)):
		s.runScan(ctx, user)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runScan(ctx, user)
		}
	}
}

// initialDelay derives a stable stagger for a user from their UUID: the same
// user always starts at the same offset, and offsets spread over the jitter
// window.
func (s *Service) initialDelay(userID uuid.UUID) time.Duration {
	seed := binary.BigEndian.Uint64(userID[:8])
	return time.Duration(seed % uint64(scanJitterMax.Nanoseconds()))
}

func (s *Service) runScan(ctx context.Context, user models.User) {
	s.processingWg.Add(1)
	defer s.processingWg.Done()

	res, err := s.scanOnce(ctx, user)
	if err != nil {
		log.Printf("Error scanning user %s: %v", user.ID, err)
		return
	}

	select {
	case s.results <- res:
	case <-ctx.Done():
	}
}

// ScanNow runs a single scan for one user synchronously. Used by the bot's
// scan command and the manual API trigger; it bypasses the results channel
// so the caller gets the outcome directly.
func (s *Service) ScanNow(ctx context.Context, userID uuid.UUID) (Result, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load user: %w", err)
	}

	s.processingWg.Add(1)
	defer s.processingWg.Done()

	return s.scanOnce(ctx, user)
}

func (s *Service) scanOnce(ctx context.Context, user models.User) (Result, error) {
	// Re-read the user for the freshest scan watermarks.
	fresh, err := s.users.Get(ctx, user.ID)
	if err != nil {
		log.Printf("Error getting fresh user data for %s: %v", user.ID, err)
		fresh = user
	}

	// Prefer the last message actually received over the last check time,
	// minus a second of slack against clock skew.
	var receivedAfter time.Time
	switch {
	case fresh.LastMessageReceived != nil:
		receivedAfter = fresh.LastMessageReceived.Add(-1 * time.Second)
	case fresh.LastScanAt != nil:
		receivedAfter = fresh.LastScanAt.Add(-1 * time.Second)
	default:
		receivedAfter = time.Now().Add(-s.lookback)
	}

	messages, err := s.mail.GetMessages(ctx, fresh.ID, receivedAfter)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch messages: %w", err)
	}

	candidates := s.pipeline.Parse(messages)
	merge := store.Merge(ctx, s.subs, fresh.ID, candidates)

	now := time.Now()
	if err := s.users.TouchScan(ctx, fresh.ID, now); err != nil {
		log.Printf("Error updating last_scan_at for %s: %v", fresh.ID, err)
	}
	if latest := latestSentDate(candidates); !latest.IsZero() {
		if err := s.users.RecordReceived(ctx, fresh.ID, latest); err != nil {
			log.Printf("Error updating last_message_received for %s: %v", fresh.ID, err)
		}
	}

	atomic.AddInt64(&s.scansRun, 1)
	atomic.AddInt64(&s.messagesScanned, int64(len(messages)))
	atomic.AddInt64(&s.subsCreated, int64(merge.Created))
	atomic.AddInt64(&s.subsUpdated, int64(merge.Updated))

	return Result{User: fresh, Scanned: len(messages), Merge: merge}, nil
}

func latestSentDate(candidates []models.Candidate) time.Time {
	var latest time.Time
	for _, c := range candidates {
		if c.Raw.SentDate.After(latest) {
			latest = c.Raw.SentDate
		}
	}
	return latest
}

// processResults consumes scan outcomes and notifies users. An empty scan is
// a valid outcome, not an alert.
func (s *Service) processResults(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-s.results:
			if res.Merge.Created == 0 && res.Merge.Updated == 0 {
				continue
			}
			if err := s.notifier.ScanSummary(ctx, res.User, res.Merge); err != nil {
				log.Printf("Error notifying user %s: %v", res.User.ID, err)
			}
		}
	}
}

// logMetricsLoop logs aggregate counters on a jittered interval to avoid
// synchronized log bursts.
func (s *Service) logMetricsLoop(ctx context.Context) {
	baseInterval := 30 * time.Second
	jitterRange := 10 * time.Second

	for {
		jitter := time.Duration(rand.Int63n(int64(jitterRange))) - jitterRange/2
		select {
		case <-ctx.Done():
			return
		case <-time.After(baseInterval + jitter):
			log.Printf("Metrics | Scans: %d | Messages: %d | Created: %d | Updated: %d",
				atomic.LoadInt64(&s.scansRun),
				atomic.LoadInt64(&s.messagesScanned),
				atomic.LoadInt64(&s.subsCreated),
				atomic.LoadInt64(&s.subsUpdated),
			)
		}
	}
}
