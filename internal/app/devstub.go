package app

import (
	"encoding/base64"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subtrack/subtrack/internal/models"
)

var devstubCmd = &cobra.Command{
	Use:   "devstub",
	Short: "Run a fake mail provider API",
	Long:  "Serves generated inboxes over the mail provider API for development/testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		stub := newMailStub()
		go stub.generatePeriodically()

		r := gin.Default()

		r.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		r.GET("/users/:userId/messages", stub.handleGetMessages)

		// Admin endpoint for testing
		r.POST("/admin/messages/generate", stub.handleGenerate)

		addr := fmt.Sprintf(":%s", viper.GetString("devstub.port"))
		log.Printf("Starting mail stub server on %s", addr)
		return http.ListenAndServe(addr, r)
	},
}

func init() {
	devstubCmd.Flags().String("devstub.port", "8080", "Mail stub listen port")
	viper.BindPFlag("devstub.port", devstubCmd.Flags().Lookup("devstub.port"))

	rootCmd.AddCommand(devstubCmd)
}

// billingTemplate is one fake charge email. Bodies go out base64url-encoded
// the way the real provider delivers them.
type billingTemplate struct {
	from    string
	subject string
	body    string
}

var billingTemplates = []billingTemplate{
	{
		from:    "Netflix <info@account.netflix.com>",
		subject: "Your Netflix payment",
		body:    "Your payment of $15.99 for plan: premium was processed. Thanks for being a member.",
	},
	{
		from:    "Spotify <no-reply@spotify.com>",
		subject: "Receipt for your Premium subscription",
		body:    "We charged $9.99 for your monthly subscription. Your next invoice arrives in a month.",
	},
	{
		from:    "DSTV <billing@dstv.com>",
		subject: "DSTV payment received",
		body:    "Payment received: ₦6,600 for your DSTV subscription renewal.",
	},
	{
		from:    "Newsletter <hello@example.com>",
		subject: "Weekly digest",
		body:    "Here is what happened this week. No charges, just news.",
	},
}

type storedMessage struct {
	message    models.RawMessage
	receivedAt time.Time
}

// mailStub keeps generated inboxes in memory, keyed by user.
type mailStub struct {
	mu      sync.RWMutex
	inboxes map[uuid.UUID][]storedMessage
}

func newMailStub() *mailStub {
	return &mailStub{inboxes: make(map[uuid.UUID][]storedMessage)}
}

// generatePeriodically drops 0-2 messages into every known inbox each minute.
// An inbox becomes known the first time it is read.
func (s *mailStub) generatePeriodically() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for userID := range s.inboxes {
			for i := 0; i < rand.Intn(3); i++ {
				s.inboxes[userID] = append(s.inboxes[userID], generateMessage(now))
			}
		}
		s.mu.Unlock()
	}
}

func generateMessage(now time.Time) storedMessage {
	return messageFromTemplate(billingTemplates[rand.Intn(len(billingTemplates))], now)
}

func messageFromTemplate(tpl billingTemplate, now time.Time) storedMessage {
	receivedAt := now.Add(-time.Duration(rand.Intn(60)) * time.Second)

	msg := models.RawMessage{
		ID:      uuid.NewString(),
		Snippet: tpl.subject,
		Payload: &models.MessagePayload{
			MimeType: "text/plain",
			Headers: []models.Header{
				{Name: "From", Value: tpl.from},
				{Name: "Subject", Value: tpl.subject},
				{Name: "Date", Value: receivedAt.Format(time.RFC1123Z)},
			},
			Body: &models.MessageBody{
				Data: base64.URLEncoding.EncodeToString([]byte(tpl.body)),
			},
		},
	}
	return storedMessage{message: msg, receivedAt: receivedAt}
}

func (s *mailStub) handleGetMessages(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	receivedAfter := time.Now().Add(-24 * time.Hour)
	if after := c.Query("receivedAfter"); after != "" {
		receivedAfter, err = time.Parse(time.RFC3339, after)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receivedAfter format (use RFC3339)"})
			return
		}
	}

	s.mu.Lock()
	inbox, known := s.inboxes[userID]
	if !known {
		// Seed a fresh inbox so the first scan finds something.
		for _, tpl := range billingTemplates {
			inbox = append(inbox, messageFromTemplate(tpl, time.Now()))
		}
		s.inboxes[userID] = inbox
	}
	s.mu.Unlock()

	messages := make([]models.RawMessage, 0)
	for _, stored := range inbox {
		if !stored.receivedAt.Before(receivedAfter) {
			messages = append(messages, stored.message)
		}
	}

	c.JSON(http.StatusOK, messages)
}

func (s *mailStub) handleGenerate(c *gin.Context) {
	s.mu.Lock()
	now := time.Now()
	total := 0
	for userID := range s.inboxes {
		s.inboxes[userID] = append(s.inboxes[userID], generateMessage(now))
		total++
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"generated": total})
}
