// Package api exposes the HTTP surface: health, subscription reads, manual
// scan triggers and the chat-bot webhook.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/subtrack/subtrack/internal/authstate"
	"github.com/subtrack/subtrack/internal/bot"
	"github.com/subtrack/subtrack/internal/store"
)

type Server struct {
	subs       store.Subscriptions
	users      store.Users
	scanner    bot.Scanner
	dispatcher *bot.Dispatcher
	states     authstate.Store
}

func NewServer(subs store.Subscriptions, users store.Users, scanner bot.Scanner, dispatcher *bot.Dispatcher, states authstate.Store) *Server {
	return &Server{subs: subs, users: users, scanner: scanner, dispatcher: dispatcher, states: states}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	users := r.Group("/users/:userId")
	{
		users.GET("/subscriptions", s.handleListSubscriptions)
		users.DELETE("/subscriptions/:provider", s.handleDeleteSubscription)
		users.POST("/scan", s.handleScan)
		users.POST("/link", s.handleLinkToken)
	}

	r.POST("/bot/webhook", s.handleBotWebhook)

	return r
}

func (s *Server) handleListSubscriptions(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	subs, err := s.subs.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, subs)
}

func (s *Server) handleDeleteSubscription(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	err = s.subs.Delete(c.Request.Context(), userID, c.Param("provider"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleScan(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	res, err := s.scanner.ScanNow(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scanned": res.Scanned,
		"created": res.Merge.Created,
		"updated": res.Merge.Updated,
		"failed":  res.Merge.Failed,
	})
}

// handleLinkToken issues a one-time token the user pastes into the chat bot
// to bind the conversation to their account.
func (s *Server) handleLinkToken(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	if _, err := s.users.Get(c.Request.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	token := uuid.NewString()
	if err := s.states.Put(c.Request.Context(), token, userID.String()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleBotWebhook(c *gin.Context) {
	var req struct {
		ChatID string `json:"chat_id"`
		Text   string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id and text are required"})
		return
	}

	reply := s.dispatcher.Handle(c.Request.Context(), req.ChatID, req.Text)
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
