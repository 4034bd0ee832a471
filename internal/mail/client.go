// Package mail fetches raw message batches from the mail provider API. The
// provider side owns search-query construction, pagination and quota
// handling; by the time a batch lands here it is bounded and deduplicated by
// message identifier.
package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/subtrack/subtrack/internal/models"
)

// Retriever supplies one user's message batch since a given instant.
type Retriever interface {
	GetMessages(ctx context.Context, userID uuid.UUID, receivedAfter time.Time) ([]models.RawMessage, error)
}

// Client is the HTTP Retriever implementation.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a mail API client from configuration.
func NewClient() *Client {
	baseURL := viper.GetString("mail.api_url")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetMessages implements Retriever against the provider API.
func (c *Client) GetMessages(ctx context.Context, userID uuid.UUID, receivedAfter time.Time) ([]models.RawMessage, error) {
	url := fmt.Sprintf("%s/users/%s/messages", c.baseURL, userID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("receivedAfter", receivedAfter.Format(time.RFC3339))
	req.URL.RawQuery = q.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var messages []models.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return messages, nil
}
