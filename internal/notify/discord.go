package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured marks a sink without a webhook URL.
var ErrNotConfigured = errors.New("webhook URL is not configured")

// Field is one embed field.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Footer is an embed footer.
type Footer struct {
	Text string `json:"text"`
}

// Embed is a Discord message embed.
type Embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
	Footer      *Footer `json:"footer,omitempty"`
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []Embed `json:"embeds"`
}

// Client posts embeds to a Discord webhook. Callers decide whether a
// failure is swallowed (sales pings) or surfaced (commission intake).
type Client struct {
	url        string
	username   string
	httpClient *http.Client
}

// NewClient builds a webhook client. An empty URL yields a client whose
// Send fails with ErrNotConfigured.
func NewClient(webhookURL, username string) *Client {
	return &Client{
		url:      webhookURL,
		username: username,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Configured reports whether the sink has a destination.
func (c *Client) Configured() bool {
	return c.url != ""
}

// Send posts the embeds to the webhook.
func (c *Client) Send(ctx context.Context, embeds ...Embed) error {
	if c.url == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(webhookPayload{Username: c.username, Embeds: embeds})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
