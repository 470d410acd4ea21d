package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Poster delivers digest chunks to a Discord-compatible webhook, one message
// per chunk, in order.
type Poster struct {
	WebhookURL string
	Client     *http.Client
}

// NewPoster builds a Poster with a sane default timeout.
func NewPoster(webhookURL string) *Poster {
	return &Poster{
		WebhookURL: webhookURL,
		Client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Post sends each chunk as a webhook message. Delivery stops at the first
// failure and returns how many chunks made it out.
func (p *Poster) Post(ctx context.Context, chunks []string) (int, error) {
	if p.WebhookURL == "" {
		return 0, fmt.Errorf("post webhook: empty webhook url")
	}
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	for i, chunk := range chunks {
		if err := p.postOne(ctx, client, chunk); err != nil {
			return i, fmt.Errorf("post webhook: chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return len(chunks), nil
}

func (p *Poster) postOne(ctx context.Context, client *http.Client, content string) error {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
