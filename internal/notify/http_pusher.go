package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stockroom/internal/domain"
)

// PushPath is the route a notification service exposes for delivering stored notifications.
const PushPath = "/api/notifications/push"

// HTTPPusher forwards notifications to a separate notification service,
// authenticated as the recipient.
type HTTPPusher struct {
	url    string
	client *http.Client
	mint   func(userID int64) (string, error)
}

func NewHTTPPusher(baseURL string, timeout time.Duration, mint func(userID int64) (string, error)) *HTTPPusher {
	return &HTTPPusher{
		url:    strings.TrimRight(baseURL, "/") + PushPath,
		client: &http.Client{Timeout: timeout},
		mint:   mint,
	}
}

func (p *HTTPPusher) Push(ctx context.Context, n *domain.Notification) error {
	tok, err := p.mint(n.UserID)
	if err != nil {
		return fmt.Errorf("mint push token: %w", err)
	}
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push %s: status %d", p.url, resp.StatusCode)
	}
	return nil
}
