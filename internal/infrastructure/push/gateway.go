package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NoticeHub/internal/domain"
	"NoticeHub/internal/ports"
)

// Gateway delivers payloads to named channels over the push relay's
// HTTP API. Broadcast channels are shared topics; per-user channels
// reach a single subscriber.
type Gateway struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ ports.NotificationGateway = (*Gateway)(nil)

// NewGateway registers the relay endpoint and its bearer token.
func NewGateway(baseURL, token string) *Gateway {
	return &Gateway{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// SendToChannel posts one payload to one channel. The caller decides
// what to do with a failure; this client never retries.
func (g *Gateway) SendToChannel(ctx context.Context, channelID string, payload domain.PushPayload) error {
	if g.baseURL == "" {
		return fmt.Errorf("push gateway misconfigured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/channels/%s/messages", g.baseURL, url.PathEscape(channelID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("push relay error: %s", resp.Status)
	}

	return nil
}
