package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"hypersense/internal/logger"
)

// Pusher mirrors entity states to an external consumer. Push must be safe
// to call repeatedly with the same unique id; Remove must tolerate ids the
// consumer has never seen.
type Pusher interface {
	Push(ctx context.Context, uniqueID, state string, attributes map[string]any) error
	Remove(ctx context.Context, uniqueID string) error
}

// NopPusher is used when no external consumer is configured.
type NopPusher struct{}

func (NopPusher) Push(context.Context, string, string, map[string]any) error { return nil }
func (NopPusher) Remove(context.Context, string) error                       { return nil }

// HomeAssistantPusher publishes entity states through the Home Assistant
// REST API: each entity becomes sensor.<unique_id>.
type HomeAssistantPusher struct {
	client *resty.Client
}

func NewHomeAssistantPusher(baseURL, token string, timeout time.Duration) *HomeAssistantPusher {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetAuthToken(token).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &HomeAssistantPusher{client: client}
}

// SetClient replaces the underlying client. Intended for tests.
func (p *HomeAssistantPusher) SetClient(client *resty.Client) {
	p.client = client
}

type statePayload struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (p *HomeAssistantPusher) Push(ctx context.Context, uniqueID, state string, attributes map[string]any) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(statePayload{State: state, Attributes: attributes}).
		Post(fmt.Sprintf("/api/states/sensor.%s", uniqueID))
	if err != nil {
		return fmt.Errorf("push state for %s: %w", uniqueID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("push state for %s: status %d: %s", uniqueID, resp.StatusCode(), resp.String())
	}
	return nil
}

func (p *HomeAssistantPusher) Remove(ctx context.Context, uniqueID string) error {
	resp, err := p.client.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/api/states/sensor.%s", uniqueID))
	if err != nil {
		return fmt.Errorf("remove state for %s: %w", uniqueID, err)
	}
	// 404 means the consumer never had this entity, which is fine for an
	// idempotent retirement
	if resp.IsError() && resp.StatusCode() != 404 {
		return fmt.Errorf("remove state for %s: status %d", uniqueID, resp.StatusCode())
	}
	if resp.StatusCode() == 404 {
		logger.Debugf("registry: remove %s: consumer had no such entity", uniqueID)
	}
	return nil
}
