// Package hyperliquid wraps the read-only Hyperliquid info API
// (POST {base}/info with a type-discriminated JSON body). The client issues
// exactly one request per call: retry is the polling coordinator's job, one
// whole cycle at a time. A per-request-type circuit breaker refuses calls to
// an endpoint that keeps failing until its cooldown elapses, so one flapping
// endpoint degrades its own sub-domain instead of burning rate budget.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"hypersense/internal/model"
	"hypersense/internal/pkg/circuit"
)

const (
	DefaultBaseURL = "https://api.hyperliquid.xyz"

	breakerThreshold = 3
	breakerCooldown  = 2 * time.Minute
)

// Config holds client construction options.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu       sync.Mutex
	breakers map[string]*circuit.Breaker
}

// NewClient constructs an info-API client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid api base url: %s", raw)
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
		breakers:   make(map[string]*circuit.Breaker),
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) breaker(requestType string) *circuit.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	br, ok := c.breakers[requestType]
	if !ok {
		br = circuit.NewBreaker("info/"+requestType, breakerThreshold, breakerCooldown)
		c.breakers[requestType] = br
	}
	return br
}

// post issues one POST /info call and returns the raw response body.
func (c *Client) post(ctx context.Context, requestType string, params map[string]any) ([]byte, error) {
	br := c.breaker(requestType)
	if !br.Allow() {
		return nil, fmt.Errorf("%s: %w", requestType, model.ErrCircuitOpen)
	}

	reqBody := map[string]any{"type": requestType}
	for k, v := range params {
		reqBody[k] = v
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", requestType, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String()+"/info", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", requestType, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		br.RecordFailure()
		return nil, fmt.Errorf("%s: %w", requestType, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		br.RecordFailure()
		return nil, fmt.Errorf("%s: read response: %w", requestType, err)
	}
	if resp.StatusCode != http.StatusOK {
		br.RecordFailure()
		return nil, fmt.Errorf("%s: unexpected status %s", requestType, resp.Status)
	}
	br.RecordSuccess()
	return body, nil
}

func (c *Client) postInto(ctx context.Context, requestType string, params map[string]any, out any) error {
	body, err := c.post(ctx, requestType, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return model.NewSchemaError(domainFor(requestType), err.Error(), body)
	}
	return nil
}

func domainFor(requestType string) model.Domain {
	switch requestType {
	case "clearinghouseState":
		return model.DomainAccount
	case "userVaultEquities", "vaultDetails":
		return model.DomainVaults
	case "portfolio":
		return model.DomainPortfolio
	case "userFillsByTime":
		return model.DomainTrades
	case "userFunding":
		return model.DomainFunding
	case "frontendOpenOrders":
		return model.DomainOrders
	case "referral":
		return model.DomainReferral
	default:
		return model.Domain(requestType)
	}
}

// UserState returns the perpetuals clearinghouse state: margin summary,
// withdrawable balance and open positions.
func (c *Client) UserState(ctx context.Context, wallet string) (ClearinghouseState, error) {
	var state ClearinghouseState
	err := c.postInto(ctx, "clearinghouseState", map[string]any{"user": wallet}, &state)
	return state, err
}

// UserFillsByTime returns fills in [startMs, endMs].
func (c *Client) UserFillsByTime(ctx context.Context, wallet string, startMs, endMs int64) ([]Fill, error) {
	var fills []Fill
	params := map[string]any{"user": wallet, "startTime": startMs, "endTime": endMs}
	if err := c.postInto(ctx, "userFillsByTime", params, &fills); err != nil {
		return nil, err
	}
	return fills, nil
}

// UserFunding returns funding ledger entries since startMs.
func (c *Client) UserFunding(ctx context.Context, wallet string, startMs int64) ([]FundingLedgerEntry, error) {
	var entries []FundingLedgerEntry
	params := map[string]any{"user": wallet, "startTime": startMs}
	if err := c.postInto(ctx, "userFunding", params, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// OpenOrders returns the wallet's resting orders, frontend flavor (includes
// trigger metadata).
func (c *Client) OpenOrders(ctx context.Context, wallet string) ([]OpenOrderPayload, error) {
	var orders []OpenOrderPayload
	if err := c.postInto(ctx, "frontendOpenOrders", map[string]any{"user": wallet}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// VaultEquities returns the wallet's vault deposits.
func (c *Client) VaultEquities(ctx context.Context, wallet string) ([]VaultEquity, error) {
	var vaults []VaultEquity
	if err := c.postInto(ctx, "userVaultEquities", map[string]any{"user": wallet}, &vaults); err != nil {
		return nil, err
	}
	return vaults, nil
}
