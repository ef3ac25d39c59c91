package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Client is the shared HTTP transport adapters build on. It enforces the
// 2-second call deadline, maps status codes onto the error taxonomy, and
// self-disables through a circuit breaker when credentials are rejected.
type Client struct {
	provider string
	base     string
	apiKey   string
	header   string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
}

// AuthCooldown is how long a provider stays disabled after an AUTH failure
const AuthCooldown = 5 * time.Minute

// NewClient creates a transport for one provider. header names the request
// header the API key is sent in; empty means no auth.
func NewClient(provider, baseURL, apiKey, header string) *Client {
	st := gobreaker.Settings{
		Name:    provider,
		Timeout: AuthCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	}
	return &Client{
		provider: provider,
		base:     baseURL,
		apiKey:   apiKey,
		header:   header,
		http:     &http.Client{Timeout: CallTimeout},
		breaker:  gobreaker.NewCircuitBreaker(st),
	}
}

// GetJSON fetches path and decodes the body into out
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// PostJSON sends body as JSON to path and decodes the response into out
func (c *Client) PostJSON(ctx context.Context, path string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return NewError(c.provider, ErrMalformed, "encode request", err)
	}
	return c.doJSON(ctx, http.MethodPost, path, raw, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out interface{}) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return NewError(c.provider, ErrAuth, "disabled after credential rejection", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return NewError(c.provider, ErrTransient, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" && c.header != "" {
		req.Header.Set(c.header, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return NewError(c.provider, ErrTransient, "call deadline exceeded", ctx.Err())
		}
		return NewError(c.provider, ErrTransient, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewError(c.provider, ErrRateLimited, "source returned 429", nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Trip the breaker so subsequent calls fail fast until the cooldown
		_, _ = c.breaker.Execute(func() (interface{}, error) {
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		})
		log.Error().Str("provider", c.provider).Int("status", resp.StatusCode).
			Bool("alert", true).Msg("credentials rejected, provider disabled")
		return NewError(c.provider, ErrAuth, "credentials rejected", nil)
	case resp.StatusCode == http.StatusNotFound:
		return NewError(c.provider, ErrNotFound, "source reports not found", nil)
	case resp.StatusCode >= 500:
		return NewError(c.provider, ErrTransient, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return NewError(c.provider, ErrMalformed, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return NewError(c.provider, ErrTransient, "read body", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return NewError(c.provider, ErrMalformed, "decode body", err)
	}
	return nil
}
