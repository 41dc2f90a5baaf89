package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"companion-server/services/chat-api/internal/domain/chat"
	"companion-server/services/chat-api/internal/infrastructure/observability"
)

// Client implements the chat.Engine interface over the reasoning
// engine's HTTP API. One client is constructed at startup and shared
// across requests; the engine is atomic per turn from this side.
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

// NewClient creates a Resty-backed client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 75 * time.Second
	}
	return &Client{
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(timeout),
		baseURL: strings.TrimSpace(baseURL),
	}
}

// Ready reports whether the client has an engine endpoint configured.
func (c *Client) Ready() bool {
	return c.baseURL != ""
}

// RunTurn calls the engine's /v1/turn endpoint with the normalized
// input and returns the aggregate turn result. The call honours the
// request context; a client disconnect cancels the round trip.
func (c *Client) RunTurn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResult, error) {
	ctx, span := observability.StartEngineSpan(ctx, req.UserID)
	defer span.End()

	var result chat.TurnResult
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/v1/turn")
	if err != nil {
		err = fmt.Errorf("engine request: %w", err)
		observability.RecordError(span, err)
		return nil, err
	}
	if resp.IsError() {
		err = fmt.Errorf("engine error: %d %s", resp.StatusCode(), resp.String())
		observability.RecordError(span, err)
		return nil, err
	}
	return &result, nil
}

// Ensure interface compliance.
var _ chat.Engine = (*Client)(nil)
