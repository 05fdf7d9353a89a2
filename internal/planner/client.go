// Package planner talks to the external trip-planning assistant. The
// assistant lives behind an opaque webhook: a bare JSON POST with no
// authentication header, no retry, and a response shape that is not
// contractually fixed (see ParseResponse).
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

// Client issues requests against the trip-planning webhook.
type Client struct {
	webhookURL string
	httpClient *http.Client
}

// NewClient creates a planner client for the given webhook URL. If
// httpClient is nil, http.DefaultClient is used. No timeout is enforced at
// this layer; callers bound the request through the context.
func NewClient(webhookURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

// planRequest is the webhook payload. Message is omitted on the initial
// request for a new route.
type planRequest struct {
	Message       string `json:"message,omitempty"`
	StartingPoint string `json:"startingPoint"`
	Destination   string `json:"destination"`
}

// RequestPlan issues the initial request for a route that has no history
// yet, returning the raw response body.
func (c *Client) RequestPlan(ctx context.Context, startingPoint, destination string) ([]byte, error) {
	return c.post(ctx, planRequest{
		StartingPoint: startingPoint,
		Destination:   destination,
	})
}

// SendMessage forwards one user turn to the webhook, returning the raw
// response body.
func (c *Client) SendMessage(ctx context.Context, message, startingPoint, destination string) ([]byte, error) {
	return c.post(ctx, planRequest{
		Message:       message,
		StartingPoint: startingPoint,
		Destination:   destination,
	})
}

func (c *Client) post(ctx context.Context, payload planRequest) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("ERROR [Planner] webhook returned status %d", resp.StatusCode)
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return raw, nil
}
