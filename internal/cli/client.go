// Package cli implements the herobot command line client: a thin HTTP
// client for the API plus the cobra commands built on it.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/herobot/internal/domain/types"
)

const maxResponseBytes = 4 << 20

// ErrRequest wraps transport failures before a response arrives.
var ErrRequest = errors.New("request failed")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server answered %d", e.Status)
	}
	return fmt.Sprintf("server answered %d %s: %s", e.Status, e.Code, e.Message)
}

// Ack is the answer to a submitted command.
type Ack struct {
	CommandID string `json:"command_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// CommandRequest is the body of POST /commands.
type CommandRequest struct {
	CommandID string `json:"command_id,omitempty"`
	Name      string `json:"name"`
	Hero      string `json:"hero,omitempty"`
	HeroID    *int   `json:"hero_id,omitempty"`
}

// Client talks to a running herobot server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Search lists heroes matching q, best first.
func (c *Client) Search(ctx context.Context, q string, limit int) ([]types.Entity, error) {
	v := url.Values{"q": {q}}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Results []types.Entity `json:"results"`
	}
	err := c.do(ctx, http.MethodGet, "/heroes?"+v.Encode(), nil, &out)
	return out.Results, err
}

// Matchups fetches the ranked matchup lists for name.
func (c *Client) Matchups(ctx context.Context, name string) (types.MatchupReport, error) {
	var out types.MatchupReport
	err := c.do(ctx, http.MethodGet, heroPath(name, "matchups"), nil, &out)
	return out, err
}

// WinRate fetches the windowed win rate for name.
func (c *Client) WinRate(ctx context.Context, name string) (types.WinRateReport, error) {
	var out types.WinRateReport
	err := c.do(ctx, http.MethodGet, heroPath(name, "winrate"), nil, &out)
	return out, err
}

// HeroStats fetches static stats for name.
func (c *Client) HeroStats(ctx context.Context, name string) (types.HeroStatsReport, error) {
	var out types.HeroStatsReport
	err := c.do(ctx, http.MethodGet, heroPath(name, "stats"), nil, &out)
	return out, err
}

// HeroStatsByID fetches static stats for a raw hero id.
func (c *Client) HeroStatsByID(ctx context.Context, id uint8) (types.HeroStatsReport, error) {
	var out types.HeroStatsReport
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/heroes/id/%d/stats", id), nil, &out)
	return out, err
}

// Submit posts one command. Backpressure comes back as an *APIError with
// status 429.
func (c *Client) Submit(ctx context.Context, req CommandRequest) (Ack, error) {
	var out Ack
	err := c.do(ctx, http.MethodPost, "/commands", req, &out)
	return out, err
}

func heroPath(name, leaf string) string {
	return "/heroes/" + url.PathEscape(name) + "/" + leaf
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
