// Package stratz sends typed GraphQL queries to the remote hero statistics
// service and decodes the results.
package stratz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/herobot/pkg/logger"
	"github.com/okian/herobot/pkg/metrics"
)

const (
	defaultUserAgent = "herobot/1.0"
	maxResponseBytes = 8 << 20
	snippetBytes     = 256
)

var (
	errStatus = errors.New("unexpected status")
	errRemote = errors.New("remote error")
)

// Variables are bound into every query document.
type Variables struct {
	ID uint8 `json:"id"`
}

// Client posts queries to one endpoint with one bearer credential.
type Client struct {
	endpoint  string
	token     string
	userAgent string
	http      *http.Client
	logger    logger.Logger
	tracer    trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the transport. The client's Timeout is the only
// deadline applied besides the caller's context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer used for query spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a Client. Both endpoint and token are required.
func New(endpoint, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, ErrMissingEndpoint
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	c := &Client{
		endpoint:  endpoint,
		token:     token,
		userAgent: defaultUserAgent,
		http:      http.DefaultClient,
		logger:    logger.Nop(),
		tracer:    otel.Tracer("herobot/stratz"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type request struct {
	Query     string    `json:"query"`
	Variables Variables `json:"variables"`
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Execute sends q with vars and decodes the result. Every failure is a
// *QueryError.
func Execute[T any](ctx context.Context, c *Client, q Query[T], vars Variables) (T, error) {
	var zero T

	ctx, span := c.tracer.Start(ctx, "stratz.Execute",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("query.name", q.Name),
			attribute.Int("query.hero_id", int(vars.ID)),
		),
	)
	defer span.End()

	start := time.Now()
	data, qerr := c.post(ctx, q.Name, q.Document, vars)
	if qerr == nil {
		out, kind, err := q.decode(data)
		if err == nil {
			latency := time.Since(start)
			metrics.RecordQueryLatency(q.Name, float64(latency.Milliseconds()))
			span.SetAttributes(attribute.Int64("query.latency_ms", latency.Milliseconds()))
			c.logger.Debug(ctx, "query succeeded",
				logger.String("query", q.Name),
				logger.Uint8("hero_id", vars.ID),
				logger.Duration("took", latency),
			)
			return out, nil
		}
		qerr = queryError(q.Name, kind, 0, err)
	}

	metrics.RecordQueryLatency(q.Name, float64(time.Since(start).Milliseconds()))
	metrics.RecordQueryError(q.Name, string(qerr.Kind))
	span.RecordError(qerr)
	span.SetStatus(codes.Error, string(qerr.Kind))
	c.logger.Warn(ctx, "query failed",
		logger.String("query", q.Name),
		logger.Uint8("hero_id", vars.ID),
		logger.String("kind", string(qerr.Kind)),
		logger.Error(qerr.Err),
	)
	return zero, qerr
}

// post performs the HTTP exchange and returns the raw data member.
func (c *Client) post(ctx context.Context, name, document string, vars Variables) (json.RawMessage, *QueryError) {
	body, err := json.Marshal(request{Query: document, Variables: vars})
	if err != nil {
		return nil, queryError(name, KindDecode, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, queryError(name, KindTransport, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, queryError(name, KindTransport, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, queryError(name, KindTransport, resp.StatusCode, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, queryError(name, KindStatus, resp.StatusCode,
			fmt.Errorf("%w: %s: %s", errStatus, http.StatusText(resp.StatusCode), snippet(raw)))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, queryError(name, KindDecode, resp.StatusCode, err)
	}
	if len(env.Errors) > 0 {
		msgs := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, queryError(name, KindRemote, resp.StatusCode,
			fmt.Errorf("%w: %s", errRemote, strings.Join(msgs, "; ")))
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil, queryError(name, KindSchema, resp.StatusCode, ErrEmptyData)
	}
	return env.Data, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > snippetBytes {
		s = s[:snippetBytes] + "..."
	}
	return s
}
