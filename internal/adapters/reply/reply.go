// Package reply delivers command replies to the chat platform.
package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/okian/herobot/internal/domain/model"
	"github.com/okian/herobot/pkg/logger"
	"github.com/okian/herobot/pkg/metrics"
)

// MaxMessageLength is the longest chat message the platform accepts.
const MaxMessageLength = 2000

const truncationMarker = "..."

// Sentinel errors.
var (
	ErrMissingURL = errors.New("webhook url is required")
	ErrDelivery   = errors.New("reply delivery failed")
)

// Replier delivers reply text for a command.
type Replier interface {
	Reply(ctx context.Context, cmd model.Command, text string) error
}

// Truncate shortens text to at most limit runes, marking the cut.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	keep := limit - len(truncationMarker)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(text)
	return string(runes[:keep]) + truncationMarker
}

// WebhookReplier posts replies as {"content": text} to a chat webhook.
type WebhookReplier struct {
	url    string
	http   *http.Client
	logger logger.Logger
}

// WebhookOption configures a WebhookReplier.
type WebhookOption func(*WebhookReplier)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) WebhookOption {
	return func(r *WebhookReplier) {
		if hc != nil {
			r.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) WebhookOption {
	return func(r *WebhookReplier) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewWebhookReplier creates a replier for url.
func NewWebhookReplier(url string, opts ...WebhookOption) (*WebhookReplier, error) {
	if strings.TrimSpace(url) == "" {
		return nil, ErrMissingURL
	}
	r := &WebhookReplier{url: url, http: http.DefaultClient, logger: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type webhookMessage struct {
	Content string `json:"content"`
}

// Reply posts text, truncated to MaxMessageLength.
func (r *WebhookReplier) Reply(ctx context.Context, cmd model.Command, text string) error {
	body, err := json.Marshal(webhookMessage{Content: Truncate(text, MaxMessageLength)})
	if err != nil {
		return r.fail(ctx, cmd, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return r.fail(ctx, cmd, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return r.fail(ctx, cmd, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return r.fail(ctx, cmd, fmt.Errorf("status %d", resp.StatusCode))
	}

	metrics.RecordReply("webhook", "ok")
	return nil
}

func (r *WebhookReplier) fail(ctx context.Context, cmd model.Command, err error) error {
	metrics.RecordReply("webhook", "error")
	r.logger.Warn(ctx, "webhook reply failed",
		logger.String("command_id", cmd.ID),
		logger.Error(err),
	)
	return fmt.Errorf("%w: %w", ErrDelivery, err)
}

// LogReplier writes replies to the log. Used when no webhook is configured.
type LogReplier struct {
	logger logger.Logger
}

// NewLogReplier creates a LogReplier.
func NewLogReplier(l logger.Logger) *LogReplier {
	if l == nil {
		l = logger.Nop()
	}
	return &LogReplier{logger: l}
}

// Reply logs text at info level.
func (r *LogReplier) Reply(ctx context.Context, cmd model.Command, text string) error {
	r.logger.Info(ctx, "reply",
		logger.String("command_id", cmd.ID),
		logger.String("command", cmd.Name),
		logger.String("text", Truncate(text, MaxMessageLength)),
	)
	metrics.RecordReply("log", "ok")
	return nil
}
