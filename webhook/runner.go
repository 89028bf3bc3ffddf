// Package webhook forwards chat messages to an external automation
// endpoint and translates whatever comes back into a displayable reply.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ailab/chat"
)

// DefaultTimeout bounds a single webhook invocation. Automation flows can
// be slow but a hung endpoint must not pin a turn forever.
const DefaultTimeout = 30 * time.Second

const emptyBodyAck = "Workflow triggered successfully."

// Target identifies the endpoint a message is delivered to.
type Target struct {
	URL    string
	APIKey string
}

// Runner posts messages to webhook targets. Requests carry the message as
// {"text": ...} and authenticate with an X-API-Key header. There are no
// retries; the caller decides whether to resend.
type Runner struct {
	client  *http.Client
	log     *slog.Logger
	timeout time.Duration
}

// NewRunner creates a webhook runner with the default timeout.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		client:  &http.Client{},
		log:     logger,
		timeout: DefaultTimeout,
	}
}

type payload struct {
	Text string `json:"text"`
}

// Run delivers message to the target and returns the reply text. Validation
// problems surface as *chat.ValidationError, endpoint failures as
// *chat.ProviderError, and deadline hits as *chat.TimeoutError.
func (r *Runner) Run(ctx context.Context, target Target, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", &chat.ValidationError{Reason: "webhook message must not be empty"}
	}
	if target.URL == "" {
		return "", &chat.ConfigurationError{Reason: "webhook URL is not configured"}
	}
	if target.APIKey == "" {
		return "", &chat.ConfigurationError{Reason: "webhook API key is not configured"}
	}
	if _, err := url.ParseRequestURI(target.URL); err != nil {
		return "", &chat.ValidationError{Reason: fmt.Sprintf("invalid webhook URL: %v", err)}
	}

	body, err := json.Marshal(payload{Text: message})
	if err != nil {
		return "", fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", target.APIKey)

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &chat.TimeoutError{Op: "webhook request", Err: err}
		}
		return "", &chat.ProviderError{
			Reason: fmt.Sprintf("webhook request failed: %v", err),
			Err:    err,
		}
	}
	defer resp.Body.Close()

	r.log.Debug("webhook responded",
		"status", resp.StatusCode,
		"elapsed", time.Since(start).Round(time.Millisecond))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", &chat.ProviderError{Reason: "webhook rejected the API key"}
	case resp.StatusCode == http.StatusNotFound:
		return "", &chat.ProviderError{Reason: "webhook endpoint not found"}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &chat.ProviderError{
			Reason: fmt.Sprintf("webhook returned status %d", resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &chat.ProviderError{
			Reason: fmt.Sprintf("failed to read webhook response: %v", err),
			Err:    err,
		}
	}

	return interpret(raw), nil
}

// interpret maps a webhook response body to display text. A JSON object
// with a "text" field yields that field; other valid JSON is pretty-printed
// so structured automation output stays readable; anything else passes
// through verbatim.
func interpret(raw []byte) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return emptyBodyAck
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if textRaw, ok := obj["text"]; ok {
			var text string
			if err := json.Unmarshal(textRaw, &text); err == nil {
				return text
			}
		}
	}

	if json.Valid(raw) {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, []byte(trimmed), "", "  "); err == nil {
			return pretty.String()
		}
	}

	return trimmed
}
