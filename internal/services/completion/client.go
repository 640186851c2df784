package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/guild-helper-bot-go/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/sjson"
)

// ErrMissingAPIKey is returned when no credential is configured at call time
var ErrMissingAPIKey = errors.New("completion api key is not configured")

// StatusError is returned when the endpoint answers with a non-2xx status
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion endpoint returned status %d: %s", e.Code, e.Body)
}

// Completer sends a prompt to a completion endpoint and returns the raw body
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client posts templated requests to the configured completion endpoint
type Client struct {
	config     *config.CompletionConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a completion client. A zero timeout leaves the call
// unbounded.
func NewClient(cfg *config.CompletionConfig, logger *logrus.Logger) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Complete builds the request from the template file, sends it and returns
// the response body untouched. Failures are not retried.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	apiKey := c.config.APIKey
	if apiKey == "" {
		return "", ErrMissingAPIKey
	}

	body, err := c.buildRequest(prompt)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	c.logger.WithFields(logrus.Fields{
		"endpoint":   c.config.Endpoint,
		"prompt_len": len(prompt),
	}).Debug("Sending completion request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(raw),
		}).Error("Completion request failed")
		return "", &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	return string(raw), nil
}

// buildRequest reads the template fresh and places the prompt in it, either
// at the configured JSON path or in place of the placeholder substring.
func (c *Client) buildRequest(prompt string) ([]byte, error) {
	tmpl, err := os.ReadFile(c.config.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read request template: %w", err)
	}

	if c.config.PromptPath != "" {
		doc, err := sjson.Set(string(tmpl), c.config.PromptPath, prompt)
		if err != nil {
			return nil, fmt.Errorf("failed to set prompt at %s: %w", c.config.PromptPath, err)
		}
		return []byte(doc), nil
	}

	doc := string(tmpl)
	if !strings.Contains(doc, c.config.Placeholder) {
		return nil, fmt.Errorf("request template %s has no placeholder %q", c.config.TemplatePath, c.config.Placeholder)
	}
	return []byte(strings.Replace(doc, c.config.Placeholder, escapeJSONString(prompt), 1)), nil
}

// escapeJSONString escapes s for use inside a JSON string literal
func escapeJSONString(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}
