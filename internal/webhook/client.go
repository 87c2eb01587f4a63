// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dotandev/scalewatch/internal/logger"
)

// WebhookType defines the supported webhook platforms
type WebhookType string

const (
	SlackWebhook   WebhookType = "slack"
	DiscordWebhook WebhookType = "discord"
)

// Config represents webhook configuration
type Config struct {
	Type    WebhookType
	URL     string
	Timeout time.Duration
	Retries int

	// InitialBackoff is the first retry delay; it doubles on each attempt.
	InitialBackoff time.Duration
}

// Client handles webhook delivery
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new webhook client with validation
func NewClient(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("webhook URL cannot be empty")
	}

	u, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid webhook URL scheme %q", u.Scheme)
	}

	switch config.Type {
	case SlackWebhook, DiscordWebhook:
	default:
		return nil, fmt.Errorf("unsupported webhook type: %s", config.Type)
	}

	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Retries < 0 {
		config.Retries = 3
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Type returns the platform the client posts to.
func (c *Client) Type() WebhookType {
	return c.config.Type
}

// Send delivers the alert, retrying with exponential backoff.
func (c *Client) Send(ctx context.Context, alert Alert) error {
	var payload interface{}
	switch c.config.Type {
	case SlackWebhook:
		payload = FormatSlackMessage(alert)
	case DiscordWebhook:
		payload = FormatDiscordMessage(alert)
	default:
		return fmt.Errorf("unsupported webhook type: %s", c.config.Type)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}
	return c.sendWithRetry(ctx, body)
}

func (c *Client) sendWithRetry(ctx context.Context, body []byte) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.config.InitialBackoff
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.Reset()
	var policy backoff.BackOff = backoff.WithContext(
		backoff.WithMaxRetries(eb, uint64(c.config.Retries)), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := c.sendRequest(ctx, body)
		if err != nil {
			logger.Logger.Warn("Webhook send failed", "type", c.config.Type, "attempt", attempt, "error", err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		logger.Logger.Debug("Retrying webhook send", "attempt", attempt+1, "backoff", wait.String())
	})
	if err != nil {
		return fmt.Errorf("webhook delivery failed after %d attempts: %w", attempt, err)
	}
	return nil
}

func (c *Client) sendRequest(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create webhook request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "scalewatch/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
		// Client errors other than rate limiting will not succeed on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	logger.Logger.Debug("Webhook sent successfully", "type", c.config.Type, "status", resp.StatusCode)
	return nil
}
