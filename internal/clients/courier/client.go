// Package courier is the outbound edge to the conversational transport that
// actually delivers messages to users. Delivery failures are reported, never
// retried indefinitely; cooldown bookkeeping happens upstream regardless.
package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mverrett/ascend-backend/internal/pkg/ctxutil"
	"github.com/mverrett/ascend-backend/internal/pkg/envutil"
	"github.com/mverrett/ascend-backend/internal/pkg/httpx"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
)

type Client interface {
	SendMessage(ctx context.Context, chatRef string, text string) error
}

type Config struct {
	BaseURL    string
	AuthToken  string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    strings.TrimSpace(os.Getenv("COURIER_BASE_URL")),
		AuthToken:  strings.TrimSpace(os.Getenv("COURIER_AUTH_TOKEN")),
		Timeout:    envutil.Seconds("COURIER_TIMEOUT_SECONDS", 10*time.Second),
		MaxRetries: envutil.Int("COURIER_MAX_RETRIES", 1),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing COURIER_BASE_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	// One bounded retry at most; the intervention record is written either
	// way, so aggressive retrying buys nothing.
	if cfg.MaxRetries < 0 || cfg.MaxRetries > 1 {
		cfg.MaxRetries = 1
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &client{
		log:        log.With("client", "CourierClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("courier http %d: %s", e.StatusCode, e.Body)
}

func (e *httpError) HTTPStatusCode() int { return e.StatusCode }

type sendRequest struct {
	ChatRef string `json:"chat_ref"`
	Text    string `json:"text"`
}

func (c *client) SendMessage(ctx context.Context, chatRef string, text string) error {
	ctx = ctxutil.Default(ctx)
	body, err := json.Marshal(sendRequest{ChatRef: chatRef, Text: text})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(httpx.JitterSleep(time.Second)):
			}
		}
		if err := c.sendOnce(ctx, body); err != nil {
			lastErr = err
			if !httpx.IsRetryableError(err) {
				break
			}
			continue
		}
		return nil
	}
	return lastErr
}

func (c *client) sendOnce(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &httpError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}
