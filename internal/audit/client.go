// Package audit ships operator actions to an external log service. Every
// call is best effort: failures are logged and never reach the caller.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"signalfeed/internal/config"
)

const defaultAgent = "signalfeed"

// Sink records one audit entry.
type Sink interface {
	Record(ctx context.Context, action, level string, details map[string]any)
}

type Client struct {
	apiKey  string
	agent   string
	timeout time.Duration
	logger  *zap.Logger
	http    *resty.Client

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// New returns nil when no base URL is configured.
func New(cfg config.AuditConfig, logger *zap.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		agent:   defaultAgent,
		timeout: timeout,
		logger:  logger,
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

func (c *Client) Login(ctx context.Context) error {
	if c.apiKey == "" {
		return errors.New("audit api key is empty")
	}
	var lr loginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"api_key": c.apiKey}).
		SetResult(&lr).
		Post("/api/v1/auth/login")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("audit login http %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	exp, _ := time.Parse(time.RFC3339, strings.TrimSpace(lr.ExpiresAt))

	c.mu.Lock()
	c.token = strings.TrimSpace(lr.Token)
	c.expiresAt = exp
	c.mu.Unlock()
	return nil
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) EnsureToken(ctx context.Context) error {
	c.mu.RLock()
	tok := c.token
	exp := c.expiresAt
	c.mu.RUnlock()
	if strings.TrimSpace(tok) == "" {
		return c.Login(ctx)
	}
	if !exp.IsZero() && time.Until(exp) < 2*time.Minute {
		return c.Login(ctx)
	}
	return nil
}

type CreateLogRequest struct {
	Agent      string         `json:"agent"`
	Action     string         `json:"action"`
	Level      string         `json:"level"`
	Details    map[string]any `json:"details"`
	SessionKey string         `json:"session_key"`
	Metadata   map[string]any `json:"metadata"`
}

func (c *Client) CreateLog(ctx context.Context, req CreateLogRequest) error {
	if err := c.EnsureToken(ctx); err != nil {
		return err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.Token()).
		SetBody(req).
		Post("/api/v1/logs")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("audit create log http %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// Record sends one entry with its own timeout, detached from ctx cancellation.
func (c *Client) Record(ctx context.Context, action, level string, details map[string]any) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx2, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	err := c.CreateLog(ctx2, CreateLogRequest{
		Agent:    c.agent,
		Action:   action,
		Level:    level,
		Details:  details,
		Metadata: map[string]any{},
	})
	if err != nil {
		c.logger.Debug("audit log failed", zap.String("action", action), zap.Error(err))
	}
}
