package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"skimmer/internal/services"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	defaultTimeout = 10 * time.Second
	userAgent      = "skimmer/1.0"
)

// Sender is the delivery surface exposed to the dispatcher and chat handler.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Config captures the bot API settings.
type Config struct {
	BotToken       string
	BaseURL        string
	RequestTimeout int
}

// Client talks to the Telegram bot API.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

// NewClient constructs a bot API client from config.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(cfg.BotToken)
	if token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "telegram", "new client", "bot token required", nil)
	}
	timeout := defaultTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := &Client{
		token:   token,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendMessage delivers a Markdown-formatted message to a chat. Failures are
// classified: recipients that blocked the bot, deactivated their account, or
// whose chat no longer exists come back as permanent recipient failures;
// rate limits, server errors, and transport failures as transient ones.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(services.ErrValidation, "telegram", "send message", "empty message", nil)
	}

	payload := sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode send message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build send message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return services.Wrap(services.ErrTransient, "telegram", "send message", "read response", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return services.Wrap(services.ErrTransient, "telegram", "send message",
			fmt.Sprintf("decode response (http %d)", resp.StatusCode), err)
	}
	if parsed.OK {
		return nil
	}
	return classifyAPIError(parsed)
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTransient, "telegram", "send message", "request timeout", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return services.Wrap(services.ErrTransient, "telegram", "send message", "transport failure", err)
	}
	return services.Wrap(services.ErrTransient, "telegram", "send message", "request failed", err)
}

func classifyAPIError(parsed apiResponse) error {
	description := strings.ToLower(parsed.Description)
	switch {
	case parsed.ErrorCode == http.StatusForbidden &&
		(strings.Contains(description, "blocked") || strings.Contains(description, "deactivated")):
		return services.Wrap(services.ErrPermanentRecipient, "telegram", "send message", parsed.Description, nil)
	case parsed.ErrorCode == http.StatusBadRequest && strings.Contains(description, "chat not found"):
		return services.Wrap(services.ErrPermanentRecipient, "telegram", "send message", parsed.Description, nil)
	case parsed.ErrorCode == http.StatusTooManyRequests || parsed.ErrorCode >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, "telegram", "send message", parsed.Description, nil)
	default:
		return services.Wrap(services.ErrTransient, "telegram", "send message",
			fmt.Sprintf("api error %d: %s", parsed.ErrorCode, parsed.Description), nil)
	}
}
