package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client issues Bot API calls for one bot token.
type Client struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger

	endpoint   string
	httpClient *http.Client
	debug      bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithEndpoint sets the API URL template (token, method).
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithTimeout sets the HTTP client timeout. It must exceed the long-poll timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response dumps through the tgbotapi logger.
func WithDebug(debug bool) ClientOption {
	return func(c *Client) {
		c.debug = debug
	}
}

// New creates a client and verifies the token with getMe.
func New(token string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		logger:   slog.Default(),
		endpoint: tgbotapi.APIEndpoint,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, c.endpoint, c.httpClient)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	bot.Debug = c.debug
	c.bot = bot

	c.logger.Info("bot authorized",
		"bot_id", bot.Self.ID,
		"username", bot.Self.UserName,
	)

	return c, nil
}

// Self returns the bot's own user as reported by getMe.
func (c *Client) Self() tgbotapi.User {
	return c.bot.Self
}

type callResult struct {
	resp *tgbotapi.APIResponse
	err  error
}

// call performs one API method and decodes its result into out (if non-nil).
// MakeRequest has no context parameter, so the call runs in its own goroutine
// and is abandoned on cancellation; the HTTP client timeout bounds it.
func (c *Client) call(ctx context.Context, method string, params tgbotapi.Params, out any) error {
	done := make(chan callResult, 1)
	go func() {
		resp, err := c.bot.MakeRequest(method, params)
		done <- callResult{resp: resp, err: err}
	}()

	var res callResult
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		return fmt.Errorf("%s: %w", method, res.err)
	}
	if out == nil {
		return nil
	}
	if res.resp == nil || len(res.resp.Result) == 0 || string(res.resp.Result) == "null" {
		return fmt.Errorf("%s: %w", method, ErrEmptyResult)
	}
	if err := json.Unmarshal(res.resp.Result, out); err != nil {
		return fmt.Errorf("%s: unmarshal result: %w", method, err)
	}
	return nil
}
