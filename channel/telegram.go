package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const telegramBaseURL = "https://api.telegram.org"

// TelegramChannel sends notifications through the Telegram Bot API
// using Markdown parse mode.
type TelegramChannel struct {
	botToken   string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// TelegramOption configures a TelegramChannel.
type TelegramOption func(*TelegramChannel)

// WithTelegramHTTPClient sets a custom HTTP client.
func WithTelegramHTTPClient(hc *http.Client) TelegramOption {
	return func(t *TelegramChannel) {
		t.httpClient = hc
	}
}

// WithTelegramBaseURL overrides the API base URL, used in tests.
func WithTelegramBaseURL(url string) TelegramOption {
	return func(t *TelegramChannel) {
		t.baseURL = url
	}
}

// WithTelegramLogger sets the logger.
func WithTelegramLogger(logger *slog.Logger) TelegramOption {
	return func(t *TelegramChannel) {
		t.logger = logger
	}
}

// NewTelegramChannel creates a channel backed by the given bot token.
func NewTelegramChannel(botToken string, opts ...TelegramOption) *TelegramChannel {
	t := &TelegramChannel{
		botToken: botToken,
		baseURL:  telegramBaseURL,
		// Timeout must exceed the 30s getUpdates long poll.
		httpClient: &http.Client{
			Timeout: 65 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Verify checks the bot token by calling getMe and returns the bot's
// username on success.
func (t *TelegramChannel) Verify(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/bot%s/getMe", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating getMe request: %w", err)
	}

	env, err := t.call(req)
	if err != nil {
		return "", err
	}

	var me struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(env.Result, &me); err != nil {
		return "", fmt.Errorf("parsing getMe result: %w", err)
	}

	t.logger.Info("telegram bot connected", "username", me.Username)

	return me.Username, nil
}

// Send delivers a message to the chat identified by msg.ChannelID. The
// channel ID must be a numeric Telegram chat ID.
func (t *TelegramChannel) Send(ctx context.Context, msg OutgoingMessage) error {
	chatID, err := strconv.ParseInt(msg.ChannelID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", msg.ChannelID, err)
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      msg.Content,
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("marshaling sendMessage request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := t.call(req); err != nil {
		return err
	}

	return nil
}

type telegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		From struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// Listen long-polls getUpdates and pushes user messages to sink until
// ctx is cancelled. "/start" is answered with a greeting and not
// forwarded. Poll errors back off for 5 seconds.
func (t *TelegramChannel) Listen(ctx context.Context, sink chan<- IncomingMessage) error {
	if _, err := t.Verify(ctx); err != nil {
		return err
	}

	var offset int64
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := t.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.logger.Warn("telegram poll failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil || u.Message.Text == "" {
				continue
			}

			chatID := strconv.FormatInt(u.Message.Chat.ID, 10)

			if strings.HasPrefix(u.Message.Text, "/start") {
				if err := t.Send(ctx, OutgoingMessage{
					ChannelID: chatID,
					Content:   "🔎 **LeadScout Online**\n\nDescribe a research task to get started!",
				}); err != nil {
					t.logger.Warn("greeting send failed", "error", err)
				}
				continue
			}

			msg := IncomingMessage{
				ChannelID:  chatID,
				UserID:     strconv.FormatInt(u.Message.From.ID, 10),
				Username:   u.Message.From.Username,
				Content:    u.Message.Text,
				ReceivedAt: time.Now(),
			}

			select {
			case sink <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// getUpdates fetches pending updates; timeout=30 makes it a long poll.
func (t *TelegramChannel) getUpdates(ctx context.Context, offset int64) ([]telegramUpdate, error) {
	url := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=30", t.baseURL, t.botToken, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating getUpdates request: %w", err)
	}

	env, err := t.call(req)
	if err != nil {
		return nil, err
	}

	var updates []telegramUpdate
	if err := json.Unmarshal(env.Result, &updates); err != nil {
		return nil, fmt.Errorf("parsing updates: %w", err)
	}

	return updates, nil
}

// call executes a Bot API request and checks the ok envelope field.
func (t *TelegramChannel) call(req *http.Request) (*apiEnvelope, error) {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, fmt.Errorf("reading telegram response: %w", err)
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parsing telegram response: %w", err)
	}
	if !env.OK {
		return nil, fmt.Errorf("telegram API error: %s", env.Description)
	}

	return &env, nil
}
