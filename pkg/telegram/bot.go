// Package telegram sends operational alerts through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultAPIURL  = "https://api.telegram.org"
	defaultTimeout = 10 * time.Second
	// Telegram rejects longer messages.
	maxMessageLen = 4096
)

// Bot is the Telegram Bot API client.
type Bot struct {
	apiURL     string
	httpClient *http.Client
}

// NewBot creates a new Telegram Bot client with the given token.
func NewBot(token string) *Bot {
	return &Bot{
		apiURL:     fmt.Sprintf("%s/bot%s", defaultAPIURL, token),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SetAPIURL overrides the bot endpoint, token included. Used by tests.
func (b *Bot) SetAPIURL(url string) {
	b.apiURL = url
}

// SendMessage sends a plain text message to a chat.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen]
	}

	body, err := json.Marshal(SendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("telegram sendMessage API error %d: %s", resp.StatusCode, string(raw))
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("failed to decode sendMessage response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram sendMessage failed: %s", apiResp.Description)
	}
	return nil
}

// Alerter posts alerts to one chat.
type Alerter struct {
	bot    *Bot
	chatID int64
	prefix string
}

// NewAlerter returns an Alerter that prefixes every message with the service name.
func NewAlerter(bot *Bot, chatID int64, service string) *Alerter {
	return &Alerter{bot: bot, chatID: chatID, prefix: "[" + service + "] "}
}

func (a *Alerter) Alert(ctx context.Context, text string) error {
	return a.bot.SendMessage(ctx, a.chatID, a.prefix+text)
}
