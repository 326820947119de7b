package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"growth-engine/internal/models"
	"growth-engine/pkg/logger"
)

// Telegram posts operator alerts to one admin chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *logger.Logger
}

func NewTelegram(token string, chatID int64, logger *logger.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newTelegram(bot, chatID, logger), nil
}

// NewTelegramWithEndpoint talks to a custom Bot API endpoint, in the
// tgbotapi.APIEndpoint format.
func NewTelegramWithEndpoint(token, endpoint string, chatID int64, logger *logger.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newTelegram(bot, chatID, logger), nil
}

func newTelegram(bot *tgbotapi.BotAPI, chatID int64, logger *logger.Logger) *Telegram {
	logger.Infow("Authorized on Telegram", "username", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: chatID, logger: logger}
}

func (t *Telegram) Welcome(ctx context.Context, p *models.Profile) error {
	return t.send(ctx, fmt.Sprintf("New user onboarded: %s (%s)", p.ID, orDash(p.Email)))
}

// DayCompleted is not worth an operator alert.
func (t *Telegram) DayCompleted(context.Context, *models.Profile, int) error {
	return nil
}

func (t *Telegram) Upgraded(ctx context.Context, p *models.Profile) error {
	return t.send(ctx, fmt.Sprintf("💰 PRO upgrade: %s (%s)", p.ID, orDash(p.Email)))
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram alert: %w", err)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
