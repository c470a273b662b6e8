// Package notify reports finished runs to a Telegram chat.
package notify

import (
	"context"
	"fmt"

	"catalog-scraper/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Telegram sends a short completion notice for every record set it is given.
// It implements persist.Sink.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *logrus.Entry
}

// NewTelegram connects to the Bot API with token
func NewTelegram(token string, chatID int64, logger *logrus.Entry) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, tgbotapi.APIEndpoint, chatID, logger)
}

// NewTelegramWithEndpoint connects to a Bot API served at endpoint, a format
// string taking the token and the method name
func NewTelegramWithEndpoint(token, endpoint string, chatID int64, logger *logrus.Entry) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	logger.WithField("bot", bot.Self.UserName).Debug("authorized telegram bot")
	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

// Message is the notice sent for a record set
func Message(name string, count int) string {
	return fmt.Sprintf("collected %d records for %s", count, name)
}

// Write implements persist.Sink
func (t *Telegram) Write(_ context.Context, name string, records []models.Record) error {
	msg := tgbotapi.NewMessage(t.chatID, Message(name, len(records)))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notice: %w", err)
	}
	t.logger.WithFields(logrus.Fields{"chat_id": t.chatID, "name": name}).Debug("sent telegram notice")
	return nil
}
