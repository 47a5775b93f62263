// Package notify sends operator alerts about verification batches.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/footcast/models"
)

// maxErrorsShown caps the error lines in one alert
const maxErrorsShown = 10

// Sender is the part of the bot API used for alerts. *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts batch alerts to one chat
type Telegram struct {
	sender Sender
	chatID int64
	logger zerolog.Logger
}

// NewTelegram creates a bot from token and alerts chatID
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}
	return NewTelegramWithSender(bot, chatID), nil
}

// NewTelegramWithSender creates an alerter around an existing sender
func NewTelegramWithSender(sender Sender, chatID int64) *Telegram {
	return &Telegram{
		sender: sender,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notify").Logger(),
	}
}

// NeedsAlert reports whether a batch summary is worth an alert
func NeedsAlert(s models.VerificationSummary) bool {
	return s.HasErrors() || len(s.Unresolvable) > 0
}

// NotifySummary sends an alert when the batch had errors or unresolvable leagues.
// It returns whether a message was sent.
func (t *Telegram) NotifySummary(ctx context.Context, s models.VerificationSummary) (bool, error) {
	if !NeedsAlert(s) {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatSummary(s))
	if _, err := t.sender.Send(msg); err != nil {
		t.logger.Error().Err(err).Int64("chat_id", t.chatID).Msg("Failed to send alert")
		return false, fmt.Errorf("sending alert: %w", err)
	}
	t.logger.Info().Int("errors", len(s.Errors)).Msg("Alert sent")
	return true, nil
}

// FormatSummary renders a summary as a plain text message
func FormatSummary(s models.VerificationSummary) string {
	var sb strings.Builder

	sb.WriteString("⚠️ Verification batch needs attention\n\n")
	sb.WriteString(fmt.Sprintf("Processed: %d\n", s.Processed))
	sb.WriteString(fmt.Sprintf("Verified: %d\n", s.Verified))
	sb.WriteString(fmt.Sprintf("Not found: %d\n", s.NotFound))
	sb.WriteString(fmt.Sprintf("Skipped: %d\n", s.Skipped))
	if s.Pending > 0 {
		sb.WriteString(fmt.Sprintf("Not played yet: %d\n", s.Pending))
	}
	if !s.StartedAt.IsZero() && !s.FinishedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Took: %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Second)))
	}

	if len(s.Unresolvable) > 0 {
		sb.WriteString("\nUnknown leagues: " + strings.Join(s.Unresolvable, ", ") + "\n")
	}

	if len(s.Errors) > 0 {
		sb.WriteString(fmt.Sprintf("\nErrors (%d):\n", len(s.Errors)))
		for i, e := range s.Errors {
			if i == maxErrorsShown {
				sb.WriteString(fmt.Sprintf("... and %d more\n", len(s.Errors)-maxErrorsShown))
				break
			}
			sb.WriteString("• " + e + "\n")
		}
	}
	return sb.String()
}
