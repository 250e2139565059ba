package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
)

// TelegramGateway delivers notifications through the Telegram Bot API.
type TelegramGateway struct {
	bot              *bot.Bot
	defaultRecipient string
	logger           zerolog.Logger
}

// NewTelegramGateway creates a gateway for the given bot token.
// defaultRecipient is the chat id used when a delivery has no explicit
// recipient (e.g. the summary broadcast).
func NewTelegramGateway(token, defaultRecipient string, logger zerolog.Logger) (*TelegramGateway, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram gateway: bot token is required")
	}
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("telegram gateway: %w", err)
	}
	return &TelegramGateway{
		bot:              b,
		defaultRecipient: defaultRecipient,
		logger:           logger.With().Str("component", "telegram-gateway").Logger(),
	}, nil
}

// DeliverMedicationReminder implements Gateway.
func (g *TelegramGateway) DeliverMedicationReminder(ctx context.Context, recipient, medicationName, dosage, whenLabel, notes string) error {
	return g.SendMessage(ctx, recipient, FormatMedicationReminder(medicationName, dosage, whenLabel, notes))
}

// DeliverFollowUpReminder implements Gateway.
func (g *TelegramGateway) DeliverFollowUpReminder(ctx context.Context, appointmentType, date, timeLabel, location, notes string) error {
	return g.SendMessage(ctx, g.defaultRecipient, FormatFollowUpReminder(appointmentType, date, timeLabel, location, notes))
}

// SendMessage implements Gateway.
func (g *TelegramGateway) SendMessage(ctx context.Context, recipient, text string) error {
	if recipient == "" {
		recipient = g.defaultRecipient
	}
	if recipient == "" {
		return fmt.Errorf("telegram gateway: no recipient configured")
	}

	_, err := g.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    recipient,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("telegram send to %s: %w", recipient, err)
	}
	g.logger.Debug().Str("recipient", recipient).Msg("message delivered")
	return nil
}
