package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogGateway writes deliveries to the log instead of an external channel.
// Used when no bot token is configured so the reminder dispatcher and the
// discharge workflow keep working in local setups.
type LogGateway struct {
	logger zerolog.Logger
}

func NewLogGateway(logger zerolog.Logger) *LogGateway {
	return &LogGateway{logger: logger.With().Str("component", "notify_log").Logger()}
}

func (g *LogGateway) DeliverMedicationReminder(_ context.Context, recipient, medicationName, dosage, whenLabel, notes string) error {
	g.logger.Info().
		Str("recipient", recipient).
		Str("medication", medicationName).
		Str("dosage", dosage).
		Str("when", whenLabel).
		Str("notes", notes).
		Msg("medication reminder (log only)")
	return nil
}

func (g *LogGateway) DeliverFollowUpReminder(_ context.Context, appointmentType, date, timeLabel, location, notes string) error {
	g.logger.Info().
		Str("type", appointmentType).
		Str("date", date).
		Str("time", timeLabel).
		Str("location", location).
		Str("notes", notes).
		Msg("follow-up reminder (log only)")
	return nil
}

func (g *LogGateway) SendMessage(_ context.Context, recipient, text string) error {
	g.logger.Info().
		Str("recipient", recipient).
		Int("length", len(text)).
		Msg("message (log only)")
	return nil
}
