// Package notify provides the outbound notification gateway: the narrow
// interface the reminder dispatcher and the discharge workflow deliver
// through, a Telegram Bot API implementation, and a recording test double.
package notify

import (
	"context"
	"fmt"
)

// Gateway is the delivery boundary for patient-facing messages. Any
// non-success is returned as an error; callers decide whether it is fatal
// (the reminder dispatcher logs and moves on, it never retries).
type Gateway interface {
	// DeliverMedicationReminder sends one medication dose reminder to the
	// recipient chat/channel.
	DeliverMedicationReminder(ctx context.Context, recipient, medicationName, dosage, whenLabel, notes string) error

	// DeliverFollowUpReminder sends one follow-up appointment reminder.
	DeliverFollowUpReminder(ctx context.Context, appointmentType, date, timeLabel, location, notes string) error

	// SendMessage sends a free-form message, used for schedule summaries and
	// discharge notifications.
	SendMessage(ctx context.Context, recipient, text string) error
}

// FormatMedicationReminder renders the HTML body of a medication reminder.
func FormatMedicationReminder(medicationName, dosage, whenLabel, notes string) string {
	msg := "💊 <b>Medication Reminder</b>\n\n" +
		fmt.Sprintf("<b>Medication:</b> %s\n", medicationName) +
		fmt.Sprintf("<b>Dosage:</b> %s\n", dosage) +
		fmt.Sprintf("<b>Time:</b> %s\n", whenLabel)
	if notes != "" {
		msg += fmt.Sprintf("\n📝 <b>Notes:</b> %s\n", notes)
	}
	msg += "\nPlease take your medication as prescribed."
	return msg
}

// FormatFollowUpReminder renders the HTML body of a follow-up appointment
// reminder.
func FormatFollowUpReminder(appointmentType, date, timeLabel, location, notes string) string {
	msg := "📅 <b>Appointment Reminder</b>\n\n" +
		fmt.Sprintf("<b>Type:</b> %s\n", appointmentType) +
		fmt.Sprintf("<b>Date:</b> %s\n", date) +
		fmt.Sprintf("<b>Time:</b> %s\n", timeLabel)
	if location != "" {
		msg += fmt.Sprintf("<b>Location:</b> %s\n", location)
	}
	if notes != "" {
		msg += fmt.Sprintf("\n📝 <b>Notes:</b> %s\n", notes)
	}
	msg += "\nPlease remember to attend your appointment."
	return msg
}
