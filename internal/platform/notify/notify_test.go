package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestFormatMedicationReminder(t *testing.T) {
	msg := FormatMedicationReminder("Lisinopril", "10mg", "8:00 AM", "take with food")
	for _, want := range []string{"Lisinopril", "10mg", "8:00 AM", "take with food", "Medication Reminder"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatMedicationReminder_NoNotes(t *testing.T) {
	msg := FormatMedicationReminder("Lisinopril", "10mg", "8:00 AM", "")
	if strings.Contains(msg, "Notes") {
		t.Errorf("empty notes must not render a notes section:\n%s", msg)
	}
}

func TestFormatFollowUpReminder(t *testing.T) {
	msg := FormatFollowUpReminder("Cardiology Follow-up", "2026-08-11", "2:30 PM", "Room 302", "bring medication list")
	for _, want := range []string{"Cardiology Follow-up", "2026-08-11", "2:30 PM", "Room 302", "bring medication list"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatFollowUpReminder_OptionalFields(t *testing.T) {
	msg := FormatFollowUpReminder("Lab Work", "2026-08-11", "9:00 AM", "", "")
	if strings.Contains(msg, "Location") || strings.Contains(msg, "Notes") {
		t.Errorf("optional sections must be omitted when empty:\n%s", msg)
	}
}

func TestMockGateway_Records(t *testing.T) {
	gw := &MockGateway{}
	ctx := context.Background()

	if err := gw.DeliverMedicationReminder(ctx, "chat-1", "Lisinopril", "10mg", "8:00 AM", "n"); err != nil {
		t.Fatal(err)
	}
	if err := gw.DeliverFollowUpReminder(ctx, "Cardiology", "2026-08-11", "2:30 PM", "Room 302", ""); err != nil {
		t.Fatal(err)
	}
	if err := gw.SendMessage(ctx, "chat-1", "hello"); err != nil {
		t.Fatal(err)
	}

	if got := gw.MedicationDeliveries(); len(got) != 1 || got[0].Recipient != "chat-1" {
		t.Errorf("medication deliveries = %+v", got)
	}
	if got := gw.FollowUpDeliveries(); len(got) != 1 || got[0].AppointmentType != "Cardiology" {
		t.Errorf("followup deliveries = %+v", got)
	}
	if got := gw.Messages(); len(got) != 1 || got[0].Text != "hello" {
		t.Errorf("messages = %+v", got)
	}
}

func TestMockGateway_Failure(t *testing.T) {
	gw := &MockGateway{ShouldFail: true, FailError: "boom"}
	err := gw.SendMessage(context.Background(), "chat-1", "hello")
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected failure error, got %v", err)
	}
	// The call is still recorded.
	if len(gw.Messages()) != 1 {
		t.Error("failed call must still be recorded")
	}
}

func TestNewTelegramGateway_RequiresToken(t *testing.T) {
	if _, err := NewTelegramGateway("", "chat-1", zerolog.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}
