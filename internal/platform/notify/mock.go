package notify

import (
	"context"
	"errors"
	"sync"
)

// MedicationDelivery records a single DeliverMedicationReminder call.
type MedicationDelivery struct {
	Recipient      string
	MedicationName string
	Dosage         string
	WhenLabel      string
	Notes          string
}

// FollowUpDelivery records a single DeliverFollowUpReminder call.
type FollowUpDelivery struct {
	AppointmentType string
	Date            string
	TimeLabel       string
	Location        string
	Notes           string
}

// MessageDelivery records a single SendMessage call.
type MessageDelivery struct {
	Recipient string
	Text      string
}

// MockGateway is a test double for Gateway that records every delivery.
type MockGateway struct {
	mu          sync.Mutex
	medications []MedicationDelivery
	followups   []FollowUpDelivery
	messages    []MessageDelivery
	ShouldFail  bool
	FailError   string
}

// DeliverMedicationReminder records the call and optionally returns an error.
func (m *MockGateway) DeliverMedicationReminder(_ context.Context, recipient, medicationName, dosage, whenLabel, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.medications = append(m.medications, MedicationDelivery{
		Recipient:      recipient,
		MedicationName: medicationName,
		Dosage:         dosage,
		WhenLabel:      whenLabel,
		Notes:          notes,
	})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// DeliverFollowUpReminder records the call and optionally returns an error.
func (m *MockGateway) DeliverFollowUpReminder(_ context.Context, appointmentType, date, timeLabel, location, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followups = append(m.followups, FollowUpDelivery{
		AppointmentType: appointmentType,
		Date:            date,
		TimeLabel:       timeLabel,
		Location:        location,
		Notes:           notes,
	})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// SendMessage records the call and optionally returns an error.
func (m *MockGateway) SendMessage(_ context.Context, recipient, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, MessageDelivery{Recipient: recipient, Text: text})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// MedicationDeliveries returns a copy of recorded medication reminders.
func (m *MockGateway) MedicationDeliveries() []MedicationDelivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MedicationDelivery, len(m.medications))
	copy(out, m.medications)
	return out
}

// FollowUpDeliveries returns a copy of recorded follow-up reminders.
func (m *MockGateway) FollowUpDeliveries() []FollowUpDelivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FollowUpDelivery, len(m.followups))
	copy(out, m.followups)
	return out
}

// Messages returns a copy of recorded free-form messages.
func (m *MockGateway) Messages() []MessageDelivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MessageDelivery, len(m.messages))
	copy(out, m.messages)
	return out
}
