package reminder

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the reminder subsystem.
var (
	ErrValidation   = errors.New("invalid schedule")
	ErrNotFound     = errors.New("schedule not found")
	ErrCorruptState = errors.New("schedule snapshot is corrupt")
)

// MedicationSchedule is a recurring daily medication reminder. Reminders fire
// at each entry of Times (24h wall-clock, minute resolution) on every day from
// StartDate up to EndDate. EndDate is an exclusive boundary: the schedule
// expires at the first tick observing now >= EndDate, so a dose falling on
// the exact end instant does not fire. Both dates are fixed at creation and
// never recomputed.
type MedicationSchedule struct {
	ID              string    `json:"id"`
	MedicationName  string    `json:"medication_name"`
	Dosage          string    `json:"dosage"`
	Times           []string  `json:"times"`
	DurationDays    int       `json:"duration_days"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	AdditionalNotes string    `json:"additional_notes"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	Recipient       string    `json:"recipient,omitempty"`
}

// Expired reports whether the schedule has reached its end date.
func (m *MedicationSchedule) Expired(now time.Time) bool {
	return !now.Before(m.EndDate)
}

// DaysLeft returns the number of whole days remaining until the end date.
func (m *MedicationSchedule) DaysLeft(now time.Time) int {
	d := int(m.EndDate.Sub(now).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// FollowUpSchedule is a dated follow-up appointment with reminders fired at a
// fixed daily check time, N days before the appointment for each entry in
// ReminderDaysBefore.
type FollowUpSchedule struct {
	ID                 string    `json:"id"`
	AppointmentType    string    `json:"appointment_type"`
	AppointmentDate    time.Time `json:"appointment_date"`
	AppointmentTime    string    `json:"appointment_time"`
	Location           string    `json:"location"`
	Notes              string    `json:"notes"`
	ReminderDaysBefore []int     `json:"reminder_days_before"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

// DaysUntil returns the number of whole days until the appointment.
func (f *FollowUpSchedule) DaysUntil(now time.Time) int {
	d := int(f.AppointmentDate.Sub(now).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// ValidateClockTime checks that s is a well-formed 24h "HH:MM" wall-clock time.
func ValidateClockTime(s string) error {
	if _, err := time.Parse("15:04", s); err != nil {
		return fmt.Errorf("%w: time %q is not in HH:MM format", ErrValidation, s)
	}
	return nil
}

// sameDay reports whether a and b fall on the same calendar day.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
