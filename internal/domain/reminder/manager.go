package reminder

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// defaultReminderDaysBefore is applied when a follow-up is added without
// explicit reminder offsets.
var defaultReminderDaysBefore = []int{1, 3, 7}

// Manager owns the in-memory schedule registry for the process lifetime.
// All reads and mutations - by the facade methods and by the dispatcher's
// tick - are serialized through a single mutex. Every mutation persists the
// full snapshot through the shared Store; the save runs inside the critical
// section so the facade and the dispatcher can never interleave writes to the
// snapshot file (the write is local disk I/O, an accepted cost).
type Manager struct {
	mu        sync.Mutex
	store     Store
	logger    zerolog.Logger
	meds      map[string]*MedicationSchedule
	followups map[string]*FollowUpSchedule
	medOrder  []string
	fuOrder   []string
	now       func() time.Time
}

// NewManager creates a Manager and loads the persisted snapshot. A corrupt
// snapshot fails construction.
func NewManager(store Store, logger zerolog.Logger) (*Manager, error) {
	meds, fus, err := store.Load()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		store:     store,
		logger:    logger.With().Str("component", "reminder-manager").Logger(),
		meds:      make(map[string]*MedicationSchedule, len(meds)),
		followups: make(map[string]*FollowUpSchedule, len(fus)),
		now:       time.Now,
	}

	// Evaluation order is creation order, reconstructed from CreatedAt so it
	// survives restarts.
	sort.SliceStable(meds, func(i, j int) bool { return meds[i].CreatedAt.Before(meds[j].CreatedAt) })
	sort.SliceStable(fus, func(i, j int) bool { return fus[i].CreatedAt.Before(fus[j].CreatedAt) })
	for _, med := range meds {
		m.meds[med.ID] = med
		m.medOrder = append(m.medOrder, med.ID)
	}
	for _, fu := range fus {
		m.followups[fu.ID] = fu
		m.fuOrder = append(m.fuOrder, fu.ID)
	}

	m.logger.Info().
		Int("medications", len(meds)).
		Int("followups", len(fus)).
		Msg("loaded schedules")
	return m, nil
}

// AddMedicationSchedule registers a new daily medication reminder and persists
// it. Times must be well-formed HH:MM values and durationDays must be
// positive. The recipient is the chat/channel the dispatcher delivers to; a
// schedule without one is kept but never dispatched.
func (m *Manager) AddMedicationSchedule(name, dosage string, times []string, durationDays int, notes, recipient string) (string, error) {
	if len(times) == 0 {
		return "", fmt.Errorf("%w: at least one dose time is required", ErrValidation)
	}
	for _, t := range times {
		if err := ValidateClockTime(t); err != nil {
			return "", err
		}
	}
	if durationDays <= 0 {
		return "", fmt.Errorf("%w: duration_days must be positive, got %d", ErrValidation, durationDays)
	}

	now := m.now()
	sched := &MedicationSchedule{
		ID:              uuid.New().String(),
		MedicationName:  name,
		Dosage:          dosage,
		Times:           append([]string(nil), times...),
		DurationDays:    durationDays,
		StartDate:       now,
		EndDate:         now.AddDate(0, 0, durationDays),
		AdditionalNotes: notes,
		IsActive:        true,
		CreatedAt:       now,
		Recipient:       recipient,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.meds[sched.ID] = sched
	m.medOrder = append(m.medOrder, sched.ID)
	if err := m.saveLocked(); err != nil {
		return "", err
	}

	m.logger.Info().
		Str("schedule_id", sched.ID).
		Str("medication", name).
		Int("duration_days", durationDays).
		Msg("added medication schedule")
	return sched.ID, nil
}

// AddFollowUpSchedule registers a dated follow-up appointment reminder and
// persists it. An appointment dated in the past is rejected; a reminder for a
// date that already happened could never fire. Nil reminderDaysBefore gets
// the default offsets of 1, 3 and 7 days.
func (m *Manager) AddFollowUpSchedule(appointmentType string, date time.Time, timeLabel, location, notes string, reminderDaysBefore []int) (string, error) {
	now := m.now()
	if !date.After(now) {
		return "", fmt.Errorf("%w: appointment date %s is in the past", ErrValidation, date.Format(time.RFC3339))
	}
	if reminderDaysBefore == nil {
		reminderDaysBefore = defaultReminderDaysBefore
	}
	for _, n := range reminderDaysBefore {
		if n < 0 {
			return "", fmt.Errorf("%w: reminder offset %d is negative", ErrValidation, n)
		}
	}

	sched := &FollowUpSchedule{
		ID:                 uuid.New().String(),
		AppointmentType:    appointmentType,
		AppointmentDate:    date,
		AppointmentTime:    timeLabel,
		Location:           location,
		Notes:              notes,
		ReminderDaysBefore: append([]int(nil), reminderDaysBefore...),
		IsActive:           true,
		CreatedAt:          now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.followups[sched.ID] = sched
	m.fuOrder = append(m.fuOrder, sched.ID)
	if err := m.saveLocked(); err != nil {
		return "", err
	}

	m.logger.Info().
		Str("schedule_id", sched.ID).
		Str("appointment_type", appointmentType).
		Time("appointment_date", date).
		Msg("added follow-up schedule")
	return sched.ID, nil
}

// StopSchedule deactivates a schedule of either kind and persists the change.
// Stopping an already stopped schedule is a no-op. An inactive schedule is
// never re-activated.
func (m *Manager) StopSchedule(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if med, ok := m.meds[id]; ok {
		if med.IsActive {
			med.IsActive = false
			if err := m.saveLocked(); err != nil {
				return err
			}
			m.logger.Info().Str("schedule_id", id).Msg("stopped medication schedule")
		}
		return nil
	}
	if fu, ok := m.followups[id]; ok {
		if fu.IsActive {
			fu.IsActive = false
			if err := m.saveLocked(); err != nil {
				return err
			}
			m.logger.Info().Str("schedule_id", id).Msg("stopped follow-up schedule")
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// ListActive returns value copies of the schedules that are still live:
// active medications whose end date has not passed, and active follow-ups
// whose appointment is still in the future. Expired-but-unswept schedules are
// filtered out even before the dispatcher marks them inactive.
func (m *Manager) ListActive() ([]MedicationSchedule, []FollowUpSchedule) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	meds := make([]MedicationSchedule, 0, len(m.medOrder))
	for _, id := range m.medOrder {
		med := m.meds[id]
		if med.IsActive && !med.Expired(now) {
			meds = append(meds, *med)
		}
	}
	fus := make([]FollowUpSchedule, 0, len(m.fuOrder))
	for _, id := range m.fuOrder {
		fu := m.followups[id]
		if fu.IsActive && fu.AppointmentDate.After(now) {
			fus = append(fus, *fu)
		}
	}
	return meds, fus
}

// SummaryText renders a human-readable digest of all active schedules for
// display or broadcast.
func (m *Manager) SummaryText() string {
	now := m.now()
	meds, fus := m.ListActive()

	var b strings.Builder
	b.WriteString("📋 <b>Healthcare Schedule Summary</b>\n\n")

	if len(meds) > 0 {
		b.WriteString("💊 <b>Active Medications:</b>\n")
		for _, med := range meds {
			fmt.Fprintf(&b, "• %s (%s) - %d days left\n", med.MedicationName, med.Dosage, med.DaysLeft(now))
		}
		b.WriteString("\n")
	}
	if len(fus) > 0 {
		b.WriteString("📅 <b>Upcoming Appointments:</b>\n")
		for _, fu := range fus {
			fmt.Fprintf(&b, "• %s - %d days until appointment\n", fu.AppointmentType, fu.DaysUntil(now))
		}
	}
	if len(meds) == 0 && len(fus) == 0 {
		b.WriteString("No active schedules at the moment.")
	}
	return b.String()
}

// occurrenceKind discriminates due occurrences collected by a tick.
type occurrenceKind int

const (
	occurrenceMedication occurrenceKind = iota
	occurrenceFollowUp
)

// occurrence is one schedule reminder that is due "now". Fields are value
// copies taken under the lock so delivery happens without touching shared
// state.
type occurrence struct {
	kind occurrenceKind
	key  string

	// medication fields
	recipient      string
	medicationName string
	dosage         string
	whenLabel      string
	notes          string

	// follow-up fields
	appointmentType string
	appointmentDate string
	appointmentTime string
	location        string
}

// collectDue evaluates, under the lock, which schedules have a reminder due at
// now, in creation order. Medication doses match when the wall-clock minute
// equals a dose time; follow-up reminders are evaluated only in the minute of
// checkTime. Expired medications transition to inactive here and are persisted
// before the tick delivers anything; they never produce an occurrence.
func (m *Manager) collectDue(now time.Time, checkTime string) []occurrence {
	minute := now.Format("15:04")
	today := now.Format("2006-01-02")

	m.mu.Lock()
	defer m.mu.Unlock()

	var due []occurrence
	expired := 0

	for _, id := range m.medOrder {
		med := m.meds[id]
		if !med.IsActive {
			continue
		}
		if med.Expired(now) {
			med.IsActive = false
			expired++
			m.logger.Info().Str("schedule_id", med.ID).Str("medication", med.MedicationName).Msg("medication schedule ended")
			continue
		}
		if med.Recipient == "" || now.Before(med.StartDate) {
			continue
		}
		for _, t := range med.Times {
			if t != minute {
				continue
			}
			due = append(due, occurrence{
				kind:           occurrenceMedication,
				key:            "med|" + med.ID + "|" + t + "|" + today,
				recipient:      med.Recipient,
				medicationName: med.MedicationName,
				dosage:         med.Dosage,
				whenLabel:      now.Format("3:04 PM"),
				notes:          med.AdditionalNotes,
			})
		}
	}

	if minute == checkTime {
		for _, id := range m.fuOrder {
			fu := m.followups[id]
			if !fu.IsActive || !fu.AppointmentDate.After(now) {
				continue
			}
			for _, n := range fu.ReminderDaysBefore {
				if !sameDay(fu.AppointmentDate.AddDate(0, 0, -n), now) {
					continue
				}
				due = append(due, occurrence{
					kind:            occurrenceFollowUp,
					key:             fmt.Sprintf("fu|%s|%d", fu.ID, n),
					appointmentType: fu.AppointmentType,
					appointmentDate: fu.AppointmentDate.Format("2006-01-02"),
					appointmentTime: fu.AppointmentTime,
					location:        fu.Location,
					notes:           fu.Notes,
				})
			}
		}
	}

	if expired > 0 {
		if err := m.saveLocked(); err != nil {
			m.logger.Error().Err(err).Msg("failed to persist expired schedules")
		}
	}
	return due
}

// saveLocked writes the full snapshot. Callers must hold m.mu.
func (m *Manager) saveLocked() error {
	meds := make([]*MedicationSchedule, 0, len(m.medOrder))
	for _, id := range m.medOrder {
		meds = append(meds, m.meds[id])
	}
	fus := make([]*FollowUpSchedule, 0, len(m.fuOrder))
	for _, id := range m.fuOrder {
		fus = append(fus, m.followups[id])
	}
	if err := m.store.Save(meds, fus); err != nil {
		return fmt.Errorf("save schedules: %w", err)
	}
	return nil
}
