package reminder

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// memoryStore is a Store double that keeps the last saved snapshot in memory
// and counts saves.
type memoryStore struct {
	mu        sync.Mutex
	meds      []*MedicationSchedule
	fus       []*FollowUpSchedule
	saveCount int
	loadErr   error
	saveErr   error
}

func (s *memoryStore) Load() ([]*MedicationSchedule, []*FollowUpSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, nil, s.loadErr
	}
	return s.meds, s.fus, nil
}

func (s *memoryStore) Save(meds []*MedicationSchedule, fus []*FollowUpSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.meds = append([]*MedicationSchedule(nil), meds...)
	s.fus = append([]*FollowUpSchedule(nil), fus...)
	s.saveCount++
	return nil
}

func (s *memoryStore) saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCount
}

func newTestManager(t *testing.T, store Store) *Manager {
	t.Helper()
	m, err := NewManager(store, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestNewManager_CorruptStore(t *testing.T) {
	store := &memoryStore{loadErr: ErrCorruptState}
	if _, err := NewManager(store, zerolog.Nop()); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState, got %v", err)
	}
}

func TestAddMedicationSchedule_Validation(t *testing.T) {
	m := newTestManager(t, &memoryStore{})

	tests := []struct {
		name     string
		times    []string
		duration int
	}{
		{"empty times", nil, 7},
		{"malformed time", []string{"8am"}, 7},
		{"hour out of range", []string{"25:00"}, 7},
		{"zero duration", []string{"08:00"}, 0},
		{"negative duration", []string{"08:00"}, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.AddMedicationSchedule("Lisinopril", "10mg", tt.times, tt.duration, "", "chat-1")
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}

	// Nothing was persisted by the rejected calls.
	meds, _ := m.ListActive()
	if len(meds) != 0 {
		t.Errorf("rejected schedules must not be registered, got %d", len(meds))
	}
}

func TestAddMedicationSchedule_PersistsImmediately(t *testing.T) {
	store := &memoryStore{}
	m := newTestManager(t, store)

	id, err := m.AddMedicationSchedule("Lisinopril", "10mg", []string{"08:00", "20:00"}, 7, "take with food", "chat-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty schedule id")
	}
	if store.saves() != 1 {
		t.Errorf("expected 1 save, got %d", store.saves())
	}

	meds, _ := m.ListActive()
	if len(meds) != 1 {
		t.Fatalf("expected 1 active medication, got %d", len(meds))
	}
	med := meds[0]
	if !med.EndDate.Equal(med.StartDate.AddDate(0, 0, 7)) {
		t.Errorf("end date must be start + duration, got start=%v end=%v", med.StartDate, med.EndDate)
	}
	if !med.IsActive {
		t.Error("new schedule must be active")
	}
}

func TestAddFollowUpSchedule_RejectsPastDate(t *testing.T) {
	m := newTestManager(t, &memoryStore{})

	_, err := m.AddFollowUpSchedule("Cardiology", time.Now().AddDate(0, 0, -1), "2:30 PM", "", "", nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for past date, got %v", err)
	}
}

func TestAddFollowUpSchedule_DefaultOffsets(t *testing.T) {
	store := &memoryStore{}
	m := newTestManager(t, store)

	_, err := m.AddFollowUpSchedule("Cardiology", time.Now().AddDate(0, 0, 10), "2:30 PM", "Room 302", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, fus := m.ListActive()
	if len(fus) != 1 {
		t.Fatalf("expected 1 active followup, got %d", len(fus))
	}
	got := fus[0].ReminderDaysBefore
	if len(got) != 3 || got[0] != 1 || got[1] != 3 || got[2] != 7 {
		t.Errorf("expected default offsets [1 3 7], got %v", got)
	}
}

func TestAddFollowUpSchedule_RejectsNegativeOffset(t *testing.T) {
	m := newTestManager(t, &memoryStore{})

	_, err := m.AddFollowUpSchedule("Cardiology", time.Now().AddDate(0, 0, 10), "2:30 PM", "", "", []int{3, -1})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for negative offset, got %v", err)
	}
}

func TestStopSchedule(t *testing.T) {
	store := &memoryStore{}
	m := newTestManager(t, store)

	id, err := m.AddMedicationSchedule("Lisinopril", "10mg", []string{"08:00"}, 7, "", "chat-1")
	if err != nil {
		t.Fatal(err)
	}

	if err := m.StopSchedule(id); err != nil {
		t.Fatalf("stop: %v", err)
	}

	meds, _ := m.ListActive()
	if len(meds) != 0 {
		t.Error("stopped schedule must be absent from ListActive immediately")
	}

	// Idempotent: stopping again is a no-op, not an error, and does not save.
	savesAfterStop := store.saves()
	if err := m.StopSchedule(id); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if store.saves() != savesAfterStop {
		t.Error("stopping an already stopped schedule must not persist again")
	}
}

func TestStopSchedule_Unknown(t *testing.T) {
	m := newTestManager(t, &memoryStore{})
	if err := m.StopSchedule("no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_ReloadPreservesState(t *testing.T) {
	store := &memoryStore{}
	m := newTestManager(t, store)

	stoppedID, err := m.AddMedicationSchedule("Lisinopril", "10mg", []string{"08:00"}, 7, "", "chat-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddMedicationSchedule("Metformin", "500mg", []string{"12:00"}, 14, "", "chat-1"); err != nil {
		t.Fatal(err)
	}
	if err := m.StopSchedule(stoppedID); err != nil {
		t.Fatal(err)
	}

	// A fresh manager over the same store sees the same state.
	m2 := newTestManager(t, store)
	meds, _ := m2.ListActive()
	if len(meds) != 1 || meds[0].MedicationName != "Metformin" {
		t.Fatalf("expected only Metformin active after reload, got %+v", meds)
	}
}

func TestListActive_FiltersExpired(t *testing.T) {
	m := newTestManager(t, &memoryStore{})
	base := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)

	m.now = func() time.Time { return base }
	if _, err := m.AddMedicationSchedule("Lisinopril", "10mg", []string{"08:00"}, 1, "", "chat-1"); err != nil {
		t.Fatal(err)
	}

	// Still inside the window.
	m.now = func() time.Time { return base.Add(20 * time.Hour) }
	meds, _ := m.ListActive()
	if len(meds) != 1 {
		t.Fatalf("expected schedule active before end date, got %d", len(meds))
	}

	// Past the end date: filtered even though the dispatcher has not swept it.
	m.now = func() time.Time { return base.AddDate(0, 0, 1) }
	meds, _ = m.ListActive()
	if len(meds) != 0 {
		t.Errorf("expected expired schedule filtered from ListActive, got %d", len(meds))
	}
}

func TestSummaryText(t *testing.T) {
	m := newTestManager(t, &memoryStore{})
	base := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	if _, err := m.AddMedicationSchedule("Lisinopril", "10mg", []string{"08:00"}, 30, "", "chat-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddFollowUpSchedule("Cardiology Follow-up", base.AddDate(0, 0, 7), "2:30 PM", "Room 302", "", nil); err != nil {
		t.Fatal(err)
	}

	summary := m.SummaryText()
	for _, want := range []string{"Lisinopril", "10mg", "30 days left", "Cardiology Follow-up", "7 days until appointment"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestSummaryText_Empty(t *testing.T) {
	m := newTestManager(t, &memoryStore{})
	if !strings.Contains(m.SummaryText(), "No active schedules") {
		t.Errorf("empty summary should say so, got %q", m.SummaryText())
	}
}
