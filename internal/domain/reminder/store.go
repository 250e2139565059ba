package reminder

// Store persists the full set of schedules as one snapshot. Every save
// overwrites the previous snapshot wholesale; the store is always the complete
// current truth and is loaded wholesale at startup.
type Store interface {
	// Load reads the persisted snapshot. A missing snapshot is not an error
	// and yields empty sets. A malformed snapshot returns ErrCorruptState.
	Load() (medications []*MedicationSchedule, followups []*FollowUpSchedule, err error)

	// Save atomically replaces the snapshot. A concurrent Load must never
	// observe a partially written snapshot.
	Save(medications []*MedicationSchedule, followups []*FollowUpSchedule) error
}
