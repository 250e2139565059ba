package reminder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// snapshotVersion is the current on-disk snapshot format version. Snapshots
// carrying any other version are rejected as corrupt rather than guessed at;
// migrations between versions are an explicit operator task.
const snapshotVersion = 1

// snapshot is the on-disk JSON layout: two arrays plus a format version.
// Timestamps round-trip as RFC 3339 via encoding/json.
type snapshot struct {
	Version     int                   `json:"version"`
	Medications []*MedicationSchedule `json:"medications"`
	Followups   []*FollowUpSchedule   `json:"followups"`
}

// FileStore persists schedules as a single JSON snapshot file. Saves write to
// a temporary file in the same directory and rename it over the target, so a
// concurrent Load never sees a half-written snapshot.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the snapshot file. A missing file yields empty sets; unreadable
// or malformed content returns ErrCorruptState. There is no silent fallback to
// an empty state: a corrupt snapshot fails loudly so the operator can recover
// or discard it deliberately.
func (s *FileStore) Load() ([]*MedicationSchedule, []*FollowUpSchedule, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, s.path, err)
	}
	if snap.Version != snapshotVersion {
		return nil, nil, fmt.Errorf("%w: %s: unsupported snapshot version %d", ErrCorruptState, s.path, snap.Version)
	}

	return snap.Medications, snap.Followups, nil
}

// Save atomically overwrites the snapshot file.
func (s *FileStore) Save(medications []*MedicationSchedule, followups []*FollowUpSchedule) error {
	snap := snapshot{
		Version:     snapshotVersion,
		Medications: medications,
		Followups:   followups,
	}
	if snap.Medications == nil {
		snap.Medications = []*MedicationSchedule{}
	}
	if snap.Followups == nil {
		snap.Followups = []*FollowUpSchedule{}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".schedules-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot %s: %w", s.path, err)
	}
	return nil
}
