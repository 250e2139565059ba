// Package discharge drives the discharge workflow: transcribe the visit
// recording, collect patient details, generate and render the summary,
// then fan out notifications and reminders.
package discharge

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrValidation = errors.New("invalid discharge record")
	ErrNotFound   = errors.New("discharge record not found")
	// ErrStepNotReady means a workflow step was requested before its
	// prerequisite produced output (e.g. summary before transcript).
	ErrStepNotReady = errors.New("workflow step not ready")
)

// PatientRecord accumulates everything collected during one discharge.
type PatientRecord struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Age            int       `json:"age"`
	Gender         string    `json:"gender"`
	Diagnosis      string    `json:"diagnosis"`
	AdmissionDate  time.Time `json:"admission_date"`
	DischargeDate  time.Time `json:"discharge_date"`
	Email          string    `json:"email,omitempty"`
	ChatID         string    `json:"chat_id,omitempty"`
	MedicalHistory string    `json:"medical_history,omitempty"`
	Medications    []string  `json:"medications,omitempty"`
	RiskFactors    []string  `json:"risk_factors,omitempty"`

	Transcript        string `json:"transcript,omitempty"`
	AudioBlobID       string `json:"audio_blob_id,omitempty"`
	Summary           string `json:"summary,omitempty"`
	SimplifiedSummary string `json:"simplified_summary,omitempty"`
	PDFBlobID         string `json:"pdf_blob_id,omitempty"`
	CalendarEventID   string `json:"calendar_event_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
