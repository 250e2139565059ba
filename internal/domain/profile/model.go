// Package profile keeps a searchable memory of discharged patients. Each
// profile is stored with an embedding of its clinical text so similar past
// cases can be retrieved when preparing a new discharge.
package profile

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrValidation = errors.New("invalid patient profile")
	ErrNotFound   = errors.New("patient profile not found")
)

// PatientProfile is the stored record of a discharged patient.
type PatientProfile struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Age           int       `json:"age"`
	Gender        string    `json:"gender"`
	Diagnosis     string    `json:"diagnosis"`
	DischargeDate time.Time `json:"discharge_date"`
	Medications   []string  `json:"medications"`
	FollowUpNotes string    `json:"follow_up_notes"`
	RiskFactors   []string  `json:"risk_factors"`
	Comorbidities []string  `json:"comorbidities"`
	TreatmentPlan string    `json:"treatment_plan"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SearchText flattens the clinical fields into the text that gets embedded.
func (p *PatientProfile) SearchText() string {
	parts := []string{
		"Diagnosis: " + p.Diagnosis,
		"Medications: " + strings.Join(p.Medications, ", "),
		"Risk factors: " + strings.Join(p.RiskFactors, ", "),
		"Comorbidities: " + strings.Join(p.Comorbidities, ", "),
		"Treatment plan: " + p.TreatmentPlan,
		"Follow-up: " + p.FollowUpNotes,
	}
	return strings.Join(parts, "\n")
}

// Match is a similarity search hit.
type Match struct {
	Profile    *PatientProfile `json:"profile"`
	Similarity float64         `json:"similarity"`
}
