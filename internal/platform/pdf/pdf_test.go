package pdf

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer("General Hospital")
	r.now = func() time.Time { return time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC) }

	out, err := r.Render(DischargeDocument{
		PatientName: "Jane Roe",
		PatientAge:  67,
		Gender:      "female",
		AdmitDate:   time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		Diagnosis:   "Community-acquired pneumonia",
		Summary:     "Patient admitted with fever and cough.\n\nTreated with IV antibiotics, transitioned to oral therapy.",
		Medications: []string{"Amoxicillin 500mg TID", "Lisinopril 10mg daily"},
		FollowUpText: "Follow up with primary care in one week.",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output does not start with PDF header: %q", out[:8])
	}
	if len(out) < 1000 {
		t.Errorf("output suspiciously small: %d bytes", len(out))
	}
}

func TestRenderer_EmptySummary(t *testing.T) {
	r := NewRenderer("")
	if _, err := r.Render(DischargeDocument{PatientName: "x", Summary: "   "}); err == nil {
		t.Fatal("expected error for empty summary")
	}
}

func TestRenderer_OptionalSections(t *testing.T) {
	r := NewRenderer("")
	out, err := r.Render(DischargeDocument{
		PatientName: "John Doe",
		Summary:     "Brief stay, no complications.",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("missing PDF header")
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 30, 45, 0, time.UTC)
	got := FileName("Jane Roe", at)
	want := "discharge_summary_Jane_Roe_20260301_103045.pdf"
	if got != want {
		t.Errorf("FileName = %q, want %q", got, want)
	}

	if got := FileName("  ", at); !strings.HasPrefix(got, "discharge_summary_Unknown_") {
		t.Errorf("blank name → %q", got)
	}
}
