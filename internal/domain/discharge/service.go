package discharge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/profile"
	"github.com/carelink/carelink/internal/domain/reminder"
	"github.com/carelink/carelink/internal/platform/blobstore"
	"github.com/carelink/carelink/internal/platform/calendar"
	"github.com/carelink/carelink/internal/platform/email"
	"github.com/carelink/carelink/internal/platform/notify"
	"github.com/carelink/carelink/internal/platform/pdf"
	"github.com/carelink/carelink/internal/platform/summarize"
	"github.com/carelink/carelink/internal/platform/transcribe"
)

// Service orchestrates the discharge workflow steps. Records live in
// memory for the duration of the workflow; durable artifacts (audio, PDF,
// patient profile, reminder schedules) land in their own stores.
type Service struct {
	mu      sync.Mutex
	records map[uuid.UUID]*PatientRecord

	transcriber transcribe.Transcriber
	summarizer  summarize.Summarizer
	renderer    *pdf.Renderer
	blobs       blobstore.BlobStore
	mailer      email.Sender
	gateway     notify.Gateway
	events      calendar.EventCreator
	profiles    *profile.Service
	reminders   *reminder.Manager
	logger      zerolog.Logger

	now func() time.Time
}

type Deps struct {
	Transcriber transcribe.Transcriber
	Summarizer  summarize.Summarizer
	Renderer    *pdf.Renderer
	Blobs       blobstore.BlobStore
	Mailer      email.Sender
	Gateway     notify.Gateway
	Events      calendar.EventCreator
	Profiles    *profile.Service
	Reminders   *reminder.Manager
}

func NewService(deps Deps, logger zerolog.Logger) *Service {
	return &Service{
		records:     make(map[uuid.UUID]*PatientRecord),
		transcriber: deps.Transcriber,
		summarizer:  deps.Summarizer,
		renderer:    deps.Renderer,
		blobs:       deps.Blobs,
		mailer:      deps.Mailer,
		gateway:     deps.Gateway,
		events:      deps.Events,
		profiles:    deps.Profiles,
		reminders:   deps.Reminders,
		logger:      logger.With().Str("component", "discharge").Logger(),
		now:         time.Now,
	}
}

// CreateRecord validates and stores a new discharge record.
func (s *Service) CreateRecord(rec *PatientRecord) error {
	if strings.TrimSpace(rec.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if rec.Age < 0 || rec.Age > 150 {
		return fmt.Errorf("%w: age %d out of range", ErrValidation, rec.Age)
	}
	if strings.TrimSpace(rec.Diagnosis) == "" {
		return fmt.Errorf("%w: diagnosis is required", ErrValidation)
	}
	if !rec.AdmissionDate.IsZero() && !rec.DischargeDate.IsZero() && rec.DischargeDate.Before(rec.AdmissionDate) {
		return fmt.Errorf("%w: discharge date precedes admission date", ErrValidation)
	}

	rec.ID = uuid.New()
	now := s.now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	s.mu.Lock()
	cp := *rec
	s.records[rec.ID] = &cp
	s.mu.Unlock()

	s.logger.Info().Str("record_id", rec.ID.String()).Str("diagnosis", rec.Diagnosis).Msg("discharge record created")
	return nil
}

// Get returns a copy of the record.
func (s *Service) Get(id uuid.UUID) (*PatientRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// List returns all records ordered by creation time.
func (s *Service) List() []*PatientRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*PatientRecord, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Service) update(id uuid.UUID, fn func(rec *PatientRecord)) (*PatientRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	fn(rec)
	rec.UpdatedAt = s.now()
	cp := *rec
	return &cp, nil
}

// TranscribeAudio stores the visit recording and attaches its transcript
// to the record.
func (s *Service) TranscribeAudio(ctx context.Context, id uuid.UUID, audio io.Reader, fileName, contentType string) (*PatientRecord, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(audio)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio upload", ErrValidation)
	}

	meta, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:    fileName,
		ContentType: contentType,
		PatientID:   rec.ID.String(),
		Category:    blobstore.CategoryAudioRecording,
	}, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store audio: %w", err)
	}

	transcript, err := s.transcriber.Transcribe(ctx, bytes.NewReader(data), fileName)
	if err != nil {
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}

	return s.update(id, func(rec *PatientRecord) {
		rec.AudioBlobID = meta.ID
		rec.Transcript = transcript.Text
	})
}

// GenerateSummary produces the discharge summary from the transcript and
// the structured patient details.
func (s *Service) GenerateSummary(ctx context.Context, id uuid.UUID) (*PatientRecord, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rec.Transcript) == "" {
		return nil, fmt.Errorf("%w: no transcript on record", ErrStepNotReady)
	}

	summary, err := s.summarizer.Summarize(ctx, rec.Transcript, summarize.PatientInfo{
		Name:               rec.Name,
		Age:                rec.Age,
		Gender:             rec.Gender,
		MedicalHistory:     rec.MedicalHistory,
		CurrentMedications: strings.Join(rec.Medications, ", "),
	})
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}

	return s.update(id, func(rec *PatientRecord) {
		rec.Summary = summary
	})
}

// SimplifyInstructions rewrites text in plain patient-facing language.
// With an empty instruction it simplifies the record's summary and stores
// the result; otherwise the given instruction is simplified and returned
// without touching the record.
func (s *Service) SimplifyInstructions(ctx context.Context, id uuid.UUID, instruction, readingLevel string) (string, error) {
	rec, err := s.Get(id)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(instruction)
	fromSummary := text == ""
	if fromSummary {
		if strings.TrimSpace(rec.Summary) == "" {
			return "", fmt.Errorf("%w: no summary to simplify", ErrStepNotReady)
		}
		text = rec.Summary
	}

	simplified, err := s.summarizer.SimplifyInstructions(ctx, text, readingLevel, "Diagnosis: "+rec.Diagnosis)
	if err != nil {
		return "", fmt.Errorf("simplify instructions: %w", err)
	}

	if fromSummary {
		if _, err := s.update(id, func(rec *PatientRecord) {
			rec.SimplifiedSummary = simplified
		}); err != nil {
			return "", err
		}
	}
	return simplified, nil
}

// SetSummary lets a clinician replace the generated summary before it is
// rendered and sent.
func (s *Service) SetSummary(id uuid.UUID, summary string) (*PatientRecord, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, fmt.Errorf("%w: summary must not be empty", ErrValidation)
	}
	return s.update(id, func(rec *PatientRecord) {
		rec.Summary = summary
	})
}

// RenderPDF renders the discharge summary document and stores it.
func (s *Service) RenderPDF(ctx context.Context, id uuid.UUID) (*PatientRecord, []byte, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(rec.Summary) == "" {
		return nil, nil, fmt.Errorf("%w: no summary on record", ErrStepNotReady)
	}

	doc, err := s.renderer.Render(pdf.DischargeDocument{
		PatientName:  rec.Name,
		PatientAge:   rec.Age,
		Gender:       rec.Gender,
		AdmitDate:    rec.AdmissionDate,
		Diagnosis:    rec.Diagnosis,
		Summary:      rec.Summary,
		Medications:  rec.Medications,
		FollowUpText: rec.Summary,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("render pdf: %w", err)
	}

	meta, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:    pdf.FileName(rec.Name, s.now()),
		ContentType: "application/pdf",
		PatientID:   rec.ID.String(),
		Category:    blobstore.CategoryDischargeSummary,
	}, bytes.NewReader(doc))
	if err != nil {
		return nil, nil, fmt.Errorf("store pdf: %w", err)
	}

	updated, err := s.update(id, func(rec *PatientRecord) {
		rec.PDFBlobID = meta.ID
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, doc, nil
}

// NotifyOptions selects which outbound channels Finalize uses.
type NotifyOptions struct {
	SendEmail              bool   `json:"send_email"`
	SendMessage            bool   `json:"send_message"`
	CreateEvent            bool   `json:"create_event"`
	CreateMedicationReview bool   `json:"create_medication_review"`
	StoreProfile           bool   `json:"store_profile"`
	FollowUpPlace          string `json:"follow_up_place,omitempty"`
	FollowUpDoctor         string `json:"follow_up_doctor,omitempty"`
}

// NotifyResult reports per-channel outcomes. Channel failures do not
// abort the remaining channels.
type NotifyResult struct {
	EmailSent     bool     `json:"email_sent"`
	MessageSent   bool     `json:"message_sent"`
	EventID       string   `json:"event_id,omitempty"`
	ReviewEventID string   `json:"review_event_id,omitempty"`
	ProfileID     string   `json:"profile_id,omitempty"`
	Failures      []string `json:"failures,omitempty"`
	Succeeded     int      `json:"succeeded"`
	Attempted     int      `json:"attempted"`
}

// Finalize fans the finished summary out to the selected channels.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID, opts NotifyOptions) (*NotifyResult, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rec.Summary) == "" {
		return nil, fmt.Errorf("%w: no summary on record", ErrStepNotReady)
	}

	result := &NotifyResult{}
	fail := func(channel string, err error) {
		result.Failures = append(result.Failures, fmt.Sprintf("%s: %v", channel, err))
		s.logger.Error().Err(err).Str("record_id", rec.ID.String()).Str("channel", channel).Msg("notification channel failed")
	}

	if opts.SendEmail && rec.Email != "" {
		result.Attempted++
		if err := s.sendSummaryEmail(ctx, rec); err != nil {
			fail("email", err)
		} else {
			result.EmailSent = true
			result.Succeeded++
		}
	}

	if opts.SendMessage && rec.ChatID != "" {
		result.Attempted++
		msg := fmt.Sprintf("🏥 <b>Discharge Summary for %s</b>\n\n%s", rec.Name, rec.Summary)
		if err := s.gateway.SendMessage(ctx, rec.ChatID, msg); err != nil {
			fail("message", err)
		} else {
			result.MessageSent = true
			result.Succeeded++
		}
	}

	if opts.CreateEvent {
		result.Attempted++
		place := opts.FollowUpPlace
		if place == "" {
			place = "Hospital Outpatient Clinic"
		}
		doctor := opts.FollowUpDoctor
		if doctor == "" {
			doctor = "Attending Physician"
		}
		base := rec.DischargeDate
		if base.IsZero() {
			base = s.now()
		}
		ev := calendar.NewFollowUpEvent(rec.Name, doctor, place, base)
		ev.Description = fmt.Sprintf("Follow-up appointment for %s.", rec.Diagnosis)
		eventID, err := s.events.CreateEvent(ctx, ev)
		if err != nil {
			fail("calendar", err)
		} else {
			result.EventID = eventID
			result.Succeeded++
			s.update(id, func(rec *PatientRecord) { rec.CalendarEventID = eventID })
		}
	}

	if opts.CreateMedicationReview && len(rec.Medications) > 0 {
		result.Attempted++
		base := rec.DischargeDate
		if base.IsZero() {
			base = s.now()
		}
		// Review the regimen once the initial courses have run.
		ev := calendar.NewMedicationReviewEvent(rec.Name, base.AddDate(0, 0, 30), rec.Medications)
		eventID, err := s.events.CreateEvent(ctx, ev)
		if err != nil {
			fail("medication-review", err)
		} else {
			result.ReviewEventID = eventID
			result.Succeeded++
		}
	}

	if opts.StoreProfile && s.profiles != nil {
		result.Attempted++
		p := &profile.PatientProfile{
			Name:          rec.Name,
			Age:           rec.Age,
			Gender:        rec.Gender,
			Diagnosis:     rec.Diagnosis,
			DischargeDate: rec.DischargeDate,
			Medications:   rec.Medications,
			FollowUpNotes: rec.Summary,
			RiskFactors:   rec.RiskFactors,
			TreatmentPlan: rec.Summary,
		}
		if err := s.profiles.Create(ctx, p); err != nil {
			fail("profile", err)
		} else {
			result.ProfileID = p.ID.String()
			result.Succeeded++
		}
	}

	return result, nil
}

func (s *Service) sendSummaryEmail(ctx context.Context, rec *PatientRecord) error {
	msg := email.Message{
		To:      rec.Email,
		Subject: email.DischargeSubject(rec.Name),
		Body:    fmt.Sprintf("Dear %s,\n\nPlease find your discharge summary attached.\n\n%s\n", rec.Name, rec.Summary),
	}
	if rec.PDFBlobID != "" {
		rc, meta, err := s.blobs.Download(ctx, rec.PDFBlobID)
		if err != nil {
			return fmt.Errorf("fetch pdf: %w", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("read pdf: %w", err)
		}
		msg.Attachments = append(msg.Attachments, email.Attachment{
			Name:        meta.FileName,
			ContentType: "application/pdf",
			Data:        data,
		})
	}
	return s.mailer.Send(ctx, msg)
}

// MedicationReminderInput is one medication schedule requested at discharge.
type MedicationReminderInput struct {
	Name         string   `json:"name"`
	Dosage       string   `json:"dosage"`
	Times        []string `json:"times"`
	DurationDays int      `json:"duration_days"`
	Notes        string   `json:"notes,omitempty"`
}

// RegisterReminders creates medication schedules for the record's chat
// recipient, plus the standard follow-up reminder when the record has a
// calendar appointment.
func (s *Service) RegisterReminders(id uuid.UUID, meds []MedicationReminderInput) ([]string, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if rec.ChatID == "" {
		return nil, fmt.Errorf("%w: record has no chat recipient", ErrValidation)
	}
	if len(meds) == 0 {
		return nil, fmt.Errorf("%w: no medications given", ErrValidation)
	}

	ids := make([]string, 0, len(meds))
	for _, med := range meds {
		scheduleID, err := s.reminders.AddMedicationSchedule(med.Name, med.Dosage, med.Times, med.DurationDays, med.Notes, rec.ChatID)
		if err != nil {
			return ids, fmt.Errorf("schedule %s: %w", med.Name, err)
		}
		ids = append(ids, scheduleID)
	}
	s.logger.Info().Str("record_id", rec.ID.String()).Int("schedules", len(ids)).Msg("medication reminders registered")
	return ids, nil
}
