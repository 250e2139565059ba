// Package calendar schedules follow-up appointments on an external
// calendar service using its REST events API.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Event is a calendar entry to be created.
type Event struct {
	Summary         string
	Location        string
	Description     string
	Start           time.Time
	End             time.Time
	ReminderMinutes int
}

// EventCreator places events on a patient's calendar.
type EventCreator interface {
	CreateEvent(ctx context.Context, ev Event) (string, error)
}

// NewFollowUpEvent builds the standard follow-up visit event seven days
// after discharge.
func NewFollowUpEvent(patientName, doctorName, location string, dischargeDate time.Time) Event {
	start := dischargeDate.AddDate(0, 0, 7)
	return Event{
		Summary:         fmt.Sprintf("Follow-up: %s with %s", patientName, doctorName),
		Location:        location,
		Description:     fmt.Sprintf("Post-discharge follow-up appointment for %s.", patientName),
		Start:           start,
		End:             start.Add(30 * time.Minute),
		ReminderMinutes: 60,
	}
}

// NewMedicationReviewEvent builds a medication review entry.
func NewMedicationReviewEvent(patientName string, at time.Time, medications []string) Event {
	return Event{
		Summary:         fmt.Sprintf("Medication Review: %s", patientName),
		Description:     "Review current medications: " + strings.Join(medications, ", "),
		Start:           at,
		End:             at.Add(30 * time.Minute),
		ReminderMinutes: 60,
	}
}

// RESTClient talks to a Google-Calendar-compatible events endpoint.
type RESTClient struct {
	baseURL    string
	calendarID string
	token      string
	timeZone   string
	client     *http.Client
	logger     zerolog.Logger
}

func NewRESTClient(baseURL, calendarID, token, timeZone string, logger zerolog.Logger) *RESTClient {
	if calendarID == "" {
		calendarID = "primary"
	}
	if timeZone == "" {
		timeZone = "UTC"
	}
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		calendarID: calendarID,
		token:      token,
		timeZone:   timeZone,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "calendar").Logger(),
	}
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type eventPayload struct {
	Summary     string    `json:"summary"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
	Reminders   struct {
		UseDefault bool `json:"useDefault"`
		Overrides  []struct {
			Method  string `json:"method"`
			Minutes int    `json:"minutes"`
		} `json:"overrides"`
	} `json:"reminders"`
}

func (c *RESTClient) CreateEvent(ctx context.Context, ev Event) (string, error) {
	if strings.TrimSpace(ev.Summary) == "" {
		return "", fmt.Errorf("calendar: event summary required")
	}
	if !ev.End.After(ev.Start) {
		return "", fmt.Errorf("calendar: event end must be after start")
	}
	minutes := ev.ReminderMinutes
	if minutes <= 0 {
		minutes = 60
	}

	payload := eventPayload{
		Summary:     ev.Summary,
		Location:    ev.Location,
		Description: ev.Description,
		Start:       eventTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: c.timeZone},
		End:         eventTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: c.timeZone},
	}
	payload.Reminders.Overrides = []struct {
		Method  string `json:"method"`
		Minutes int    `json:"minutes"`
	}{
		{Method: "email", Minutes: minutes},
		{Method: "popup", Minutes: minutes},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("calendar: encode event: %w", err)
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(c.calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("calendar: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calendar: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("calendar: service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("calendar: decode response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("calendar: service returned no event id")
	}
	c.logger.Info().Str("event_id", created.ID).Str("summary", ev.Summary).Msg("calendar event created")
	return created.ID, nil
}
