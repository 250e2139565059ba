package reminder

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/schedules/medications", h.CreateMedicationSchedule)
	api.POST("/schedules/followups", h.CreateFollowUpSchedule)
	api.POST("/schedules/:id/stop", h.StopSchedule)
	api.GET("/schedules/active", h.ListActive)
	api.GET("/schedules/summary", h.Summary)
}

type createMedicationRequest struct {
	MedicationName  string   `json:"medication_name"`
	Dosage          string   `json:"dosage"`
	Times           []string `json:"times"`
	DurationDays    int      `json:"duration_days"`
	AdditionalNotes string   `json:"additional_notes"`
	Recipient       string   `json:"recipient"`
}

func (h *Handler) CreateMedicationSchedule(c echo.Context) error {
	var req createMedicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	id, err := h.manager.AddMedicationSchedule(req.MedicationName, req.Dosage, req.Times, req.DurationDays, req.AdditionalNotes, req.Recipient)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

type createFollowUpRequest struct {
	AppointmentType    string    `json:"appointment_type"`
	AppointmentDate    time.Time `json:"appointment_date"`
	AppointmentTime    string    `json:"appointment_time"`
	Location           string    `json:"location"`
	Notes              string    `json:"notes"`
	ReminderDaysBefore []int     `json:"reminder_days_before"`
}

func (h *Handler) CreateFollowUpSchedule(c echo.Context) error {
	var req createFollowUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	id, err := h.manager.AddFollowUpSchedule(req.AppointmentType, req.AppointmentDate, req.AppointmentTime, req.Location, req.Notes, req.ReminderDaysBefore)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) StopSchedule(c echo.Context) error {
	if err := h.manager.StopSchedule(c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopped"})
}

func (h *Handler) ListActive(c echo.Context) error {
	meds, fus := h.manager.ListActive()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"medications": meds,
		"followups":   fus,
	})
}

func (h *Handler) Summary(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"summary": h.manager.SummaryText()})
}

// httpError maps the reminder error taxonomy to HTTP status codes.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
