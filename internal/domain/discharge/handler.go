package discharge

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/blobstore"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/discharges", h.create)
	g.GET("/discharges", h.list)
	g.GET("/discharges/:id", h.get)
	g.POST("/discharges/:id/audio", h.transcribe)
	g.POST("/discharges/:id/summary", h.generateSummary)
	g.PUT("/discharges/:id/summary", h.setSummary)
	g.POST("/discharges/:id/summary/simplify", h.simplifySummary)
	g.POST("/discharges/:id/pdf", h.renderPDF)
	g.POST("/discharges/:id/notify", h.notify)
	g.POST("/discharges/:id/reminders", h.registerReminders)
}

type recordRequest struct {
	Name           string   `json:"name"`
	Age            int      `json:"age"`
	Gender         string   `json:"gender"`
	Diagnosis      string   `json:"diagnosis"`
	AdmissionDate  string   `json:"admission_date"`
	DischargeDate  string   `json:"discharge_date"`
	Email          string   `json:"email"`
	ChatID         string   `json:"chat_id"`
	MedicalHistory string   `json:"medical_history"`
	Medications    []string `json:"medications"`
	RiskFactors    []string `json:"risk_factors"`
}

func (h *Handler) create(c echo.Context) error {
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rec := &PatientRecord{
		Name:           req.Name,
		Age:            req.Age,
		Gender:         req.Gender,
		Diagnosis:      req.Diagnosis,
		Email:          req.Email,
		ChatID:         req.ChatID,
		MedicalHistory: req.MedicalHistory,
		Medications:    req.Medications,
		RiskFactors:    req.RiskFactors,
	}
	for _, d := range []struct {
		raw  string
		dest *time.Time
	}{
		{req.AdmissionDate, &rec.AdmissionDate},
		{req.DischargeDate, &rec.DischargeDate},
	} {
		if d.raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", d.raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "dates must use YYYY-MM-DD")
		}
		*d.dest = t
	}

	if err := h.svc.CreateRecord(rec); err != nil {
		return recordError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) list(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.List())
}

func (h *Handler) get(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.Get(id)
	if err != nil {
		return recordError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) transcribe(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "audio file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to open uploaded file")
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	rec, err := h.svc.TranscribeAudio(c.Request().Context(), id, src, file.Filename, contentType)
	if err != nil {
		return recordError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) generateSummary(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.GenerateSummary(c.Request().Context(), id)
	if err != nil {
		return recordError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) setSummary(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	var req struct {
		Summary string `json:"summary"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rec, err := h.svc.SetSummary(id, req.Summary)
	if err != nil {
		return recordError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) simplifySummary(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	var req struct {
		Instruction  string `json:"instruction"`
		ReadingLevel string `json:"reading_level"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	simplified, err := h.svc.SimplifyInstructions(c.Request().Context(), id, req.Instruction, req.ReadingLevel)
	if err != nil {
		return recordError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"simplified": simplified})
}

func (h *Handler) renderPDF(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	rec, doc, err := h.svc.RenderPDF(c.Request().Context(), id)
	if err != nil {
		return recordError(err)
	}
	c.Response().Header().Set("X-Blob-ID", rec.PDFBlobID)
	return c.Blob(http.StatusOK, "application/pdf", doc)
}

func (h *Handler) notify(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	var opts NotifyOptions
	if err := c.Bind(&opts); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	result, err := h.svc.Finalize(c.Request().Context(), id, opts)
	if err != nil {
		return recordError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) registerReminders(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	var req struct {
		Medications []MedicationReminderInput `json:"medications"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ids, err := h.svc.RegisterReminders(id, req.Medications)
	if err != nil {
		return recordError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"schedule_ids": ids})
}

func recordID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}
	return id, nil
}

func recordError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "discharge record not found")
	case errors.Is(err, ErrStepNotReady):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, blobstore.ErrInvalidContentType):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
