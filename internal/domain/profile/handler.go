package profile

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Handler exposes patient profile operations over HTTP.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients", h.createProfile)
	api.GET("/patients/similar", h.searchSimilar)
	api.GET("/patients", h.listByDiagnosis)
	api.GET("/patients/:id", h.getProfile)
	api.PUT("/patients/:id", h.updateProfile)
	api.DELETE("/patients/:id", h.deleteProfile)
}

type profileRequest struct {
	Name          string   `json:"name"`
	Age           int      `json:"age"`
	Gender        string   `json:"gender"`
	Diagnosis     string   `json:"diagnosis"`
	DischargeDate string   `json:"discharge_date"`
	Medications   []string `json:"medications"`
	FollowUpNotes string   `json:"follow_up_notes"`
	RiskFactors   []string `json:"risk_factors"`
	Comorbidities []string `json:"comorbidities"`
	TreatmentPlan string   `json:"treatment_plan"`
}

func (r *profileRequest) toProfile() (*PatientProfile, error) {
	p := &PatientProfile{
		Name:          r.Name,
		Age:           r.Age,
		Gender:        r.Gender,
		Diagnosis:     r.Diagnosis,
		Medications:   r.Medications,
		FollowUpNotes: r.FollowUpNotes,
		RiskFactors:   r.RiskFactors,
		Comorbidities: r.Comorbidities,
		TreatmentPlan: r.TreatmentPlan,
	}
	if r.DischargeDate != "" {
		d, err := time.Parse(time.RFC3339, r.DischargeDate)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "discharge_date must be RFC3339")
		}
		p.DischargeDate = d
	}
	return p, nil
}

func (h *Handler) createProfile(c echo.Context) error {
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := req.toProfile()
	if err != nil {
		return err
	}
	if err := h.service.Create(c.Request().Context(), p); err != nil {
		return profileError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) getProfile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid profile id")
	}
	p, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return profileError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) updateProfile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid profile id")
	}
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := req.toProfile()
	if err != nil {
		return err
	}
	p.ID = id
	if err := h.service.Update(c.Request().Context(), p); err != nil {
		return profileError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) deleteProfile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid profile id")
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return profileError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) listByDiagnosis(c echo.Context) error {
	diagnosis := c.QueryParam("diagnosis")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	profiles, err := h.service.ListByDiagnosis(c.Request().Context(), diagnosis, limit)
	if err != nil {
		return profileError(err)
	}
	if profiles == nil {
		profiles = []*PatientProfile{}
	}
	return c.JSON(http.StatusOK, profiles)
}

func (h *Handler) searchSimilar(c echo.Context) error {
	n, _ := strconv.Atoi(c.QueryParam("n"))
	matches, err := h.service.SearchSimilar(c.Request().Context(), c.QueryParam("q"), n)
	if err != nil {
		return profileError(err)
	}
	if matches == nil {
		matches = []Match{}
	}
	return c.JSON(http.StatusOK, matches)
}

func profileError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
