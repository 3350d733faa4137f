package scoring

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/MatanKJaffe/CFSCalculator/internal/platform/auth"
	"github.com/MatanKJaffe/CFSCalculator/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	scoreGroup := api.Group("", auth.RequireRole("admin", "clinician"))
	scoreGroup.POST("/score", h.Score)
	scoreGroup.POST("/score/facts", h.ScoreFacts)
	scoreGroup.GET("/results", h.ListResults)
	scoreGroup.GET("/results/:patientNum", h.ListPatientResults)
	scoreGroup.GET("/rules", h.ListRules)
}

type scoreRequest struct {
	Patients []PatientRecord `json:"patients"`
	Persist  bool            `json:"persist"`
}

type scoreResponse struct {
	Results []*Result     `json:"results"`
	Summary *BatchSummary `json:"summary"`
}

// Score scores a batch of patient records in one run. With persist set, the
// run is also written to storage; persistence must be configured or the
// request fails without scoring.
func (h *Handler) Score(c echo.Context) error {
	var req scoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Patients) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "patients is required")
	}
	for _, p := range req.Patients {
		if p.PatientNum == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "patient_num is required for every patient")
		}
	}
	if req.Persist && !h.svc.Persistent() {
		return echo.NewHTTPError(http.StatusConflict, "result persistence is not configured")
	}

	ctx := c.Request().Context()
	results, summary := h.svc.ScoreBatch(ctx, req.Patients)

	if req.Persist {
		if err := h.svc.SaveBatch(ctx, results); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, scoreResponse{Results: results, Summary: summary})
}

type scoreFactsRequest struct {
	PatientNum string                 `json:"patient_num"`
	Facts      map[string]interface{} `json:"facts"`
}

// ScoreFacts evaluates a caller-supplied fact snapshot directly.
func (h *Handler) ScoreFacts(c echo.Context) error {
	var req scoreFactsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.ScoreFacts(c.Request().Context(), req.PatientNum, req.Facts)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ListResults(c echo.Context) error {
	if !h.svc.Persistent() {
		return echo.NewHTTPError(http.StatusConflict, "result persistence is not configured")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListResults(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListPatientResults(c echo.Context) error {
	if !h.svc.Persistent() {
		return echo.NewHTTPError(http.StatusConflict, "result persistence is not configured")
	}
	patientNum := c.Param("patientNum")
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListResultsByPatient(c.Request().Context(), patientNum, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if total == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no results for patient")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListRules(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"rules": h.svc.Rules(),
		"count": len(h.svc.Rules()),
	})
}
