package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"auctionWatch/business/scoring"
	"auctionWatch/domain"
	"auctionWatch/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type ResponseError struct {
	Message string `json:"message"`
}

type AnalysisService interface {
	RunAnalysis(ctx context.Context, w domain.AnalysisWindow) (*domain.RunReport, error)
	Status() domain.RunState
	LastReport() *domain.RunReport
	Rating(ctx context.Context, login string) (domain.WinnerRating, error)
	TopRatings(ctx context.Context, threshold float64, limit int) ([]domain.WinnerRating, error)
	RunEvidence(ctx context.Context, runID string) ([]domain.AnalysisEvidence, error)
}

type AnalysisHandler struct {
	analysisService AnalysisService
	validator       *validator.Validate
	timeout         time.Duration
	windowMonths    int
}

func NewAnalysisHandler(analysisService AnalysisService, windowMonths int) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		validator:       validator.New(),
		timeout:         10 * time.Second,
		windowMonths:    windowMonths,
	}
}

type RunAnalysisRequest struct {
	From         *time.Time `json:"from"`
	To           *time.Time `json:"to"`
	WindowMonths int        `json:"window_months" validate:"gte=0,lte=120"`
}

func (r RunAnalysisRequest) window(defaultMonths int) domain.AnalysisWindow {
	if r.From != nil || r.To != nil {
		var w domain.AnalysisWindow
		if r.From != nil {
			w.From = *r.From
		}
		if r.To != nil {
			w.To = *r.To
		}
		return w
	}
	months := r.WindowMonths
	if months == 0 {
		months = defaultMonths
	}
	now := time.Now()
	return domain.AnalysisWindow{From: now.AddDate(0, -months, 0), To: now}
}

// RunAnalysis kicks off a batch run in the background and returns
// immediately. A run already in flight yields 409; the report endpoint
// serves the result once the run finishes.
func (h *AnalysisHandler) RunAnalysis(c echo.Context) error {
	var req RunAnalysisRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind run request", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validator.Struct(&req); err != nil {
		logger.Error("Failed to validate run request", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	state := h.analysisService.Status()
	if state != domain.RunIdle && state != domain.RunDone {
		return c.JSON(http.StatusConflict, ResponseError{Message: scoring.ErrRunInProgress.Error()})
	}

	window := req.window(h.windowMonths)
	go func() {
		// Detached from the request so a closed connection cannot abort
		// a half-finished batch.
		if _, err := h.analysisService.RunAnalysis(context.Background(), window); err != nil && !errors.Is(err, scoring.ErrRunInProgress) {
			logger.Error("Background analysis run failed", err)
		}
	}()

	return c.JSON(http.StatusAccepted, fres.Response.StatusOK(map[string]interface{}{
		"window": window,
	}))
}

func (h *AnalysisHandler) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{
		"state": h.analysisService.Status(),
	}))
}

func (h *AnalysisHandler) GetReport(c echo.Context) error {
	report := h.analysisService.LastReport()
	if report == nil {
		return c.JSON(http.StatusNotFound, ResponseError{Message: "no completed analysis run yet"})
	}
	return c.JSON(http.StatusOK, fres.Response.StatusOK(report))
}

func (h *AnalysisHandler) GetRating(c echo.Context) error {
	login := c.Param("login")
	if login == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "missing login"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	rating, err := h.analysisService.Rating(ctx, login)
	if err != nil {
		if errors.Is(err, scoring.ErrRatingNotFound) {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		logger.Error("Failed to find rating", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(rating))
}

func (h *AnalysisHandler) GetTopRatings(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid limit"})
		}
		limit = parsed
	}

	var threshold float64
	if raw := c.QueryParam("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid threshold"})
		}
		threshold = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	ratings, err := h.analysisService.TopRatings(ctx, threshold, limit)
	if err != nil {
		logger.Error("Failed to find top ratings", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(ratings))
}

func (h *AnalysisHandler) GetRunEvidence(c echo.Context) error {
	runID := c.Param("run_id")
	if runID == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "missing run id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	rows, err := h.analysisService.RunEvidence(ctx, runID)
	if err != nil {
		logger.Error("Failed to find run evidence", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(rows))
}
