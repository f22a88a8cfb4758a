package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"flagsplit/domain"
	"flagsplit/pkg/logger"

	"github.com/labstack/echo/v4"
)

type SplitTestResultRepository interface {
	FindByFeature(ctx context.Context, featureID uint) ([]domain.SplitTest, error)
}

type SplitTestUpdater interface {
	UpdateFeatureSplitTest(ctx context.Context, featureID uint) error
}

type SplitTestHandler struct {
	resultRepo SplitTestResultRepository
	updater    SplitTestUpdater
	timeout    time.Duration
}

func NewSplitTestHandler(resultRepo SplitTestResultRepository, updater SplitTestUpdater) *SplitTestHandler {
	return &SplitTestHandler{
		resultRepo: resultRepo,
		updater:    updater,
		timeout:    30 * time.Second,
	}
}

// SplitTestResult is the read model returned to admins. The control arm is
// reported with a null option id.
type SplitTestResult struct {
	EnvironmentID        uint    `json:"environment_id"`
	MultivariateOptionID *uint   `json:"multivariate_option_id"`
	EvaluationCount      int     `json:"evaluation_count"`
	ConversionCount      int     `json:"conversion_count"`
	PValue               float64 `json:"pvalue"`
	UpdatedAt            string  `json:"updated_at"`
}

// GET /api/v1/admin/features/:id/split-tests
func (h *SplitTestHandler) GetResults(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid feature id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	rows, err := h.resultRepo.FindByFeature(ctx, uint(id))
	if err != nil {
		logger.Error("Failed to load split test results", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	results := make([]SplitTestResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, SplitTestResult{
			EnvironmentID:        row.EnvironmentID,
			MultivariateOptionID: row.MultivariateOptionID,
			EvaluationCount:      row.EvaluationCount,
			ConversionCount:      row.ConversionCount,
			PValue:               row.PValue,
			UpdatedAt:            row.UpdatedAt.Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"feature_id": uint(id),
		"results":    results,
	})
}

// POST /api/v1/admin/features/:id/split-tests/refresh
//
// Runs the same per-feature update the scheduler runs, on demand.
func (h *SplitTestHandler) RefreshFeature(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid feature id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.updater.UpdateFeatureSplitTest(ctx, uint(id)); err != nil {
		logger.Error("Failed to refresh split test", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "split test updated",
	})
}
