package rest

import (
	"context"
	"net/http"
	"time"

	"flagsplit/business/evaluation"
	"flagsplit/domain"
	"flagsplit/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
)

type EvaluationService interface {
	EvaluateFlags(ctx context.Context, env domain.Environment, identifier string, traits datatypes.JSONMap) ([]evaluation.Flag, error)
	TrackConversion(ctx context.Context, env domain.Environment, identifier string, eventType string, metadata datatypes.JSONMap) error
}

// SDKHandler serves the client-facing endpoints. The environment is resolved
// from the X-Environment-Key header by middleware before these run.
type SDKHandler struct {
	evalService EvaluationService
	validator   *validator.Validate
	timeout     time.Duration
}

func NewSDKHandler(evalService EvaluationService) *SDKHandler {
	return &SDKHandler{
		evalService: evalService,
		validator:   validator.New(),
		timeout:     10 * time.Second,
	}
}

type EvaluateFlagsRequest struct {
	Identifier string            `json:"identifier"`
	Traits     datatypes.JSONMap `json:"traits"`
}

type TrackConversionRequest struct {
	Identifier string            `json:"identifier" validate:"required"`
	EventType  string            `json:"event_type" validate:"required"`
	Metadata   datatypes.JSONMap `json:"metadata"`
}

func environmentFromContext(c echo.Context) (domain.Environment, bool) {
	env, ok := c.Get("environment").(domain.Environment)
	return env, ok
}

// POST /api/v1/sdk/flags
//
// An empty identifier is an anonymous evaluation: every multivariate feature
// resolves to its control value.
func (h *SDKHandler) EvaluateFlags(c echo.Context) error {
	env, ok := environmentFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "environment not resolved"})
	}

	var req EvaluateFlagsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	flags, err := h.evalService.EvaluateFlags(ctx, env, req.Identifier, req.Traits)
	if err != nil {
		logger.Error("Failed to evaluate flags", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"flags": flags,
	})
}

// GET /api/v1/sdk/flags
//
// Anonymous evaluation for clients that cannot send a body.
func (h *SDKHandler) EvaluateFlagsAnonymous(c echo.Context) error {
	env, ok := environmentFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "environment not resolved"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	flags, err := h.evalService.EvaluateFlags(ctx, env, "", nil)
	if err != nil {
		logger.Error("Failed to evaluate flags", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"flags": flags,
	})
}

// POST /api/v1/sdk/track
func (h *SDKHandler) TrackConversion(c echo.Context) error {
	env, ok := environmentFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "environment not resolved"})
	}

	var req TrackConversionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	err := h.evalService.TrackConversion(ctx, env, req.Identifier, req.EventType, req.Metadata)
	if err != nil {
		logger.Error("Failed to track conversion", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusAccepted, echo.Map{
		"message": "conversion recorded",
	})
}
