package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"flagsplit/domain"
	"flagsplit/pkg/logger"

	"github.com/AMFarhan21/fres"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// FeatureAdminRepository is the write-side surface the admin API needs; the
// postgres FeatureRepository satisfies it.
type FeatureAdminRepository interface {
	Create(ctx context.Context, feature *domain.Feature) error
	FindAll(ctx context.Context) ([]domain.Feature, error)
	FindByID(ctx context.Context, id uint) (domain.Feature, error)
	CreateOption(ctx context.Context, option *domain.MultivariateOption) error
	UpsertState(ctx context.Context, state *domain.FeatureState) error
}

type FeatureAdminHandler struct {
	featureRepo FeatureAdminRepository
	validator   *validator.Validate
	timeout     time.Duration
}

func NewFeatureAdminHandler(featureRepo FeatureAdminRepository) *FeatureAdminHandler {
	return &FeatureAdminHandler{
		featureRepo: featureRepo,
		validator:   validator.New(),
		timeout:     10 * time.Second,
	}
}

type CreateFeatureRequest struct {
	Name         string `json:"name" validate:"required"`
	Type         string `json:"type" validate:"required,oneof=standard multivariate"`
	DefaultValue string `json:"default_value"`
}

type CreateOptionRequest struct {
	Value                string  `json:"value" validate:"required"`
	PercentageAllocation float64 `json:"percentage_allocation" validate:"gte=0,lte=100"`
}

type UpsertStateRequest struct {
	EnvironmentID uint   `json:"environment_id" validate:"required"`
	Enabled       bool   `json:"enabled"`
	Value         string `json:"value"`
}

// POST /api/v1/admin/features
func (h *FeatureAdminHandler) CreateFeature(c echo.Context) error {
	var req CreateFeatureRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	feature := domain.Feature{
		Name:         req.Name,
		Type:         req.Type,
		DefaultValue: req.DefaultValue,
	}
	if err := h.featureRepo.Create(ctx, &feature); err != nil {
		logger.Error("Failed to create feature", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(feature))
}

// GET /api/v1/admin/features
func (h *FeatureAdminHandler) GetAllFeatures(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	features, err := h.featureRepo.FindAll(ctx)
	if err != nil {
		logger.Error("Failed to list features", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(features))
}

// GET /api/v1/admin/features/:id
func (h *FeatureAdminHandler) GetFeatureByID(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid feature id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	feature, err := h.featureRepo.FindByID(ctx, uint(id))
	if err != nil {
		return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(feature))
}

// POST /api/v1/admin/features/:id/options
func (h *FeatureAdminHandler) AddOption(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid feature id"})
	}

	var req CreateOptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	feature, err := h.featureRepo.FindByID(ctx, uint(id))
	if err != nil {
		return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
	}
	if feature.Type != domain.FeatureTypeMultivariate {
		return c.JSON(http.StatusBadRequest, ResponseError{
			Message: "options can only be added to multivariate features",
		})
	}

	option := domain.MultivariateOption{
		FeatureID:            feature.ID,
		Value:                req.Value,
		PercentageAllocation: req.PercentageAllocation,
	}
	if err := h.featureRepo.CreateOption(ctx, &option); err != nil {
		logger.Error("Failed to create option", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(option))
}

// PUT /api/v1/admin/features/:id/states
func (h *FeatureAdminHandler) UpsertState(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid feature id"})
	}

	var req UpsertStateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	state := domain.FeatureState{
		FeatureID:     uint(id),
		EnvironmentID: req.EnvironmentID,
		Enabled:       req.Enabled,
		Value:         req.Value,
	}
	if err := h.featureRepo.UpsertState(ctx, &state); err != nil {
		logger.Error("Failed to upsert feature state", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(state))
}
