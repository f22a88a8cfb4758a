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
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type EnvironmentAdminRepository interface {
	Create(ctx context.Context, env *domain.Environment) error
	FindAll(ctx context.Context) ([]domain.Environment, error)
	FindByID(ctx context.Context, id uint) (domain.Environment, error)
}

type EnvironmentAdminHandler struct {
	envRepo   EnvironmentAdminRepository
	validator *validator.Validate
	timeout   time.Duration
}

func NewEnvironmentAdminHandler(envRepo EnvironmentAdminRepository) *EnvironmentAdminHandler {
	return &EnvironmentAdminHandler{
		envRepo:   envRepo,
		validator: validator.New(),
		timeout:   10 * time.Second,
	}
}

type CreateEnvironmentRequest struct {
	Name                              string `json:"name" validate:"required"`
	UseIdentityCompositeKeyForHashing *bool  `json:"use_identity_composite_key_for_hashing"`
}

// POST /api/v1/admin/environments
//
// The API key is generated server-side; clients never pick their own.
func (h *EnvironmentAdminHandler) CreateEnvironment(c echo.Context) error {
	var req CreateEnvironmentRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	env := domain.Environment{
		Name:                              req.Name,
		APIKey:                            "env_" + uuid.NewString(),
		UseIdentityCompositeKeyForHashing: true,
	}
	if req.UseIdentityCompositeKeyForHashing != nil {
		env.UseIdentityCompositeKeyForHashing = *req.UseIdentityCompositeKeyForHashing
	}

	if err := h.envRepo.Create(ctx, &env); err != nil {
		logger.Error("Failed to create environment", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(env))
}

// GET /api/v1/admin/environments
func (h *EnvironmentAdminHandler) GetAllEnvironments(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	envs, err := h.envRepo.FindAll(ctx)
	if err != nil {
		logger.Error("Failed to list environments", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(envs))
}

// GET /api/v1/admin/environments/:id
func (h *EnvironmentAdminHandler) GetEnvironmentByID(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid environment id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	env, err := h.envRepo.FindByID(ctx, uint(id))
	if err != nil {
		return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(env))
}
