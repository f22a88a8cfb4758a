package middleware

import (
	"context"
	"net/http"

	"flagsplit/domain"
	"flagsplit/pkg/logger"

	jsonres "flagsplit/pkg/response"

	"github.com/labstack/echo/v4"
)

// EnvironmentResolver looks an environment up by its API key. The postgres
// EnvironmentRepository satisfies it.
type EnvironmentResolver interface {
	FindByAPIKey(ctx context.Context, apiKey string) (domain.Environment, error)
}

// EnvironmentCache is the Redis front for resolved environments. A nil cache
// hit means a miss, not an error.
type EnvironmentCache interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.Environment, error)
	Set(ctx context.Context, env domain.Environment) error
}

// EnvironmentKey resolves the X-Environment-Key header to an environment and
// stores it on the echo context. Cache failures fall through to Postgres.
func EnvironmentKey(resolver EnvironmentResolver, cache EnvironmentCache) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			apiKey := c.Request().Header.Get("X-Environment-Key")
			if apiKey == "" {
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Missing X-Environment-Key header", nil,
				))
			}

			ctx := c.Request().Context()

			if cache != nil {
				cached, err := cache.GetByAPIKey(ctx, apiKey)
				if err != nil {
					logger.Warn("environment_cache_read_failed", "error", err)
				} else if cached != nil {
					c.Set("environment", *cached)
					return next(c)
				}
			}

			env, err := resolver.FindByAPIKey(ctx, apiKey)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Invalid environment key", nil,
				))
			}

			if cache != nil {
				if err := cache.Set(ctx, env); err != nil {
					logger.Warn("environment_cache_write_failed", "error", err)
				}
			}

			c.Set("environment", env)

			return next(c)
		}
	}
}
