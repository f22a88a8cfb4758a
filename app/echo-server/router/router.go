package router

import (
	"flagsplit/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupUserRoutes(api *echo.Group, handler *rest.UserHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	users := api.Group("/users")

	users.POST("/register", handler.Register)
	users.POST("/login", handler.Login)

	users.GET("", handler.GetAllUsers, authRequired, adminOnly)
	users.GET("/:id", handler.GetUserByID, authRequired, adminOnly)
	users.DELETE("/:id", handler.DeleteUser, authRequired, adminOnly)
}

func SetupFeatureAdminRoutes(api *echo.Group, handler *rest.FeatureAdminHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	features := api.Group("/admin/features", authRequired, adminOnly)

	features.POST("", handler.CreateFeature)
	features.GET("", handler.GetAllFeatures)
	features.GET("/:id", handler.GetFeatureByID)
	features.POST("/:id/options", handler.AddOption)
	features.PUT("/:id/states", handler.UpsertState)
}

func SetupEnvironmentAdminRoutes(api *echo.Group, handler *rest.EnvironmentAdminHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	envs := api.Group("/admin/environments", authRequired, adminOnly)

	envs.POST("", handler.CreateEnvironment)
	envs.GET("", handler.GetAllEnvironments)
	envs.GET("/:id", handler.GetEnvironmentByID)
}

func SetupSplitTestRoutes(api *echo.Group, handler *rest.SplitTestHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	tests := api.Group("/admin/features/:id/split-tests", authRequired, adminOnly)

	tests.GET("", handler.GetResults)
	tests.POST("/refresh", handler.RefreshFeature)
}

// SDK routes authenticate with the environment key header instead of a JWT.
func SetupSDKRoutes(api *echo.Group, handler *rest.SDKHandler, envKey echo.MiddlewareFunc) {
	sdk := api.Group("/sdk", envKey)

	sdk.POST("/flags", handler.EvaluateFlags)
	sdk.GET("/flags", handler.EvaluateFlagsAnonymous)
	sdk.POST("/track", handler.TrackConversion)
}
