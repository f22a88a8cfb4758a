package middleware

import (
	"net/http"

	"flagsplit/pkg/logger"

	jsonres "flagsplit/pkg/response"

	"github.com/labstack/echo/v4"
)

// ErrorHandler is the echo HTTPErrorHandler. Handlers mostly respond
// directly; this catches routing errors and anything that escapes.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
	}

	if code >= http.StatusInternalServerError {
		logger.Error("Unhandled request error", err)
	}

	if err := c.JSON(code, jsonres.Error("ERROR", message, nil)); err != nil {
		logger.Error("Failed to write error response", err)
	}
}
