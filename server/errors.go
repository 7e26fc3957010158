package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/taskflow/internal/apperr"
	"github.com/existflow/taskflow/internal/logger"
)

// errorBody is the envelope of every error response
type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details"`
}

// handleError renders errors returned by handlers and middleware
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			logger.F("method", c.Request().Method),
			logger.F("uri", loggedURI(c.Request())),
			logger.F("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			logger.Err(err))
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		logger.Warn("Failed to write error response", logger.Err(writeErr))
	}
}

func errorResponse(err error) (int, errorBody) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Kind.Status(), errorBody{Error: appErr.Message, Details: appErr.Details}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok && m != "" {
			msg = m
		}
		return httpErr.Code, errorBody{Error: msg}
	}

	return http.StatusInternalServerError, errorBody{Error: "Internal Server Error", Details: err.Error()}
}

// bind decodes the request body into v
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		var detail any = err.Error()
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			detail = fmt.Sprint(httpErr.Message)
		}
		return apperr.Validation("Invalid request body").WithDetails(detail)
	}
	return nil
}
