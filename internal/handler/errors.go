package handler

import (
	"errors"
	"fmt"
	"net/http"

	"fabro-storefront/internal/dto"
	"fabro-storefront/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NewHTTPErrorHandler turns every error returned by a handler into the JSON error body.
// Server-side failures are logged in full and answered with a generic message.
func NewHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, message := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Error(err),
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, dto.ErrorResponse{Success: false, Error: message})
		}
		if writeErr != nil {
			logger.Error("write error response", zap.Error(writeErr))
		}
	}
}

func classify(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, fmt.Sprint(httpErr.Message)
	}

	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrSignatureMismatch),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrPaymentGateway):
		return http.StatusBadGateway, "payment gateway request failed"
	case errors.Is(err, service.ErrDelivery):
		return http.StatusBadGateway, "notification could not be delivered"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
