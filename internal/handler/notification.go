package handler

import (
	"net/http"

	"fabro-storefront/internal/dto"
	"fabro-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

func (h *NotificationHandler) SendOrderConfirmation(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.NotificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.notificationService.SendOrderConfirmation(ctx, req.OrderID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
