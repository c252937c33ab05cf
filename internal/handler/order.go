package handler

import (
	"encoding/json"
	"net/http"

	"fabro-storefront/internal/dto"
	"fabro-storefront/internal/middleware"
	"fabro-storefront/internal/model"
	"fabro-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

// fields an admin may change through PUT /api/orders/:orderId
var updatableOrderFields = map[string]bool{
	"order_status": true,
	"note":         true,
}

type OrderHandler struct {
	orderService        service.OrderService
	lifecycleService    service.LifecycleService
	notificationService service.NotificationService
}

func NewOrderHandler(
	orderService service.OrderService,
	lifecycleService service.LifecycleService,
	notificationService service.NotificationService,
) *OrderHandler {
	return &OrderHandler{
		orderService:        orderService,
		lifecycleService:    lifecycleService,
		notificationService: notificationService,
	}
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	resp, err := h.orderService.PlaceOrder(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, resp)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.lifecycleService.GetOrder(ctx, c.Param("orderId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) UpdateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var patch map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	for field := range patch {
		if !updatableOrderFields[field] {
			return echo.NewHTTPError(http.StatusBadRequest, "field "+field+" cannot be updated")
		}
	}

	var req dto.UpdateOrderRequest
	if raw, ok := patch["order_status"]; !ok || json.Unmarshal(raw, &req.OrderStatus) != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "order_status is required")
	}
	if raw, ok := patch["note"]; ok && json.Unmarshal(raw, &req.Note) != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "note must be a string")
	}

	actor, _ := c.Get(middleware.AdminEmailKey).(string)
	order, err := h.lifecycleService.UpdateStatus(ctx, c.Param("orderId"), model.OrderStatus(req.OrderStatus), actor, req.Note)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) WhatsAppLink(c echo.Context) error {
	ctx := c.Request().Context()

	link, err := h.notificationService.WhatsAppLink(ctx, c.Param("orderId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, link)
}

func (h *OrderHandler) TrackOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.lifecycleService.TrackOrder(ctx, c.QueryParam("orderNumber"), c.QueryParam("contact"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, order)
}
