package handler

import (
	"net/http"

	"fabro-storefront/internal/dto"
	"fabro-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	adminService     service.AdminService
	lifecycleService service.LifecycleService
}

func NewAdminHandler(adminService service.AdminService, lifecycleService service.LifecycleService) *AdminHandler {
	return &AdminHandler{
		adminService:     adminService,
		lifecycleService: lifecycleService,
	}
}

func (h *AdminHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	resp, err := h.adminService.Login(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	var query dto.OrderListQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &query); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query params")
	}

	resp, err := h.lifecycleService.ListOrders(ctx, query)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	resp, err := h.lifecycleService.Dashboard(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) OrderHistory(c echo.Context) error {
	ctx := c.Request().Context()

	entries, err := h.lifecycleService.History(ctx, c.Param("orderId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}
