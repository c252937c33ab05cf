package handler

import (
	"net/http"

	"fabro-storefront/internal/dto"
	"fabro-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	cartService service.CartService
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

func (h *CartHandler) Quote(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CartQuoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	quote, err := h.cartService.Quote(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, quote)
}
