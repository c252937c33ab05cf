package handler

import (
	"net/http"
	"slices"

	"fabro-storefront/internal/catalog"
	"fabro-storefront/internal/dto"

	"github.com/labstack/echo/v4"
)

type CatalogHandler struct {
	catalog catalog.Catalog
}

func NewCatalogHandler(catalog catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
	}
}

func (h *CatalogHandler) ListProducts(c echo.Context) error {
	category := c.QueryParam("category")
	if category == "" {
		category = catalog.CategoryAll
	}

	products := h.catalog.ByCategory(category)
	if section := c.QueryParam("section"); section != "" {
		products = slices.DeleteFunc(products, func(p catalog.Product) bool {
			return !slices.Contains(p.Sections, section)
		})
	}
	if products == nil {
		products = []catalog.Product{}
	}

	return c.JSON(http.StatusOK, dto.ProductListResponse{
		Products: products,
		Total:    len(products),
	})
}

func (h *CatalogHandler) GetProduct(c echo.Context) error {
	product, err := h.catalog.ByID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	reviews := h.catalog.Reviews(product.ID)
	if reviews == nil {
		reviews = []catalog.Review{}
	}

	return c.JSON(http.StatusOK, dto.ProductDetailResponse{
		Product:       product,
		Reviews:       reviews,
		AverageRating: catalog.AverageRating(reviews),
	})
}

func (h *CatalogHandler) Categories(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog.Categories())
}

func (h *CatalogHandler) Sections(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog.Sections())
}
