package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fabro-storefront/internal/cart"
	"fabro-storefront/internal/catalog"
	"fabro-storefront/internal/dto"
)

const maxLineQuantity = 99

type CartService interface {
	Quote(ctx context.Context, req *dto.CartQuoteRequest) (*dto.CartQuoteResponse, error)
}

type cartServiceImpl struct {
	catalog catalog.Catalog
}

func NewCartService(catalog catalog.Catalog) CartService {
	return &cartServiceImpl{catalog: catalog}
}

// Quote prices the requested lines against the catalog, ignoring any client-side prices.
func (s *cartServiceImpl) Quote(_ context.Context, req *dto.CartQuoteRequest) (*dto.CartQuoteResponse, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, validationErr("cart must contain at least one item")
	}

	c := cart.New()
	for i, item := range req.Items {
		if item.Quantity < 1 || item.Quantity > maxLineQuantity {
			return nil, validationErr("item %d: quantity must be between 1 and %d", i+1, maxLineQuantity)
		}

		product, err := s.catalog.ByID(strings.TrimSpace(item.ProductID))
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: product %q", ErrNotFound, item.ProductID)
			}
			return nil, err
		}

		c.Add(cart.Item{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Quantity: item.Quantity,
			Image:    product.Image,
			Category: product.Category,
		})
	}

	total, _ := c.TotalPrice().Float64()
	return &dto.CartQuoteResponse{
		Items:      c.Items(),
		TotalItems: c.TotalItems(),
		TotalPrice: total,
	}, nil
}
