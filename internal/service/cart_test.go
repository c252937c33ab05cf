package service

import (
	"context"
	"testing"

	"fabro-storefront/internal/catalog"
	"fabro-storefront/internal/dto"

	"github.com/stretchr/testify/require"
)

func newCartService(t *testing.T) CartService {
	t.Helper()
	c, err := catalog.New()
	require.NoError(t, err)
	return NewCartService(c)
}

func TestQuotePricesFromCatalog(t *testing.T) {
	svc := newCartService(t)

	quote, err := svc.Quote(context.Background(), &dto.CartQuoteRequest{Items: []dto.CartQuoteItem{
		{ProductID: "1", Quantity: 1},
		{ProductID: "3", Quantity: 2},
		{ProductID: "1", Quantity: 1},
	}})
	require.NoError(t, err)

	require.Len(t, quote.Items, 2)
	require.Equal(t, "Ivory Heirloom Kurti", quote.Items[0].Name)
	require.Equal(t, 2, quote.Items[0].Quantity)
	require.Equal(t, 4, quote.TotalItems)
	require.Equal(t, 10600.0, quote.TotalPrice)
}

func TestQuoteRejects(t *testing.T) {
	svc := newCartService(t)
	ctx := context.Background()

	_, err := svc.Quote(ctx, &dto.CartQuoteRequest{})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Quote(ctx, &dto.CartQuoteRequest{Items: []dto.CartQuoteItem{{ProductID: "1", Quantity: 0}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Quote(ctx, &dto.CartQuoteRequest{Items: []dto.CartQuoteItem{{ProductID: "404", Quantity: 1}}})
	require.ErrorIs(t, err, ErrNotFound)
}
