package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedCatalog(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	require.Len(t, c.All(), 12)
	require.Equal(t, []string{"Kurtis", "Shirts", "Dupattas", "Jeans", "Accessories", "Custom Pieces"}, c.Categories())
	require.Len(t, c.Sections(), 4)

	p, err := c.ByID("1")
	require.NoError(t, err)
	require.Equal(t, "Ivory Heirloom Kurti", p.Name)
	require.Equal(t, 3500.0, p.Price)
	require.True(t, p.OnSale())

	p, err = c.ByID("2")
	require.NoError(t, err)
	require.Nil(t, p.OriginalPrice)
	require.False(t, p.OnSale())
}

func TestByIDUnknown(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	_, err = c.ByID("999")
	require.True(t, errors.Is(err, ErrProductNotFound))
}

func TestFilters(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	require.Len(t, c.ByCategory(CategoryAll), 12)

	kurtis := c.ByCategory("Kurtis")
	require.Len(t, kurtis, 3)
	for _, p := range kurtis {
		require.Equal(t, "Kurtis", p.Category)
	}

	require.Empty(t, c.ByCategory("Sarees"))

	onSale := c.BySection("on-sale")
	ids := make([]string, 0, len(onSale))
	for _, p := range onSale {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []string{"4", "7", "11", "12"}, ids)
}

func TestAllReturnsCopy(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	all := c.All()
	all[0].Name = "changed"

	p, err := c.ByID("1")
	require.NoError(t, err)
	require.Equal(t, "Ivory Heirloom Kurti", p.Name)
}

func TestReviews(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	reviews := c.Reviews("1")
	require.Len(t, reviews, 2)
	require.Equal(t, 4.5, AverageRating(reviews))
	require.Empty(t, c.Reviews("12"))
	require.Equal(t, 0.0, AverageRating(nil))
}

func TestParseRejectsBadCatalog(t *testing.T) {
	tests := map[string]string{
		"duplicate id": `
categories: [Kurtis]
products:
  - {id: "1", name: a, price: 10, category: Kurtis}
  - {id: "1", name: b, price: 20, category: Kurtis}
`,
		"unknown category": `
categories: [Kurtis]
products:
  - {id: "1", name: a, price: 10, category: Sarees}
`,
		"zero price": `
categories: [Kurtis]
products:
  - {id: "1", name: a, price: 0, category: Kurtis}
`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}
