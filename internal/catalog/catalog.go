package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// CategoryAll selects every product in ByCategory.
const CategoryAll = "All"

var ErrProductNotFound = errors.New("product not found")

type Product struct {
	ID                string   `yaml:"id" json:"id"`
	Name              string   `yaml:"name" json:"name"`
	Description       string   `yaml:"description" json:"description"`
	Price             float64  `yaml:"price" json:"price"`
	OriginalPrice     *float64 `yaml:"original_price" json:"originalPrice,omitempty"`
	Rating            float64  `yaml:"rating" json:"rating"`
	ReviewCount       int      `yaml:"review_count" json:"reviewCount"`
	Category          string   `yaml:"category" json:"category"`
	Sections          []string `yaml:"sections" json:"sections"`
	Image             string   `yaml:"image" json:"image"`
	EmbroideryDetails string   `yaml:"embroidery_details" json:"embroideryDetails"`
	Fabric            string   `yaml:"fabric" json:"fabric"`
	Care              string   `yaml:"care" json:"care"`
	Color             string   `yaml:"color,omitempty" json:"color,omitempty"`
}

// OnSale reports whether the product carries a struck-through original price.
func (p *Product) OnSale() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

type Section struct {
	ID          string `yaml:"id" json:"id"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description" json:"description"`
}

type Review struct {
	ID        string `yaml:"id" json:"id"`
	ProductID string `yaml:"product_id" json:"productId"`
	Rating    int    `yaml:"rating" json:"rating"`
	Text      string `yaml:"text" json:"text"`
	Author    string `yaml:"author" json:"author"`
	Country   string `yaml:"country" json:"country"`
	Date      string `yaml:"date" json:"date"`
}

type document struct {
	Categories []string  `yaml:"categories"`
	Sections   []Section `yaml:"sections"`
	Products   []Product `yaml:"products"`
	Reviews    []Review  `yaml:"reviews"`
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog interface {
	All() []Product
	ByID(id string) (*Product, error)
	ByCategory(category string) []Product
	BySection(section string) []Product
	Categories() []string
	Sections() []Section
	Reviews(productID string) []Review
}

type catalogImpl struct {
	products   []Product
	byID       map[string]int
	categories []string
	sections   []Section
	reviews    []Review
}

// New loads the catalog embedded in the binary.
func New() (Catalog, error) {
	return Parse(catalogYAML)
}

func Parse(data []byte) (Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &catalogImpl{
		products:   doc.Products,
		byID:       make(map[string]int, len(doc.Products)),
		categories: doc.Categories,
		sections:   doc.Sections,
		reviews:    doc.Reviews,
	}

	for i, p := range doc.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog product at index %d has no id", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog product id %q", p.ID)
		}
		if p.Price <= 0 {
			return nil, fmt.Errorf("catalog product %q has non-positive price", p.ID)
		}
		if !slices.Contains(doc.Categories, p.Category) {
			return nil, fmt.Errorf("catalog product %q has unknown category %q", p.ID, p.Category)
		}
		c.byID[p.ID] = i
	}

	return c, nil
}

func (c *catalogImpl) All() []Product {
	return slices.Clone(c.products)
}

func (c *catalogImpl) ByID(id string) (*Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	p := c.products[i]
	return &p, nil
}

func (c *catalogImpl) ByCategory(category string) []Product {
	if category == CategoryAll {
		return c.All()
	}
	return c.filter(func(p *Product) bool { return p.Category == category })
}

func (c *catalogImpl) BySection(section string) []Product {
	return c.filter(func(p *Product) bool { return slices.Contains(p.Sections, section) })
}

func (c *catalogImpl) Categories() []string {
	return slices.Clone(c.categories)
}

func (c *catalogImpl) Sections() []Section {
	return slices.Clone(c.sections)
}

func (c *catalogImpl) Reviews(productID string) []Review {
	var out []Review
	for _, r := range c.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out
}

func (c *catalogImpl) filter(keep func(*Product) bool) []Product {
	var out []Product
	for i := range c.products {
		if keep(&c.products[i]) {
			out = append(out, c.products[i])
		}
	}
	return out
}

// AverageRating rounds to one decimal place; no reviews yields 0.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return math.Round(float64(sum)/float64(len(reviews))*10) / 10
}
