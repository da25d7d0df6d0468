package catalog

import (
	"strings"

	"github.com/bookstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used for products created without an explicit currency
const DefaultCurrency = "RUB"

// ExternalImage is an image hosted by the ERP
type ExternalImage struct {
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// Product is a sellable item. Up to four external identifiers may be present,
// each unique when set.
type Product struct {
	shared.BaseEntity

	ExternalID   *string
	SKU          *string
	OfferID      *string
	ERPProductID *string

	Name        string
	Slug        string
	Description string
	Authors     string
	Publisher   string
	Year        *int
	Barcode     string
	ISBN        string

	Price    decimal.Decimal
	OldPrice decimal.NullDecimal
	Currency string
	VATRate  *int

	StockQty    int
	InStock     bool
	IsPublished bool

	CategoryID *uuid.UUID
	Category   *Category
	GenreID    *uuid.UUID
	Genre      *Genre

	ExternalImages   []ExternalImage
	ExternalImageURL string
	Attributes       map[string]any
}

// NewProduct creates an unsaved product. New products start out of stock
// until stock information says otherwise.
func NewProduct(name, slug string) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("product name cannot be empty")
	}
	if slug == "" {
		return nil, shared.NewValidationError("product slug cannot be empty")
	}
	return &Product{
		BaseEntity:  shared.NewBaseEntity(),
		Name:        name,
		Slug:        slug,
		Currency:    DefaultCurrency,
		StockQty:    0,
		InStock:     false,
		IsPublished: true,
		Attributes:  map[string]any{},
	}, nil
}

// IdentifierValues returns the non-empty external identifiers of the product
func (p *Product) IdentifierValues() []string {
	values := make([]string, 0, 3)
	for _, v := range []*string{p.ERPProductID, p.SKU, p.OfferID} {
		if v != nil && *v != "" {
			values = append(values, *v)
		}
	}
	return values
}

// SetStock sets the available quantity; negative values clamp to zero.
func (p *Product) SetStock(qty int) {
	if qty < 0 {
		qty = 0
	}
	p.StockQty = qty
	p.InStock = qty > 0
}

// SetImages replaces the external images and the primary image URL
func (p *Product) SetImages(images []ExternalImage, mainURL string) {
	p.ExternalImages = images
	p.ExternalImageURL = mainURL
}

// SetCategory assigns the category. A genre from another category is cleared.
func (p *Product) SetCategory(category *Category) {
	p.Category = category
	if category == nil {
		p.CategoryID = nil
		p.ClearGenre()
		return
	}
	id := category.ID
	p.CategoryID = &id
	if p.GenreID != nil && (p.Genre == nil || !p.Genre.BelongsTo(category)) {
		p.ClearGenre()
	}
}

// SetGenre assigns a genre that must belong to the product's category
func (p *Product) SetGenre(genre *Genre) error {
	if genre == nil {
		p.ClearGenre()
		return nil
	}
	if p.Category == nil || !genre.BelongsTo(p.Category) {
		return shared.NewDomainError("GENRE_CATEGORY_MISMATCH", "genre does not belong to the product category")
	}
	p.Genre = genre
	id := genre.ID
	p.GenreID = &id
	return nil
}

// ClearGenre removes the genre
func (p *Product) ClearGenre() {
	p.Genre = nil
	p.GenreID = nil
}

// SetAttribute stores a free-form attribute
func (p *Product) SetAttribute(key string, value any) {
	if p.Attributes == nil {
		p.Attributes = map[string]any{}
	}
	p.Attributes[key] = value
}
