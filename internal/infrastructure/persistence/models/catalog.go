package models

import (
	"time"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryModel is the persistence model for catalog.Category
type CategoryModel struct {
	BaseModel
	Name string `gorm:"type:varchar(100);not null;uniqueIndex:idx_categories_name"`
	Slug string `gorm:"type:varchar(150);not null;uniqueIndex:idx_categories_slug"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the model to a domain Category
func (m *CategoryModel) ToDomain() *catalog.Category {
	return &catalog.Category{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Slug:       m.Slug,
	}
}

// FromDomain populates the model from a domain Category
func (m *CategoryModel) FromDomain(c *catalog.Category) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Name = c.Name
	m.Slug = c.Slug
}

// GenreModel is the persistence model for catalog.Genre.
// NameKey holds the case-folded name so that uniqueness does not depend on
// the database collation.
type GenreModel struct {
	BaseModel
	CategoryID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_genres_category_name_key,priority:1;uniqueIndex:idx_genres_category_slug,priority:1"`
	Name       string    `gorm:"type:varchar(100);not null"`
	NameKey    string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_genres_category_name_key,priority:2"`
	Slug       string    `gorm:"type:varchar(150);not null;uniqueIndex:idx_genres_category_slug,priority:2"`
}

// TableName returns the table name for GORM
func (GenreModel) TableName() string {
	return "genres"
}

// ToDomain converts the model to a domain Genre
func (m *GenreModel) ToDomain() *catalog.Genre {
	return &catalog.Genre{
		BaseEntity: m.BaseModel.ToDomain(),
		CategoryID: m.CategoryID,
		Name:       m.Name,
		NameKey:    m.NameKey,
		Slug:       m.Slug,
	}
}

// FromDomain populates the model from a domain Genre
func (m *GenreModel) FromDomain(g *catalog.Genre) {
	m.FromDomainBaseEntity(g.BaseEntity)
	m.CategoryID = g.CategoryID
	m.Name = g.Name
	m.NameKey = g.NameKey
	if m.NameKey == "" {
		m.NameKey = catalog.FoldName(g.Name)
	}
	m.Slug = g.Slug
}

// ProductModel is the persistence model for catalog.Product
type ProductModel struct {
	BaseModel
	ExternalID   *string `gorm:"type:varchar(64);uniqueIndex:idx_products_external_id"`
	SKU          *string `gorm:"column:sku;type:varchar(64);uniqueIndex:idx_products_sku"`
	OfferID      *string `gorm:"type:varchar(64);uniqueIndex:idx_products_offer_id"`
	ERPProductID *string `gorm:"column:erp_product_id;type:varchar(64);uniqueIndex:idx_products_erp_product_id"`

	Name        string `gorm:"type:varchar(255);not null"`
	Slug        string `gorm:"type:varchar(150);not null;uniqueIndex:idx_products_slug"`
	Description string `gorm:"type:text;not null;default:''"`
	Authors     string `gorm:"type:varchar(255);not null;default:''"`
	Publisher   string `gorm:"type:varchar(255);not null;default:''"`
	Year        *int
	Barcode     string `gorm:"type:varchar(64);not null;default:''"`
	ISBN        string `gorm:"column:isbn;type:varchar(32);not null;default:''"`

	Price    decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	OldPrice decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	Currency string              `gorm:"type:varchar(3);not null;default:'RUB'"`
	VATRate  *int                `gorm:"column:vat_rate"`

	StockQty    int  `gorm:"not null;default:0"`
	InStock     bool `gorm:"not null"`
	IsPublished bool `gorm:"not null"`

	CategoryID *uuid.UUID     `gorm:"type:uuid;index"`
	Category   *CategoryModel `gorm:"foreignKey:CategoryID"`
	GenreID    *uuid.UUID     `gorm:"type:uuid;index"`
	Genre      *GenreModel    `gorm:"foreignKey:GenreID"`

	ExternalImages   []catalog.ExternalImage `gorm:"type:jsonb;serializer:json"`
	ExternalImageURL string                  `gorm:"type:varchar(500);not null;default:''"`
	Attributes       map[string]any          `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the model to a domain Product, including the preloaded
// category and genre
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		BaseEntity:       m.BaseModel.ToDomain(),
		ExternalID:       m.ExternalID,
		SKU:              m.SKU,
		OfferID:          m.OfferID,
		ERPProductID:     m.ERPProductID,
		Name:             m.Name,
		Slug:             m.Slug,
		Description:      m.Description,
		Authors:          m.Authors,
		Publisher:        m.Publisher,
		Year:             m.Year,
		Barcode:          m.Barcode,
		ISBN:             m.ISBN,
		Price:            m.Price,
		OldPrice:         m.OldPrice,
		Currency:         m.Currency,
		VATRate:          m.VATRate,
		StockQty:         m.StockQty,
		InStock:          m.InStock,
		IsPublished:      m.IsPublished,
		CategoryID:       m.CategoryID,
		GenreID:          m.GenreID,
		ExternalImages:   m.ExternalImages,
		ExternalImageURL: m.ExternalImageURL,
		Attributes:       m.Attributes,
	}
	if m.Category != nil {
		p.Category = m.Category.ToDomain()
	}
	if m.Genre != nil {
		p.Genre = m.Genre.ToDomain()
	}
	if p.Attributes == nil {
		p.Attributes = map[string]any{}
	}
	return p
}

// FromDomain populates the model from a domain Product. Associations are
// referenced by id only.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.ExternalID = p.ExternalID
	m.SKU = p.SKU
	m.OfferID = p.OfferID
	m.ERPProductID = p.ERPProductID
	m.Name = p.Name
	m.Slug = p.Slug
	m.Description = p.Description
	m.Authors = p.Authors
	m.Publisher = p.Publisher
	m.Year = p.Year
	m.Barcode = p.Barcode
	m.ISBN = p.ISBN
	m.Price = p.Price
	m.OldPrice = p.OldPrice
	m.Currency = p.Currency
	m.VATRate = p.VATRate
	m.StockQty = p.StockQty
	m.InStock = p.InStock
	m.IsPublished = p.IsPublished
	m.CategoryID = p.CategoryID
	m.GenreID = p.GenreID
	m.ExternalImages = p.ExternalImages
	m.ExternalImageURL = p.ExternalImageURL
	m.Attributes = p.Attributes
}

// ProductSyncStateModel is the singleton row holding the product sync
// watermark
type ProductSyncStateModel struct {
	ID           int `gorm:"primaryKey;autoIncrement:false"`
	LastSyncedAt *time.Time
	UpdatedAt    time.Time `gorm:"not null"`
}

// ProductSyncStateID is the primary key of the singleton row
const ProductSyncStateID = 1

// TableName returns the table name for GORM
func (ProductSyncStateModel) TableName() string {
	return "erp_product_sync_states"
}

// ToDomain converts the model to a domain SyncState
func (m *ProductSyncStateModel) ToDomain() *catalog.SyncState {
	return &catalog.SyncState{
		LastSyncedAt: m.LastSyncedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromDomain populates the model from a domain SyncState
func (m *ProductSyncStateModel) FromDomain(s *catalog.SyncState) {
	m.ID = ProductSyncStateID
	m.LastSyncedAt = s.LastSyncedAt
	m.UpdatedAt = s.UpdatedAt
}
