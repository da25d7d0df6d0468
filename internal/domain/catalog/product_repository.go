package catalog

import (
	"context"

	"github.com/google/uuid"
)

// IdentityField names one of the external identifier columns of a product
type IdentityField string

const (
	IdentityERPProductID IdentityField = "erp_product_id"
	IdentityExternalID   IdentityField = "external_id"
	IdentitySKU          IdentityField = "sku"
	IdentityOfferID      IdentityField = "offer_id"
)

// IsValid reports whether f is a known identity column
func (f IdentityField) IsValid() bool {
	switch f {
	case IdentityERPProductID, IdentityExternalID, IdentitySKU, IdentityOfferID:
		return true
	}
	return false
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID, category and genre loaded
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIdentity finds a product by an exact identifier match.
	// Returns shared.ErrNotFound when nothing matches.
	FindByIdentity(ctx context.Context, field IdentityField, value string) (*Product, error)

	// ExistsBySlug checks whether a slug is taken by a product other than excludeID
	ExistsBySlug(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)

	// Create inserts a product; a uniqueness violation yields shared.ErrAlreadyExists
	Create(ctx context.Context, product *Product) error

	// Update writes all product columns
	Update(ctx context.Context, product *Product) error
}
