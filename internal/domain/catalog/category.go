package catalog

import (
	"strings"

	"github.com/bookstore/backend/internal/domain/shared"
)

// Field limits shared by the catalog tables
const (
	CategoryNameMaxLength = 100
	GenreNameMaxLength    = 100
	ProductNameMaxLength  = 255
	SlugMaxLength         = 150
	IdentifierMaxLength   = 64
)

// Category is a top-level grouping of products. Names are unique and matched
// exactly; slugs are generated once on creation.
type Category struct {
	shared.BaseEntity
	Name string
	Slug string
}

// NewCategory creates a category with an already resolved unique slug
func NewCategory(name, slug string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("category name cannot be empty")
	}
	if len([]rune(name)) > CategoryNameMaxLength {
		return nil, shared.NewValidationError("category name cannot exceed 100 characters")
	}
	if slug == "" {
		return nil, shared.NewValidationError("category slug cannot be empty")
	}
	return &Category{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Slug:       slug,
	}, nil
}
