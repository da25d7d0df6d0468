package catalog

import (
	"strings"

	"github.com/bookstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

var nameFolder = cases.Fold()

// FoldName returns the case-folded form of a name used for case-insensitive
// uniqueness checks.
func FoldName(name string) string {
	return nameFolder.String(strings.TrimSpace(name))
}

// Genre is scoped to exactly one category. (category, folded name) is unique,
// as is (category, slug).
type Genre struct {
	shared.BaseEntity
	CategoryID uuid.UUID
	Name       string
	NameKey    string
	Slug       string
}

// NewGenre creates a genre inside category
func NewGenre(category *Category, name, slug string) (*Genre, error) {
	if category == nil {
		return nil, shared.NewValidationError("genre requires a category")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("genre name cannot be empty")
	}
	if len([]rune(name)) > GenreNameMaxLength {
		return nil, shared.NewValidationError("genre name cannot exceed 100 characters")
	}
	if slug == "" {
		return nil, shared.NewValidationError("genre slug cannot be empty")
	}
	return &Genre{
		BaseEntity: shared.NewBaseEntity(),
		CategoryID: category.ID,
		Name:       name,
		NameKey:    FoldName(name),
		Slug:       slug,
	}, nil
}

// BelongsTo reports whether the genre is scoped to category
func (g *Genre) BelongsTo(category *Category) bool {
	return category != nil && g.CategoryID == category.ID
}
