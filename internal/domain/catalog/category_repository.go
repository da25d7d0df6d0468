package catalog

import (
	"context"
)

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	// FindByName finds a category by its exact name
	FindByName(ctx context.Context, name string) (*Category, error)

	// ExistsBySlug checks whether a category slug is taken
	ExistsBySlug(ctx context.Context, slug string) (bool, error)

	// Create inserts a new category; a uniqueness violation yields shared.ErrAlreadyExists
	Create(ctx context.Context, category *Category) error
}

// GenreRepository defines the interface for genre persistence
type GenreRepository interface {
	// FindByCategoryAndName finds a genre by case-insensitive name within a category
	FindByCategoryAndName(ctx context.Context, category *Category, name string) (*Genre, error)

	// ExistsBySlug checks whether a slug is taken within a category
	ExistsBySlug(ctx context.Context, category *Category, slug string) (bool, error)

	// Create inserts a new genre; a uniqueness violation yields shared.ErrAlreadyExists
	Create(ctx context.Context, genre *Genre) error
}
