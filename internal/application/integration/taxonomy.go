package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TaxonomyResolver gets or creates categories and genres. Lookups and inserts
// are not atomic; a uniqueness violation on insert means a concurrent writer
// won, so the lookup is repeated instead of failing. Concurrent calls for the
// same name within one process share a single lookup.
type TaxonomyResolver struct {
	categories catalog.CategoryRepository
	genres     catalog.GenreRepository
	slugMax    int
	persist    bool
	flight     *singleflight.Group
	logger     *zap.Logger
}

// NewTaxonomyResolver creates a TaxonomyResolver that persists new entries
func NewTaxonomyResolver(
	categories catalog.CategoryRepository,
	genres catalog.GenreRepository,
	logger *zap.Logger,
) *TaxonomyResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaxonomyResolver{
		categories: categories,
		genres:     genres,
		slugMax:    catalog.SlugMaxLength,
		persist:    true,
		flight:     &singleflight.Group{},
		logger:     logger,
	}
}

// Preview returns a resolver that looks entries up but never writes. Missing
// entries come back unsaved.
func (r *TaxonomyResolver) Preview() *TaxonomyResolver {
	cp := *r
	cp.persist = false
	cp.flight = &singleflight.Group{}
	return &cp
}

// EnsureCategory returns the category named exactly name, creating it if needed
func (r *TaxonomyResolver) EnsureCategory(ctx context.Context, name string) (*catalog.Category, error) {
	name, ok := catalog.CleanText(name)
	if !ok {
		return nil, shared.NewValidationError("category name is required")
	}
	v, err, _ := r.flight.Do("category:"+name, func() (any, error) {
		return r.ensureCategory(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return v.(*catalog.Category), nil
}

func (r *TaxonomyResolver) ensureCategory(ctx context.Context, name string) (*catalog.Category, error) {
	existing, err := r.findCategory(ctx, name)
	if err != nil || existing != nil {
		return existing, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		slug, err := catalog.GenerateUniqueSlug(ctx, name, r.slugMax, r.categories.ExistsBySlug)
		if err != nil {
			return nil, fmt.Errorf("generate category slug: %w", err)
		}
		category, err := catalog.NewCategory(name, slug)
		if err != nil {
			return nil, err
		}
		if !r.persist {
			return category, nil
		}

		err = r.categories.Create(ctx, category)
		if err == nil {
			r.logger.Info("Category created",
				zap.String("category_name", name),
				zap.String("slug", slug),
			)
			return category, nil
		}
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, fmt.Errorf("create category %q: %w", name, err)
		}

		winner, lookupErr := r.findCategory(ctx, name)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if winner != nil {
			r.logger.Debug("Category created concurrently, reusing",
				zap.String("category_name", name),
			)
			return winner, nil
		}
	}
	return nil, fmt.Errorf("create category %q: %w", name, shared.ErrAlreadyExists)
}

// EnsureGenre returns the genre of category named name (case-insensitively),
// creating it if needed
func (r *TaxonomyResolver) EnsureGenre(ctx context.Context, category *catalog.Category, name string) (*catalog.Genre, error) {
	if category == nil {
		return nil, shared.NewValidationError("genre requires a category")
	}
	name, ok := catalog.CleanText(name)
	if !ok {
		return nil, shared.NewValidationError("genre name is required")
	}
	key := "genre:" + category.ID.String() + ":" + catalog.FoldName(name)
	v, err, _ := r.flight.Do(key, func() (any, error) {
		return r.ensureGenre(ctx, category, name)
	})
	if err != nil {
		return nil, err
	}
	return v.(*catalog.Genre), nil
}

func (r *TaxonomyResolver) ensureGenre(ctx context.Context, category *catalog.Category, name string) (*catalog.Genre, error) {
	existing, err := r.findGenre(ctx, category, name)
	if err != nil || existing != nil {
		return existing, err
	}

	exists := func(ctx context.Context, slug string) (bool, error) {
		return r.genres.ExistsBySlug(ctx, category, slug)
	}
	for attempt := 0; attempt < 2; attempt++ {
		slug, err := catalog.GenerateUniqueSlug(ctx, name, r.slugMax, exists)
		if err != nil {
			return nil, fmt.Errorf("generate genre slug: %w", err)
		}
		genre, err := catalog.NewGenre(category, name, slug)
		if err != nil {
			return nil, err
		}
		if !r.persist {
			return genre, nil
		}

		err = r.genres.Create(ctx, genre)
		if err == nil {
			r.logger.Info("Genre created",
				zap.String("category_name", category.Name),
				zap.String("genre_name", name),
				zap.String("slug", slug),
			)
			return genre, nil
		}
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, fmt.Errorf("create genre %q: %w", name, err)
		}

		winner, lookupErr := r.findGenre(ctx, category, name)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if winner != nil {
			return winner, nil
		}
	}
	return nil, fmt.Errorf("create genre %q: %w", name, shared.ErrAlreadyExists)
}

func (r *TaxonomyResolver) findCategory(ctx context.Context, name string) (*catalog.Category, error) {
	category, err := r.categories.FindByName(ctx, name)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category %q: %w", name, err)
	}
	return category, nil
}

func (r *TaxonomyResolver) findGenre(ctx context.Context, category *catalog.Category, name string) (*catalog.Genre, error) {
	genre, err := r.genres.FindByCategoryAndName(ctx, category, name)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find genre %q: %w", name, err)
	}
	return genre, nil
}
