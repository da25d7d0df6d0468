package persistence

import (
	"context"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCategoryRepository implements catalog.CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

var _ catalog.CategoryRepository = (*GormCategoryRepository)(nil)

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindByName finds a category by its exact name
func (r *GormCategoryRepository) FindByName(ctx context.Context, name string) (*catalog.Category, error) {
	var m models.CategoryModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// ExistsBySlug checks whether a category slug is taken
func (r *GormCategoryRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CategoryModel{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// Create inserts a new category
func (r *GormCategoryRepository) Create(ctx context.Context, category *catalog.Category) error {
	var m models.CategoryModel
	m.FromDomain(category)
	return translateError(r.db.WithContext(ctx).Create(&m).Error)
}

// GormGenreRepository implements catalog.GenreRepository using GORM
type GormGenreRepository struct {
	db *gorm.DB
}

var _ catalog.GenreRepository = (*GormGenreRepository)(nil)

// NewGormGenreRepository creates a new GormGenreRepository
func NewGormGenreRepository(db *gorm.DB) *GormGenreRepository {
	return &GormGenreRepository{db: db}
}

// FindByCategoryAndName finds a genre by case-folded name within a category
func (r *GormGenreRepository) FindByCategoryAndName(ctx context.Context, category *catalog.Category, name string) (*catalog.Genre, error) {
	var m models.GenreModel
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND name_key = ?", category.ID, catalog.FoldName(name)).
		First(&m).Error
	if err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// ExistsBySlug checks whether a slug is taken within the category
func (r *GormGenreRepository) ExistsBySlug(ctx context.Context, category *catalog.Category, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GenreModel{}).
		Where("category_id = ? AND slug = ?", category.ID, slug).
		Count(&count).Error
	return count > 0, err
}

// Create inserts a new genre
func (r *GormGenreRepository) Create(ctx context.Context, genre *catalog.Genre) error {
	var m models.GenreModel
	m.FromDomain(genre)
	return translateError(r.db.WithContext(ctx).Create(&m).Error)
}
