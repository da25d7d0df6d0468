package persistence

import (
	"context"
	"errors"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSyncStateRepository implements catalog.SyncStateRepository using GORM
type GormSyncStateRepository struct {
	db *gorm.DB
}

var _ catalog.SyncStateRepository = (*GormSyncStateRepository)(nil)

// NewGormSyncStateRepository creates a new GormSyncStateRepository
func NewGormSyncStateRepository(db *gorm.DB) *GormSyncStateRepository {
	return &GormSyncStateRepository{db: db}
}

// Get returns the watermark, or nil when none was saved yet
func (r *GormSyncStateRepository) Get(ctx context.Context) (*catalog.SyncState, error) {
	var m models.ProductSyncStateModel
	err := r.db.WithContext(ctx).Where("id = ?", models.ProductSyncStateID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// Save upserts the singleton row
func (r *GormSyncStateRepository) Save(ctx context.Context, state *catalog.SyncState) error {
	var m models.ProductSyncStateModel
	m.FromDomain(state)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_synced_at", "updated_at"}),
		}).
		Create(&m).Error
}
