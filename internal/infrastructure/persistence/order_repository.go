package persistence

import (
	"context"

	"github.com/bookstore/backend/internal/domain/trade"
	"github.com/bookstore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

var _ trade.OrderRepository = (*GormOrderRepository)(nil)

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Preload("Items.Product")
}

// FindByID finds an order with its items and their products
func (r *GormOrderRepository) FindByID(ctx context.Context, id int64) (*trade.Order, error) {
	var m models.OrderModel
	if err := r.withItems(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindPending returns unacknowledged orders, oldest first
func (r *GormOrderRepository) FindPending(ctx context.Context, filter trade.PendingOrderFilter) ([]trade.Order, error) {
	query := r.withItems(ctx).Where("erp_acknowledged_at IS NULL")
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []models.OrderModel
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toOrders(rows), nil
}

// List returns a page of orders for the ERP pull API
func (r *GormOrderRepository) List(ctx context.Context, filter trade.OrderListFilter) ([]trade.Order, int64, error) {
	scope := listScope(filter)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	err := r.withItems(ctx).
		Scopes(scope).
		Order("created_at ASC, id ASC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return toOrders(rows), total, nil
}

// listScope restricts to unacknowledged orders unless a non-pending status
// is requested
func listScope(filter trade.OrderListFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch filter.Status {
		case "":
			db = db.Where("erp_acknowledged_at IS NULL")
		case trade.OrderStatusPending:
			db = db.Where("status = ? AND erp_acknowledged_at IS NULL", filter.Status)
		default:
			db = db.Where("status = ?", filter.Status)
		}
		if filter.UpdatedFrom != nil {
			db = db.Where("updated_at >= ?", *filter.UpdatedFrom)
		}
		return db
	}
}

// SaveERPState persists the status and ERP bookkeeping columns of an order
func (r *GormOrderRepository) SaveERPState(ctx context.Context, order *trade.Order) error {
	result := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status":                order.Status,
			"erp_acknowledged_at":   order.ERPAcknowledgedAt,
			"erp_external_id":       order.ERPExternalID,
			"erp_status":            order.ERPStatus,
			"erp_status_comment":    order.ERPStatusComment,
			"erp_status_updated_at": order.ERPStatusUpdatedAt,
			"updated_at":            order.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

// RecordAcknowledgment writes only the acknowledgment columns so status
// changes made by the ERP in the meantime survive
func (r *GormOrderRepository) RecordAcknowledgment(ctx context.Context, orderID int64, ack trade.Acknowledgment) error {
	at := ack.At.UTC()
	columns := map[string]any{
		"erp_acknowledged_at": at,
		"updated_at":          at,
	}
	if ack.ExternalID != "" {
		columns["erp_external_id"] = ack.ExternalID
	}
	if ack.Status != "" {
		columns["erp_status"] = ack.Status
	}

	result := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("id = ?", orderID).
		Updates(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

func toOrders(rows []models.OrderModel) []trade.Order {
	orders := make([]trade.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, *rows[i].ToDomain())
	}
	return orders
}
