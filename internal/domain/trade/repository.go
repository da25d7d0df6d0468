package trade

import (
	"context"
	"time"

	"github.com/bookstore/backend/internal/domain/shared"
)

// PendingOrderFilter selects orders the ERP has not acknowledged yet
type PendingOrderFilter struct {
	IDs   []int64
	Limit int
}

// OrderListFilter selects orders for the ERP pull API. Without a status only
// unacknowledged orders are listed; with status pending the same holds.
type OrderListFilter struct {
	shared.Filter
	Status      OrderStatus
	UpdatedFrom *time.Time
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID finds an order with its items and their products
	FindByID(ctx context.Context, id int64) (*Order, error)

	// FindPending returns unacknowledged orders, oldest first
	FindPending(ctx context.Context, filter PendingOrderFilter) ([]Order, error)

	// List returns a page of orders, oldest first, and the total match count
	List(ctx context.Context, filter OrderListFilter) ([]Order, int64, error)

	// SaveERPState persists the status and ERP fields of an order
	SaveERPState(ctx context.Context, order *Order) error

	// RecordAcknowledgment stamps erp_acknowledged_at and the ERP id and
	// status the acknowledgment carries. Status, comment and other columns
	// keep their stored values.
	RecordAcknowledgment(ctx context.Context, orderID int64, ack Acknowledgment) error
}
