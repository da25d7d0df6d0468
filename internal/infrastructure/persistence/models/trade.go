package models

import (
	"time"

	"github.com/bookstore/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for trade.Order
type OrderModel struct {
	ID         int64             `gorm:"primaryKey;autoIncrement"`
	FirstName  string            `gorm:"type:varchar(100);not null"`
	LastName   string            `gorm:"type:varchar(100);not null;default:''"`
	Email      string            `gorm:"type:varchar(254);not null;default:''"`
	Phone      string            `gorm:"type:varchar(32);not null;default:''"`
	Address1   string            `gorm:"column:address1;type:varchar(255);not null;default:''"`
	Address2   string            `gorm:"column:address2;type:varchar(255);not null;default:''"`
	City       string            `gorm:"type:varchar(100);not null;default:''"`
	PostalCode string            `gorm:"type:varchar(20);not null;default:''"`
	Status     trade.OrderStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	TotalPrice decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0"`
	Items      []OrderItemModel  `gorm:"foreignKey:OrderID"`

	ERPAcknowledgedAt  *time.Time `gorm:"column:erp_acknowledged_at;index"`
	ERPExternalID      string     `gorm:"column:erp_external_id;type:varchar(64);not null;default:''"`
	ERPStatus          string     `gorm:"column:erp_status;type:varchar(64);not null;default:''"`
	ERPStatusComment   string     `gorm:"column:erp_status_comment;type:text;not null;default:''"`
	ERPStatusUpdatedAt *time.Time `gorm:"column:erp_status_updated_at"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the model to a domain Order with its loaded items
func (m *OrderModel) ToDomain() *trade.Order {
	o := &trade.Order{
		ID:                 m.ID,
		FirstName:          m.FirstName,
		LastName:           m.LastName,
		Email:              m.Email,
		Phone:              m.Phone,
		Address1:           m.Address1,
		Address2:           m.Address2,
		City:               m.City,
		PostalCode:         m.PostalCode,
		Status:             m.Status,
		TotalPrice:         m.TotalPrice,
		ERPAcknowledgedAt:  m.ERPAcknowledgedAt,
		ERPExternalID:      m.ERPExternalID,
		ERPStatus:          m.ERPStatus,
		ERPStatusComment:   m.ERPStatusComment,
		ERPStatusUpdatedAt: m.ERPStatusUpdatedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	o.Items = make([]trade.OrderItem, 0, len(m.Items))
	for i := range m.Items {
		o.Items = append(o.Items, m.Items[i].ToDomain())
	}
	return o
}

// FromDomain populates the model from a domain Order, items included
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.ID = o.ID
	m.FirstName = o.FirstName
	m.LastName = o.LastName
	m.Email = o.Email
	m.Phone = o.Phone
	m.Address1 = o.Address1
	m.Address2 = o.Address2
	m.City = o.City
	m.PostalCode = o.PostalCode
	m.Status = o.Status
	m.TotalPrice = o.TotalPrice
	m.ERPAcknowledgedAt = o.ERPAcknowledgedAt
	m.ERPExternalID = o.ERPExternalID
	m.ERPStatus = o.ERPStatus
	m.ERPStatusComment = o.ERPStatusComment
	m.ERPStatusUpdatedAt = o.ERPStatusUpdatedAt
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt
	m.Items = make([]OrderItemModel, 0, len(o.Items))
	for _, item := range o.Items {
		var im OrderItemModel
		im.FromDomain(item)
		m.Items = append(m.Items, im)
	}
}

// OrderItemModel is the persistence model for trade.OrderItem
type OrderItemModel struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	OrderID   int64           `gorm:"not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Product   *ProductModel   `gorm:"foreignKey:ProductID"`
	Quantity  int             `gorm:"not null;default:1"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the model to a domain OrderItem
func (m *OrderItemModel) ToDomain() trade.OrderItem {
	item := trade.OrderItem{
		ID:        m.ID,
		OrderID:   m.OrderID,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		Price:     m.Price,
	}
	if m.Product != nil {
		item.Product = m.Product.ToDomain()
	}
	return item
}

// FromDomain populates the model from a domain OrderItem
func (m *OrderItemModel) FromDomain(item trade.OrderItem) {
	m.ID = item.ID
	m.OrderID = item.OrderID
	m.ProductID = item.ProductID
	m.Quantity = item.Quantity
	m.Price = item.Price
}
