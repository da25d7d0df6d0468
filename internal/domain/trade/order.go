package trade

import (
	"strings"
	"time"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of a shop order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

var erpStatusMapping = map[string]OrderStatus{
	"new":        OrderStatusPending,
	"pending":    OrderStatusPending,
	"processing": OrderStatusProcessing,
	"shipped":    OrderStatusShipped,
	"delivered":  OrderStatusDelivered,
	"cancelled":  OrderStatusCancelled,
	"canceled":   OrderStatusCancelled,
}

// ParseERPStatus maps a status reported by the ERP onto a shop order status
func ParseERPStatus(raw string) (OrderStatus, bool) {
	status, ok := erpStatusMapping[strings.ToLower(strings.TrimSpace(raw))]
	return status, ok
}

// OrderItem is a line of an order, priced at purchase time
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID uuid.UUID
	Product   *catalog.Product
	Quantity  int
	Price     decimal.Decimal
}

// Subtotal returns price * quantity
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a customer purchase created by checkout
type Order struct {
	ID         int64
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Address1   string
	Address2   string
	City       string
	PostalCode string
	Status     OrderStatus
	TotalPrice decimal.Decimal
	Items      []OrderItem

	ERPAcknowledgedAt  *time.Time
	ERPExternalID      string
	ERPStatus          string
	ERPStatusComment   string
	ERPStatusUpdatedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAcknowledged reports whether the ERP has accepted the order
func (o *Order) IsAcknowledged() bool {
	return o.ERPAcknowledgedAt != nil
}

// CustomerName joins first and last name
func (o *Order) CustomerName() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{o.FirstName, o.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if name := strings.TrimSpace(strings.Join(parts, " ")); name != "" {
		return name
	}
	return o.FirstName
}

// FormattedAddress joins the non-empty address parts with ", "
func (o *Order) FormattedAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{o.Address1, o.Address2, o.City, o.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Acknowledgment is the ERP answer to an exported order. Empty ExternalID
// or Status mean the ERP did not report them.
type Acknowledgment struct {
	At         time.Time
	ExternalID string
	Status     string
}

// Acknowledge records the ERP acceptance of the order. Empty externalID or
// erpStatus leave the stored values untouched.
func (o *Order) Acknowledge(at time.Time, externalID, erpStatus string) {
	at = at.UTC()
	o.ERPAcknowledgedAt = &at
	if externalID != "" {
		o.ERPExternalID = externalID
	}
	if erpStatus != "" {
		o.ERPStatus = erpStatus
	}
	o.UpdatedAt = at
}

// Apply copies ack onto order the way Acknowledge does
func (a Acknowledgment) Apply(order *Order) {
	order.Acknowledge(a.At, a.ExternalID, a.Status)
}

// ERPStatusUpdate is a status change reported by the ERP. Nil fields are left
// untouched.
type ERPStatusUpdate struct {
	Status         *string
	Comment        *string
	ExternalStatus *string
}

// ApplyERPStatus applies a status change reported by the ERP
func (o *Order) ApplyERPStatus(update ERPStatusUpdate, at time.Time) error {
	if update.Status != nil {
		status, ok := ParseERPStatus(*update.Status)
		if !ok {
			return shared.NewValidationError("unsupported status \"" + *update.Status + "\"")
		}
		o.Status = status
	}
	if update.Comment != nil {
		o.ERPStatusComment = strings.TrimSpace(*update.Comment)
	}
	if update.ExternalStatus != nil || update.Status != nil {
		chosen := ""
		if update.ExternalStatus != nil {
			chosen = strings.TrimSpace(*update.ExternalStatus)
		}
		if chosen == "" && update.Status != nil {
			chosen = *update.Status
		}
		o.ERPStatus = chosen
	}
	at = at.UTC()
	o.ERPStatusUpdatedAt = &at
	o.UpdatedAt = at
	return nil
}
