package dto

import (
	"strconv"

	"github.com/bookstore/backend/internal/application/integration"
	"github.com/bookstore/backend/internal/domain/trade"
)

// OrderCustomer is the buyer block of an order listed to the ERP
type OrderCustomer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// OrderItem is one line of an order listed to the ERP
type OrderItem struct {
	SKU   string `json:"sku"`
	Name  string `json:"name"`
	Qty   int    `json:"qty"`
	Price string `json:"price"`
}

// OrderDelivery describes how the order ships
type OrderDelivery struct {
	Method  string            `json:"method"`
	Address map[string]string `json:"address"`
}

// OrderPayments summarizes what the customer owes
type OrderPayments struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

// OrderERPState exposes what the shop knows about the ERP side
type OrderERPState struct {
	AcknowledgedAt *string `json:"acknowledged_at"`
	ExternalID     string  `json:"external_id"`
	Status         string  `json:"status"`
	Comment        string  `json:"comment"`
}

// OrderResponse is an order as listed to the ERP
type OrderResponse struct {
	ShopOrderID string        `json:"shop_order_id"`
	Status      string        `json:"status"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
	Customer    OrderCustomer `json:"customer"`
	Items       []OrderItem   `json:"items"`
	Delivery    OrderDelivery `json:"delivery"`
	Payments    OrderPayments `json:"payments"`
	ERP         OrderERPState `json:"erp"`
}

// NewOrderResponse converts an order for the ERP pull API. Items are keyed by
// SKU, then offer id, then the local product id.
func NewOrderResponse(o *trade.Order, currency string) OrderResponse {
	resp := OrderResponse{
		ShopOrderID: strconv.FormatInt(o.ID, 10),
		Status:      o.Status.String(),
		CreatedAt:   integration.FormatTimestamp(o.CreatedAt),
		UpdatedAt:   integration.FormatTimestamp(o.UpdatedAt),
		Customer: OrderCustomer{
			Name:  o.CustomerName(),
			Phone: o.Phone,
			Email: o.Email,
		},
		Items: make([]OrderItem, 0, len(o.Items)),
		Delivery: OrderDelivery{
			Method:  "standard",
			Address: map[string]string{"full": o.FormattedAddress()},
		},
		Payments: OrderPayments{
			Total:    o.TotalPrice.StringFixed(2),
			Currency: currency,
		},
		ERP: OrderERPState{
			ExternalID: o.ERPExternalID,
			Status:     o.ERPStatus,
			Comment:    o.ERPStatusComment,
		},
	}
	if o.ERPAcknowledgedAt != nil {
		at := integration.FormatTimestamp(*o.ERPAcknowledgedAt)
		resp.ERP.AcknowledgedAt = &at
	}
	for _, item := range o.Items {
		line := OrderItem{
			SKU:   item.ProductID.String(),
			Qty:   item.Quantity,
			Price: item.Price.StringFixed(2),
		}
		if p := item.Product; p != nil {
			line.Name = p.Name
			switch {
			case p.SKU != nil && *p.SKU != "":
				line.SKU = *p.SKU
			case p.OfferID != nil && *p.OfferID != "":
				line.SKU = *p.OfferID
			}
		}
		resp.Items = append(resp.Items, line)
	}
	return resp
}

// OrderStateResponse answers acknowledge and status calls
type OrderStateResponse struct {
	ShopOrderID string `json:"shop_order_id"`
	Status      string `json:"status"`
}
