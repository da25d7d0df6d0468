package integration

// OrderPayload is the order document accepted by the ERP
type OrderPayload struct {
	ExternalOrderID string               `json:"external_order_id" validate:"required"`
	Currency        string               `json:"currency" validate:"required,len=3"`
	Customer        OrderCustomer        `json:"customer"`
	ShippingAddress OrderShippingAddress `json:"shipping_address"`
	Items           []OrderItemPayload   `json:"items" validate:"required,min=1,dive"`
}

// OrderCustomer identifies the buyer
type OrderCustomer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// OrderShippingAddress is the delivery destination
type OrderShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// OrderItemPayload is one order line. Exactly one of ProductID and SKU is set;
// ProductID is an int64 for numeric ERP ids and a string otherwise.
type OrderItemPayload struct {
	ProductID any    `json:"product_id,omitempty"`
	SKU       string `json:"sku,omitempty"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Price     string `json:"price" validate:"required,numeric"`
}
