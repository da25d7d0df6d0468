package integration

import (
	"context"
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// ERP Errors
// ---------------------------------------------------------------------------

var (
	ErrERPNotConfigured   = errors.New("integration: ERP integration is not configured")
	ErrERPUnavailable     = errors.New("integration: unable to reach ERP API")
	ErrERPRequestFailed   = errors.New("integration: ERP request failed")
	ErrERPInvalidResponse = errors.New("integration: unable to parse ERP API response")

	// ErrStopPaging may be returned by a page callback to end listing early
	ErrStopPaging = errors.New("integration: stop paging")
)

// RemoteError is a non-2xx response from the ERP
type RemoteError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ERP API returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("ERP API returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match ErrERPRequestFailed
func (e *RemoteError) Unwrap() error {
	return ErrERPRequestFailed
}

// ---------------------------------------------------------------------------
// ERP client port
// ---------------------------------------------------------------------------

// ProductListQuery filters the ERP product listing
type ProductListQuery struct {
	// UpdatedSince is passed verbatim as the updated_since filter when non-empty
	UpdatedSince string
	PageSize     int
}

// PageFunc receives one page of raw product records. Returning ErrStopPaging
// ends the listing without error.
type PageFunc func(page []any) error

// OrderAck is the ERP response to an order submission
type OrderAck struct {
	OrderID string
	Status  string
	Raw     map[string]any
}

// ProductSource lists products from the ERP
type ProductSource interface {
	ListProducts(ctx context.Context, query ProductListQuery, fn PageFunc) error
}

// OrderSink submits orders to the ERP
type OrderSink interface {
	CreateOrder(ctx context.Context, payload *OrderPayload) (*OrderAck, error)
}

// ERPClient is the full ERP API used by the sync and export jobs
type ERPClient interface {
	ProductSource
	OrderSink
}
