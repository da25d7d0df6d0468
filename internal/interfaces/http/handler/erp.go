package handler

import (
	"context"
	"errors"
	"strconv"

	appintegration "github.com/bookstore/backend/internal/application/integration"
	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/domain/shared"
	"github.com/bookstore/backend/internal/domain/trade"
	"github.com/bookstore/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// MaxOrderPageSize caps the page_size query parameter
const MaxOrderPageSize = 100

// InboundService is the application API behind the ERP callbacks
type InboundService interface {
	ListOrders(ctx context.Context, filter trade.OrderListFilter) (shared.Paginated[trade.Order], error)
	AcknowledgeOrder(ctx context.Context, orderID int64, input appintegration.AcknowledgeInput) (*trade.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, update trade.ERPStatusUpdate) (*trade.Order, error)
	UpdateStocks(ctx context.Context, warehouseCode string, items []any) (*appintegration.StockUpdateReport, error)
	UpsertProducts(ctx context.Context, records []any) (*appintegration.ProductBatchReport, error)
}

// ERPHandler serves the API the ERP calls into
type ERPHandler struct {
	BaseHandler
	service  InboundService
	currency string
	pageSize int
}

// NewERPHandler creates a new ERPHandler
func NewERPHandler(service InboundService, currency string, pageSize int) *ERPHandler {
	if currency == "" {
		currency = catalog.DefaultCurrency
	}
	if pageSize <= 0 || pageSize > MaxOrderPageSize {
		pageSize = shared.DefaultFilter().PageSize
	}
	return &ERPHandler{service: service, currency: currency, pageSize: pageSize}
}

// ListOrders lists orders waiting for the ERP, oldest first
// GET /erp/orders?page=&page_size=&status=&updated_from=
func (h *ERPHandler) ListOrders(c *gin.Context) {
	filter := trade.OrderListFilter{Filter: shared.Filter{Page: 1, PageSize: h.pageSize}}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			h.BadRequest(c, "page must be an integer")
			return
		}
		if page > 1 {
			filter.Page = page
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > MaxOrderPageSize {
			h.BadRequest(c, "page_size must be an integer between 1 and 100")
			return
		}
		filter.PageSize = size
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := trade.ParseERPStatus(raw)
		if !ok {
			h.BadRequest(c, `Unsupported status "`+raw+`"`)
			return
		}
		filter.Status = status
	}
	if raw := c.Query("updated_from"); raw != "" {
		from, ok := appintegration.ParseTimestamp(raw)
		if !ok {
			h.BadRequest(c, "updated_from must be ISO 8601 datetime")
			return
		}
		filter.UpdatedFrom = &from
	}

	result, err := h.service.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	orders := make([]dto.OrderResponse, 0, len(result.Items))
	for i := range result.Items {
		orders = append(orders, dto.NewOrderResponse(&result.Items[i], h.currency))
	}
	h.Paged(c, orders, result.Total, result.Page, result.PageSize, result.TotalPages)
}

// AcknowledgeOrder records that the ERP accepted an order
// POST /erp/orders/:id/acknowledge {external_id, status}
func (h *ERPHandler) AcknowledgeOrder(c *gin.Context) {
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}
	body, err := decodeBody(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var input appintegration.AcknowledgeInput
	if body.Has("external_id") {
		externalID, _ := catalog.CleanText(body.Get("external_id"))
		input.ExternalID = &externalID
	}
	if status, ok := catalog.CleanText(body.Get("status")); ok {
		input.Status = &status
	}

	order, err := h.service.AcknowledgeOrder(c.Request.Context(), orderID, input)
	if err != nil {
		h.handleOrderError(c, err)
		return
	}
	h.Success(c, dto.OrderStateResponse{
		ShopOrderID: strconv.FormatInt(order.ID, 10),
		Status:      "acknowledged",
	})
}

// UpdateOrderStatus applies a status change reported by the ERP
// POST /erp/orders/:id/status {status, comment, external_status}
func (h *ERPHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}
	body, err := decodeBody(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var update trade.ERPStatusUpdate
	if raw := body.Get("status"); raw != nil {
		status := rawString(raw)
		update.Status = &status
	}
	if body.Has("comment") {
		comment, _ := catalog.CleanText(body.Get("comment"))
		update.Comment = &comment
	}
	if raw := body.Get("external_status"); raw != nil {
		external, _ := catalog.CleanText(raw)
		update.ExternalStatus = &external
	}

	order, err := h.service.UpdateOrderStatus(c.Request.Context(), orderID, update)
	if err != nil {
		h.handleOrderError(c, err)
		return
	}
	h.Success(c, dto.OrderStateResponse{
		ShopOrderID: strconv.FormatInt(order.ID, 10),
		Status:      order.Status.String(),
	})
}

// UpdateStocks sets stock levels by SKU
// POST /erp/stocks/bulk-update {warehouse_code, items: [{sku, quantity}]}
func (h *ERPHandler) UpdateStocks(c *gin.Context) {
	body, err := decodeBody(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	warehouse, _ := catalog.CleanText(body.Get("warehouse_code"))
	items, _ := body.List("items")

	report, err := h.service.UpdateStocks(c.Request.Context(), warehouse, items)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// UpsertProducts creates or updates products pushed by the ERP
// POST /erp/products/bulk-upsert {products: [...]}
func (h *ERPHandler) UpsertProducts(c *gin.Context) {
	body, err := decodeBody(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	records, _ := body.List("products")

	report, err := h.service.UpsertProducts(c.Request.Context(), records)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// orderID parses the :id path parameter; ids that cannot exist are answered
// as not found
func (h *ERPHandler) orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.NotFound(c, "Order not found")
		return 0, false
	}
	return id, true
}

func (h *ERPHandler) handleOrderError(c *gin.Context, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		h.NotFound(c, "Order not found")
		return
	}
	h.HandleError(c, err)
}

// rawString keeps string values verbatim and renders anything else as text
func rawString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	s, _ := catalog.CleanText(v)
	return s
}
