package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/domain/integration"
	"github.com/bookstore/backend/internal/domain/shared"
	"github.com/bookstore/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// DefaultWarehouseCode is the only warehouse the shop keeps stock for unless
// configured otherwise
const DefaultWarehouseCode = "main"

// MaxProductBatch caps the records of one bulk product upsert
const MaxProductBatch = 100

// Inbound API validation errors
var (
	ErrEmptyStockItems   = shared.NewValidationError(`Field "items" must be a non-empty array`)
	ErrEmptyProductBatch = shared.NewValidationError(`Field "products" must be a non-empty array`)
)

// AcknowledgeInput carries the optional fields of an ERP acknowledgment.
// A non-nil ExternalID replaces the stored one, even when blank.
type AcknowledgeInput struct {
	ExternalID *string
	Status     *string
}

// ItemError reports one rejected entry of a batch request
type ItemError struct {
	Index   int    `json:"index"`
	SKU     string `json:"sku,omitempty"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// StockUpdateResult reports one applied stock level
type StockUpdateResult struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Status   string `json:"status"`
}

// StockUpdateReport is the outcome of a bulk stock update
type StockUpdateReport struct {
	WarehouseCode string              `json:"warehouse_code"`
	Results       []StockUpdateResult `json:"results"`
	Errors        []ItemError         `json:"errors"`
}

// ProductUpsertItem reports one upserted product of a batch
type ProductUpsertItem struct {
	SKU           string       `json:"sku"`
	ShopProductID string       `json:"shop_product_id"`
	Status        UpsertStatus `json:"status"`
}

// ProductBatchReport is the outcome of a bulk product upsert
type ProductBatchReport struct {
	Results []ProductUpsertItem `json:"results"`
	Errors  []ItemError         `json:"errors"`
}

// InboundService serves the calls the ERP makes into the shop
type InboundService struct {
	orders    trade.OrderRepository
	products  catalog.ProductRepository
	upserter  *ProductUpsertService
	warehouse string
	now       func() time.Time
	logger    *zap.Logger
}

// NewInboundService creates a new InboundService
func NewInboundService(
	orders trade.OrderRepository,
	products catalog.ProductRepository,
	upserter *ProductUpsertService,
	warehouse string,
	logger *zap.Logger,
) *InboundService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if warehouse == "" {
		warehouse = DefaultWarehouseCode
	}
	return &InboundService{
		orders:    orders,
		products:  products,
		upserter:  upserter,
		warehouse: warehouse,
		now:       time.Now,
		logger:    logger,
	}
}

// ListOrders returns a page of orders waiting for the ERP
func (s *InboundService) ListOrders(ctx context.Context, filter trade.OrderListFilter) (shared.Paginated[trade.Order], error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = shared.DefaultFilter().PageSize
	}
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return shared.Paginated[trade.Order]{}, err
	}
	return shared.NewPaginated(orders, total, filter.Page, filter.PageSize), nil
}

// AcknowledgeOrder records that the ERP accepted the order
func (s *InboundService) AcknowledgeOrder(ctx context.Context, orderID int64, input AcknowledgeInput) (*trade.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	status := ""
	if input.Status != nil {
		status = strings.TrimSpace(*input.Status)
	}
	order.Acknowledge(s.now(), "", status)
	if input.ExternalID != nil {
		order.ERPExternalID = strings.TrimSpace(*input.ExternalID)
	}

	if err := s.orders.SaveERPState(ctx, order); err != nil {
		return nil, err
	}
	s.logger.Info("Order acknowledged by ERP",
		zap.Int64("order_id", order.ID),
		zap.String("erp_external_id", order.ERPExternalID),
	)
	return order, nil
}

// UpdateOrderStatus applies a status change reported by the ERP
func (s *InboundService) UpdateOrderStatus(ctx context.Context, orderID int64, update trade.ERPStatusUpdate) (*trade.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.ApplyERPStatus(update, s.now()); err != nil {
		return nil, err
	}
	if err := s.orders.SaveERPState(ctx, order); err != nil {
		return nil, err
	}
	s.logger.Info("Order status updated by ERP",
		zap.Int64("order_id", order.ID),
		zap.String("status", order.Status.String()),
		zap.String("erp_status", order.ERPStatus),
	)
	return order, nil
}

// UpdateStocks sets the stock level of each listed SKU. Entries that cannot
// be applied are reported without aborting the batch.
func (s *InboundService) UpdateStocks(ctx context.Context, warehouseCode string, items []any) (*StockUpdateReport, error) {
	if warehouseCode == "" {
		warehouseCode = s.warehouse
	}
	if warehouseCode != s.warehouse {
		return nil, shared.NewValidationError(`Unknown warehouse code "` + warehouseCode + `"`)
	}
	if len(items) == 0 {
		return nil, ErrEmptyStockItems
	}

	report := &StockUpdateReport{
		WarehouseCode: warehouseCode,
		Results:       []StockUpdateResult{},
		Errors:        []ItemError{},
	}
	for index, raw := range items {
		item, ok := integration.AsObject(raw)
		if !ok {
			report.Errors = append(report.Errors, ItemError{Index: index, Message: "Each item must be an object"})
			continue
		}
		sku, ok := catalog.CleanText(item["sku"])
		if !ok {
			report.Errors = append(report.Errors, ItemError{Index: index, Message: "Field sku is required"})
			continue
		}
		qty, ok := parseInt(item["quantity"])
		if !ok {
			report.Errors = append(report.Errors, ItemError{Index: index, SKU: sku, Message: "Field quantity must be an integer"})
			continue
		}

		product, err := s.products.FindByIdentity(ctx, catalog.IdentitySKU, sku)
		if err != nil {
			msg := "Product not found"
			if !errors.Is(err, shared.ErrNotFound) {
				s.logger.Error("Stock lookup failed", zap.String("sku", sku), zap.Error(err))
				msg = "Internal error"
			}
			report.Errors = append(report.Errors, ItemError{Index: index, SKU: sku, Message: msg})
			continue
		}

		product.SetStock(qty)
		if err := s.products.Update(ctx, product); err != nil {
			s.logger.Error("Stock update failed", zap.String("sku", sku), zap.Error(err))
			report.Errors = append(report.Errors, ItemError{Index: index, SKU: sku, Message: "Internal error"})
			continue
		}
		report.Results = append(report.Results, StockUpdateResult{SKU: sku, Quantity: product.StockQty, Status: "updated"})
	}
	return report, nil
}

// UpsertProducts applies a batch of flat product records pushed by the ERP.
// Failing records are reported without aborting the batch.
func (s *InboundService) UpsertProducts(ctx context.Context, records []any) (*ProductBatchReport, error) {
	if len(records) == 0 {
		return nil, ErrEmptyProductBatch
	}
	if len(records) > MaxProductBatch {
		return nil, shared.NewValidationError(fmt.Sprintf("Batch size limit is %d", MaxProductBatch))
	}
	report := &ProductBatchReport{Results: []ProductUpsertItem{}, Errors: []ItemError{}}
	for index, raw := range records {
		sku := ""
		if obj, ok := integration.AsObject(raw); ok {
			sku, _ = catalog.CleanText(obj["sku"])
		}

		result, err := s.upserter.UpsertShopProduct(ctx, raw)
		if err != nil {
			s.logger.Warn("Product upsert failed",
				zap.Int("index", index),
				zap.String("sku", sku),
				zap.Error(err),
			)
			report.Errors = append(report.Errors, ItemError{Index: index, SKU: sku, Message: err.Error()})
			continue
		}
		if result.Product.SKU != nil {
			sku = *result.Product.SKU
		}
		report.Results = append(report.Results, ProductUpsertItem{
			SKU:           sku,
			ShopProductID: result.Product.ID.String(),
			Status:        result.Status,
		})
	}
	return report, nil
}
