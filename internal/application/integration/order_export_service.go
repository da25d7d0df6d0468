package integration

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/domain/integration"
	"github.com/bookstore/backend/internal/domain/shared"
	"github.com/bookstore/backend/internal/domain/trade"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderExportService sends shop orders to the ERP and records acknowledgment.
// A nil sink means the integration is disabled and sends become no-ops.
type OrderExportService struct {
	orders   trade.OrderRepository
	sink     integration.OrderSink
	settings OrderSettings
	validate *validator.Validate
	now      func() time.Time
	logger   *zap.Logger
}

// NewOrderExportService creates a new OrderExportService
func NewOrderExportService(
	orders trade.OrderRepository,
	sink integration.OrderSink,
	settings OrderSettings,
	logger *zap.Logger,
) *OrderExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderExportService{
		orders:   orders,
		sink:     sink,
		settings: settings.withDefaults(),
		validate: validator.New(),
		now:      time.Now,
		logger:   logger,
	}
}

// Enabled reports whether orders can be sent
func (s *OrderExportService) Enabled() bool {
	return s.sink != nil
}

// BuildOrderPayload builds the ERP order document for order
func (s *OrderExportService) BuildOrderPayload(order *trade.Order) (*integration.OrderPayload, error) {
	if len(order.Items) == 0 {
		return nil, shared.NewValidationError(fmt.Sprintf("order %d has no items", order.ID))
	}

	items := make([]integration.OrderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		line := integration.OrderItemPayload{
			Quantity: item.Quantity,
			Price:    item.Price.StringFixed(2),
		}
		var erpID, sku *string
		if item.Product != nil {
			erpID, sku = item.Product.ERPProductID, item.Product.SKU
		}
		if productID := normalizeProductID(erpID); productID != nil {
			line.ProductID = productID
		} else if code, ok := catalog.CleanText(deref(sku)); ok {
			line.SKU = code
		} else {
			return nil, shared.NewValidationError(
				fmt.Sprintf("order %d item %d has no sku or ERP product id", order.ID, item.ID))
		}
		items = append(items, line)
	}

	payload := &integration.OrderPayload{
		ExternalOrderID: strconv.FormatInt(order.ID, 10),
		Currency:        s.settings.Currency,
		Customer: integration.OrderCustomer{
			Name:  order.CustomerName(),
			Phone: strings.TrimSpace(order.Phone),
			Email: strings.TrimSpace(order.Email),
		},
		ShippingAddress: integration.OrderShippingAddress{
			Address:    order.FormattedAddress(),
			City:       order.City,
			Region:     order.City,
			PostalCode: order.PostalCode,
			Country:    s.settings.Country,
		},
		Items: items,
	}
	if err := s.validate.Struct(payload); err != nil {
		return nil, shared.NewValidationError(fmt.Sprintf("order %d payload is invalid: %v", order.ID, err))
	}
	return payload, nil
}

// Send exports order unless it was already acknowledged or the integration
// is disabled; both cases return a nil ack and no error.
func (s *OrderExportService) Send(ctx context.Context, order *trade.Order) (*integration.OrderAck, error) {
	if order.IsAcknowledged() || s.sink == nil {
		return nil, nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "erp.orders.send")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", order.ID))

	payload, err := s.BuildOrderPayload(order)
	if err != nil {
		return nil, err
	}
	ack, err := s.sink.CreateOrder(ctx, payload)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("send order %d: %w", order.ID, err)
	}

	record := trade.Acknowledgment{At: s.now().UTC(), ExternalID: ack.OrderID, Status: ack.Status}
	if err := s.orders.RecordAcknowledgment(ctx, order.ID, record); err != nil {
		return ack, fmt.Errorf("save acknowledgment of order %d: %w", order.ID, err)
	}
	record.Apply(order)
	s.logger.Info("Order sent to ERP",
		zap.Int64("order_id", order.ID),
		zap.String("erp_external_id", order.ERPExternalID),
		zap.String("erp_status", order.ERPStatus),
	)
	return ack, nil
}

// Push is the post-checkout hook: it sends the order and only logs failures.
func (s *OrderExportService) Push(ctx context.Context, orderID int64) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		s.logger.Error("Failed to load order for ERP push",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
		return
	}
	if _, err := s.Send(ctx, order); err != nil {
		s.logger.Error("Failed to push order to ERP",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
	}
}

// SendPending exports unacknowledged orders oldest first. A failing order is
// reported and the loop moves on.
func (s *OrderExportService) SendPending(ctx context.Context, query PendingOrderQuery) (*OrderExportReport, error) {
	if s.sink == nil {
		return nil, integration.ErrERPNotConfigured
	}
	orders, err := s.orders.FindPending(ctx, trade.PendingOrderFilter{IDs: query.OrderIDs, Limit: query.Limit})
	if err != nil {
		return nil, fmt.Errorf("find pending orders: %w", err)
	}

	report := &OrderExportReport{}
	for i := range orders {
		order := &orders[i]
		if query.DryRun {
			report.Planned = append(report.Planned, order.ID)
			continue
		}
		if _, err := s.Send(ctx, order); err != nil {
			report.Failures = append(report.Failures, OrderSendFailure{OrderID: order.ID, Err: err})
			continue
		}
		report.Sent++
	}
	return report, nil
}

// normalizeProductID returns an int64 for numeric ids, the trimmed string
// otherwise, and nil when absent.
func normalizeProductID(id *string) any {
	cleaned, ok := catalog.CleanText(deref(id))
	if !ok {
		return nil
	}
	if isASCIIDigits(cleaned) {
		if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
			return n
		}
	}
	return cleaned
}

func isASCIIDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
