package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/domain/integration"
	"github.com/bookstore/backend/internal/domain/shared"
	"github.com/bookstore/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id int64) (*trade.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

func (m *MockOrderRepository) FindPending(ctx context.Context, filter trade.PendingOrderFilter) ([]trade.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]trade.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter trade.OrderListFilter) ([]trade.Order, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]trade.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) SaveERPState(ctx context.Context, order *trade.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) RecordAcknowledgment(ctx context.Context, orderID int64, ack trade.Acknowledgment) error {
	args := m.Called(ctx, orderID, ack)
	return args.Error(0)
}

type MockOrderSink struct {
	mock.Mock
}

func (m *MockOrderSink) CreateOrder(ctx context.Context, payload *integration.OrderPayload) (*integration.OrderAck, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.OrderAck), args.Error(1)
}

func strPtr(s string) *string { return &s }

func sampleOrder(id int64, products ...*catalog.Product) *trade.Order {
	order := &trade.Order{
		ID:         id,
		FirstName:  "Anna",
		LastName:   "Petrova",
		Email:      "anna@example.com",
		Phone:      "+79990000000",
		Address1:   "Nevsky 1",
		City:       "Saint Petersburg",
		PostalCode: "190000",
		Status:     trade.OrderStatusPending,
	}
	for i, p := range products {
		order.Items = append(order.Items, trade.OrderItem{
			ID:       int64(i + 1),
			OrderID:  id,
			Product:  p,
			Quantity: i + 1,
			Price:    decimal.NewFromInt(100),
		})
	}
	return order
}

func newExportService(orders trade.OrderRepository, sink integration.OrderSink) *OrderExportService {
	svc := NewOrderExportService(orders, sink, OrderSettings{}, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestOrderExportService_BuildOrderPayload(t *testing.T) {
	svc := newExportService(nil, nil)

	t.Run("prefers the ERP product id over the sku", func(t *testing.T) {
		order := sampleOrder(42,
			&catalog.Product{ERPProductID: strPtr("123"), SKU: strPtr("SKU-0")},
			&catalog.Product{SKU: strPtr(" SKU-1 ")},
			&catalog.Product{ERPProductID: strPtr("A-7")},
		)

		payload, err := svc.BuildOrderPayload(order)
		require.NoError(t, err)
		assert.Equal(t, "42", payload.ExternalOrderID)
		assert.Equal(t, "RUB", payload.Currency)
		assert.Equal(t, integration.OrderCustomer{
			Name:  "Anna Petrova",
			Phone: "+79990000000",
			Email: "anna@example.com",
		}, payload.Customer)
		assert.Equal(t, integration.OrderShippingAddress{
			Address:    "Nevsky 1, Saint Petersburg, 190000",
			City:       "Saint Petersburg",
			Region:     "Saint Petersburg",
			PostalCode: "190000",
			Country:    "Россия",
		}, payload.ShippingAddress)

		require.Len(t, payload.Items, 3)
		assert.Equal(t, int64(123), payload.Items[0].ProductID)
		assert.Empty(t, payload.Items[0].SKU)
		assert.Equal(t, "100.00", payload.Items[0].Price)
		assert.Nil(t, payload.Items[1].ProductID)
		assert.Equal(t, "SKU-1", payload.Items[1].SKU)
		assert.Equal(t, 2, payload.Items[1].Quantity)
		assert.Equal(t, "A-7", payload.Items[2].ProductID)
	})

	t.Run("rejects items without any identifier", func(t *testing.T) {
		_, err := svc.BuildOrderPayload(sampleOrder(7, &catalog.Product{SKU: strPtr("  ")}))
		assert.True(t, shared.IsValidationError(err))
		assert.ErrorContains(t, err, "order 7 item 1 has no sku or ERP product id")
	})

	t.Run("rejects empty orders", func(t *testing.T) {
		_, err := svc.BuildOrderPayload(sampleOrder(8))
		assert.ErrorContains(t, err, "order 8 has no items")
	})

	t.Run("trims customer contacts", func(t *testing.T) {
		order := sampleOrder(10, &catalog.Product{SKU: strPtr("SKU-1")})
		order.Phone = " +79990000000\t"
		order.Email = "  anna@example.com "
		payload, err := svc.BuildOrderPayload(order)
		require.NoError(t, err)
		assert.Equal(t, "+79990000000", payload.Customer.Phone)
		assert.Equal(t, "anna@example.com", payload.Customer.Email)
	})

	t.Run("rejects non-positive quantities", func(t *testing.T) {
		order := sampleOrder(9, &catalog.Product{SKU: strPtr("SKU-1")})
		order.Items[0].Quantity = 0
		_, err := svc.BuildOrderPayload(order)
		assert.True(t, shared.IsValidationError(err))
	})
}

func TestOrderExportService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("records the acknowledgment", func(t *testing.T) {
		orders := new(MockOrderRepository)
		sink := new(MockOrderSink)
		order := sampleOrder(1, &catalog.Product{SKU: strPtr("SKU-1")})

		sink.On("CreateOrder", mock.Anything, mock.MatchedBy(func(p *integration.OrderPayload) bool {
			return p.ExternalOrderID == "1"
		})).Return(&integration.OrderAck{OrderID: "ERP-55", Status: "new"}, nil)
		orders.On("RecordAcknowledgment", mock.Anything, int64(1), trade.Acknowledgment{
			At:         fixedNow,
			ExternalID: "ERP-55",
			Status:     "new",
		}).Return(nil)

		ack, err := newExportService(orders, sink).Send(ctx, order)
		require.NoError(t, err)
		assert.Equal(t, "ERP-55", ack.OrderID)
		require.NotNil(t, order.ERPAcknowledgedAt)
		assert.True(t, fixedNow.Equal(*order.ERPAcknowledgedAt))
		assert.Equal(t, "ERP-55", order.ERPExternalID)
		assert.Equal(t, "new", order.ERPStatus)
		orders.AssertExpectations(t)
		orders.AssertNotCalled(t, "SaveERPState", mock.Anything, mock.Anything)
	})

	t.Run("failed bookkeeping keeps the in-memory order unacknowledged", func(t *testing.T) {
		orders := new(MockOrderRepository)
		sink := new(MockOrderSink)
		order := sampleOrder(5, &catalog.Product{SKU: strPtr("SKU-1")})
		sink.On("CreateOrder", mock.Anything, mock.Anything).Return(&integration.OrderAck{OrderID: "ERP-5"}, nil)
		orders.On("RecordAcknowledgment", mock.Anything, int64(5), mock.Anything).Return(errors.New("db down"))

		ack, err := newExportService(orders, sink).Send(ctx, order)
		assert.ErrorContains(t, err, "save acknowledgment of order 5")
		require.NotNil(t, ack)
		assert.False(t, order.IsAcknowledged())
	})

	t.Run("skips acknowledged orders", func(t *testing.T) {
		sink := new(MockOrderSink)
		order := sampleOrder(2, &catalog.Product{SKU: strPtr("SKU-1")})
		order.Acknowledge(fixedNow, "ERP-1", "new")

		ack, err := newExportService(new(MockOrderRepository), sink).Send(ctx, order)
		assert.NoError(t, err)
		assert.Nil(t, ack)
		sink.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})

	t.Run("disabled without a sink", func(t *testing.T) {
		svc := newExportService(new(MockOrderRepository), nil)
		assert.False(t, svc.Enabled())

		ack, err := svc.Send(ctx, sampleOrder(3, &catalog.Product{SKU: strPtr("SKU-1")}))
		assert.NoError(t, err)
		assert.Nil(t, ack)
	})

	t.Run("remote failure leaves the order unacknowledged", func(t *testing.T) {
		orders := new(MockOrderRepository)
		sink := new(MockOrderSink)
		order := sampleOrder(4, &catalog.Product{SKU: strPtr("SKU-1")})
		sink.On("CreateOrder", mock.Anything, mock.Anything).
			Return(nil, &integration.RemoteError{StatusCode: 500, Body: "boom"})

		_, err := newExportService(orders, sink).Send(ctx, order)
		assert.ErrorIs(t, err, integration.ErrERPRequestFailed)
		assert.False(t, order.IsAcknowledged())
		orders.AssertNotCalled(t, "RecordAcknowledgment", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderExportService_SendPending(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a configured sink", func(t *testing.T) {
		_, err := newExportService(new(MockOrderRepository), nil).SendPending(ctx, PendingOrderQuery{})
		assert.ErrorIs(t, err, integration.ErrERPNotConfigured)
	})

	t.Run("failures are reported and the loop continues", func(t *testing.T) {
		orders := new(MockOrderRepository)
		sink := new(MockOrderSink)
		pending := []trade.Order{
			*sampleOrder(1, &catalog.Product{SKU: strPtr("SKU-1")}),
			*sampleOrder(2, &catalog.Product{SKU: strPtr(" ")}),
			*sampleOrder(3, &catalog.Product{ERPProductID: strPtr("5")}),
		}
		filter := trade.PendingOrderFilter{IDs: []int64{1, 2, 3}, Limit: 10}
		orders.On("FindPending", mock.Anything, filter).Return(pending, nil)
		orders.On("RecordAcknowledgment", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		sink.On("CreateOrder", mock.Anything, mock.Anything).Return(&integration.OrderAck{OrderID: "X"}, nil)

		report, err := newExportService(orders, sink).SendPending(ctx, PendingOrderQuery{OrderIDs: []int64{1, 2, 3}, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Sent)
		require.Len(t, report.Failures, 1)
		assert.Equal(t, int64(2), report.Failures[0].OrderID)
		sink.AssertNumberOfCalls(t, "CreateOrder", 2)
	})

	t.Run("dry run only plans", func(t *testing.T) {
		orders := new(MockOrderRepository)
		sink := new(MockOrderSink)
		orders.On("FindPending", mock.Anything, trade.PendingOrderFilter{}).Return([]trade.Order{*sampleOrder(1), *sampleOrder(2)}, nil)

		report, err := newExportService(orders, sink).SendPending(ctx, PendingOrderQuery{DryRun: true})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, report.Planned)
		assert.Zero(t, report.Sent)
		sink.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})

	t.Run("repository errors abort", func(t *testing.T) {
		orders := new(MockOrderRepository)
		orders.On("FindPending", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		_, err := newExportService(orders, new(MockOrderSink)).SendPending(ctx, PendingOrderQuery{})
		assert.ErrorContains(t, err, "find pending orders")
	})
}

func TestOrderExportService_Push(t *testing.T) {
	ctx := context.Background()
	orders := new(MockOrderRepository)
	sink := new(MockOrderSink)
	order := sampleOrder(11, &catalog.Product{SKU: strPtr("SKU-1")})
	orders.On("FindByID", mock.Anything, int64(11)).Return(order, nil)
	orders.On("FindByID", mock.Anything, int64(12)).Return(nil, shared.ErrNotFound)
	orders.On("RecordAcknowledgment", mock.Anything, int64(11), mock.Anything).Return(nil)
	sink.On("CreateOrder", mock.Anything, mock.Anything).Return(&integration.OrderAck{OrderID: "ERP-11"}, nil)

	svc := newExportService(orders, sink)
	svc.Push(ctx, 11)
	svc.Push(ctx, 12)

	assert.True(t, order.IsAcknowledged())
	sink.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestOrderExportService_SendKeepsConcurrentStatusUpdates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := seedProduct(t, env, "1", "SKU-1")
	id := seedOrder(t, env, product, fixedNow.Add(-time.Hour))

	stale, err := env.orders.FindByID(ctx, id)
	require.NoError(t, err)

	// the ERP reports a status while the order is being exported
	_, err = newInboundService(env).UpdateOrderStatus(ctx, id, trade.ERPStatusUpdate{
		Status:  strPtr("processing"),
		Comment: strPtr("picked"),
	})
	require.NoError(t, err)

	sink := new(MockOrderSink)
	sink.On("CreateOrder", mock.Anything, mock.Anything).Return(&integration.OrderAck{OrderID: "ERP-7"}, nil)
	_, err = newExportService(env.orders, sink).Send(ctx, stale)
	require.NoError(t, err)

	stored, err := env.orders.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusProcessing, stored.Status)
	assert.Equal(t, "processing", stored.ERPStatus, "an ack without status keeps the reported one")
	assert.Equal(t, "picked", stored.ERPStatusComment)
	assert.NotNil(t, stored.ERPStatusUpdatedAt)
	assert.Equal(t, "ERP-7", stored.ERPExternalID)
	require.NotNil(t, stored.ERPAcknowledgedAt)
	assert.True(t, fixedNow.Equal(*stored.ERPAcknowledgedAt))
}
