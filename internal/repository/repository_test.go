package repository

import (
	"context"
	"testing"
	"time"

	"fabro-storefront/internal/client"
	"fabro-storefront/internal/config"
	"fabro-storefront/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := client.OpenDatabase(&config.Database{
		Driver:   "sqlite",
		URL:      "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, number string, status model.OrderStatus) *model.Order {
	t.Helper()
	ctx := context.Background()

	customer := &model.Customer{ID: uuid.NewString(), Name: "Asha", Email: number + "@example.com", Phone: "9876543210"}
	require.NoError(t, NewCustomerRepository(db).Upsert(ctx, nil, customer))

	order := &model.Order{
		ID:              uuid.NewString(),
		OrderNumber:     number,
		CustomerID:      customer.ID,
		ShippingAddress: "12 MG Road",
		ShippingCity:    "Bengaluru",
		ShippingState:   "Karnataka",
		ShippingPincode: "560001",
		TotalAmount:     3500,
		PaymentMethod:   model.PaymentMethodRazorpay,
		PaymentStatus:   model.PaymentStatusPending,
		OrderStatus:     status,
	}
	require.NoError(t, NewOrderRepository(db).Create(ctx, nil, order))
	return order
}

func TestCustomerUpsertOverwritesNameAndPhone(t *testing.T) {
	db := newTestDB(t)
	repo := NewCustomerRepository(db)
	ctx := context.Background()

	first := &model.Customer{ID: uuid.NewString(), Name: "Asha", Email: "asha@example.com", Phone: "111"}
	require.NoError(t, repo.Upsert(ctx, nil, first))

	second := &model.Customer{ID: uuid.NewString(), Name: "Asha R", Email: "asha@example.com", Phone: "222"}
	require.NoError(t, repo.Upsert(ctx, nil, second))

	got, err := repo.FindByEmail(ctx, nil, "asha@example.com")
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)
	require.Equal(t, "Asha R", got.Name)
	require.Equal(t, "222", got.Phone)

	var count int64
	require.NoError(t, db.Model(&model.Customer{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	_, err = repo.FindByEmail(ctx, nil, "nobody@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderGraphAndItemOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "FABRO-20260208-A7K2M", model.OrderStatusPlaced)

	items := []*model.OrderItem{
		{ID: uuid.NewString(), OrderID: order.ID, LineNo: 1, ProductID: "1", ProductName: "Ivory Heirloom Kurti", Quantity: 1, Price: 3500},
		{ID: uuid.NewString(), OrderID: order.ID, LineNo: 2, ProductID: "3", ProductName: "Golden Dupatta", Quantity: 2, Price: 1800},
	}
	require.NoError(t, repo.CreateOrderItems(ctx, nil, items))
	require.NoError(t, repo.CreateOrderItems(ctx, nil, nil))

	got, err := repo.FindByID(ctx, nil, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Customer)
	require.Equal(t, "Asha", got.Customer.Name)
	require.Len(t, got.Items, 2)
	require.Equal(t, "1", got.Items[0].ProductID)
	require.Equal(t, "3", got.Items[1].ProductID)

	byNumber, err := repo.FindByOrderNumber(ctx, "FABRO-20260208-A7K2M")
	require.NoError(t, err)
	require.Equal(t, order.ID, byNumber.ID)
}

func TestOrderNumberIsUnique(t *testing.T) {
	db := newTestDB(t)
	seedOrder(t, db, "FABRO-20260208-AAAAA", model.OrderStatusPlaced)

	dup := &model.Order{
		ID:            uuid.NewString(),
		OrderNumber:   "FABRO-20260208-AAAAA",
		CustomerID:    uuid.NewString(),
		PaymentMethod: model.PaymentMethodCOD,
		PaymentStatus: model.PaymentStatusPending,
		OrderStatus:   model.OrderStatusPlaced,
	}
	err := NewOrderRepository(db).Create(context.Background(), nil, dup)
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestPaymentTransitions(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	order := seedOrder(t, db, "FABRO-20260208-PAY01", model.OrderStatusPlaced)

	ok, err := repo.SetGatewayOrderID(ctx, nil, order.ID, "order_123")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := repo.FindByGatewayOrderID(ctx, nil, "order_123")
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)

	ok, err = repo.MarkPaid(ctx, nil, order.ID, PaymentUpdate{
		GatewayOrderID:   "order_123",
		GatewayPaymentID: "pay_456",
		GatewaySignature: "sig",
	})
	require.NoError(t, err)
	require.True(t, ok)

	// already paid
	ok, err = repo.MarkPaid(ctx, nil, order.ID, PaymentUpdate{GatewayOrderID: "order_123", GatewayPaymentID: "pay_789"})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.MarkPaymentFailed(ctx, nil, order.ID)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.SetGatewayOrderID(ctx, nil, order.ID, "order_other")
	require.NoError(t, err)
	require.False(t, ok)

	got, err = repo.FindByID(ctx, nil, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
	require.Equal(t, "pay_456", *got.GatewayPaymentID)
	require.Equal(t, "sig", *got.GatewaySignature)
}

func TestPaymentIDSettlesOneOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	first := seedOrder(t, db, "FABRO-20260208-UNQ01", model.OrderStatusPlaced)
	second := seedOrder(t, db, "FABRO-20260208-UNQ02", model.OrderStatusPlaced)

	ok, err := repo.MarkPaid(ctx, nil, first.ID, PaymentUpdate{GatewayOrderID: "order_1", GatewayPaymentID: "pay_shared"})
	require.NoError(t, err)
	require.True(t, ok)

	_, err = repo.MarkPaid(ctx, nil, second.ID, PaymentUpdate{GatewayOrderID: "order_2", GatewayPaymentID: "pay_shared"})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	got, err := repo.FindByID(ctx, nil, second.ID)
	require.NoError(t, err)
	require.Equal(t, model.PaymentStatusPending, got.PaymentStatus)
	require.Nil(t, got.GatewayPaymentID)
}

func TestUpdateOrderStatusIsCompareAndSet(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	order := seedOrder(t, db, "FABRO-20260208-CAS01", model.OrderStatusPlaced)

	ok, err := repo.UpdateOrderStatus(ctx, nil, order.ID, model.OrderStatusPlaced, model.OrderStatusConfirmed)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.UpdateOrderStatus(ctx, nil, order.ID, model.OrderStatusPlaced, model.OrderStatusCancelled)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMarkNotifiedOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	order := seedOrder(t, db, "FABRO-20260208-NTF01", model.OrderStatusPlaced)

	ok, err := repo.MarkNotified(ctx, nil, order.ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.MarkNotified(ctx, nil, order.ID, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListAndStats(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	seedOrder(t, db, "FABRO-20260208-LST01", model.OrderStatusPlaced)
	paid := seedOrder(t, db, "FABRO-20260208-LST02", model.OrderStatusPlaced)
	seedOrder(t, db, "FABRO-20260208-LST03", model.OrderStatusShipped)

	_, err := repo.MarkPaid(ctx, nil, paid.ID, PaymentUpdate{GatewayOrderID: "o", GatewayPaymentID: "p"})
	require.NoError(t, err)

	orders, total, err := repo.List(ctx, OrderFilter{Status: model.OrderStatusPlaced, Limit: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, orders, 1)
	require.NotNil(t, orders[0].Customer)

	orders, total, err = repo.List(ctx, OrderFilter{Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, orders, 3)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.Total)
	require.EqualValues(t, 2, stats.ByStatus[model.OrderStatusPlaced])
	require.EqualValues(t, 1, stats.ByStatus[model.OrderStatusShipped])
	require.EqualValues(t, 0, stats.ByStatus[model.OrderStatusDelivered])
	require.EqualValues(t, 2, stats.PendingPayments)
	require.Equal(t, 3500.0, stats.PaidRevenue)
}

func TestStatusHistoryOrdering(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatusHistoryRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Append(ctx, nil, &model.OrderStatusHistory{
		ID: "01J0000000000000000000000B", OrderID: "o1", FromStatus: model.OrderStatusPlaced,
		ToStatus: model.OrderStatusConfirmed, Actor: "admin@fabro.in", ChangedAt: now.Add(time.Minute),
	}))
	require.NoError(t, repo.Append(ctx, nil, &model.OrderStatusHistory{
		ID: "01J0000000000000000000000A", OrderID: "o1",
		ToStatus: model.OrderStatusPlaced, Actor: "customer", ChangedAt: now,
	}))

	entries, err := repo.ListByOrder(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, model.OrderStatusPlaced, entries[0].ToStatus)
	require.Equal(t, model.OrderStatusConfirmed, entries[1].ToStatus)
}

func TestWebhookEventDedup(t *testing.T) {
	db := newTestDB(t)
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	exists, err := repo.Exists(ctx, nil, "evt_1")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, repo.MarkProcessed(ctx, nil, "evt_1", "payment.captured"))
	require.ErrorIs(t, repo.MarkProcessed(ctx, nil, "evt_1", "payment.captured"), gorm.ErrDuplicatedKey)

	exists, err = repo.Exists(ctx, nil, "evt_1")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestAdminUpsertRotatesHash(t *testing.T) {
	db := newTestDB(t)
	repo := NewAdminUserRepository(db)
	ctx := context.Background()

	first := &model.AdminUser{ID: uuid.NewString(), Email: "admin@fabro.in", PasswordHash: "h1"}
	require.NoError(t, repo.Upsert(ctx, first))
	require.NoError(t, repo.Upsert(ctx, &model.AdminUser{ID: uuid.NewString(), Email: "admin@fabro.in", PasswordHash: "h2"}))

	got, err := repo.FindByEmail(ctx, "admin@fabro.in")
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)
	require.Equal(t, "h2", got.PasswordHash)
}
