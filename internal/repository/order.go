package repository

import (
	"context"
	"time"

	"fabro-storefront/internal/model"

	"gorm.io/gorm"
)

type OrderFilter struct {
	Status model.OrderStatus
	Limit  int
	Offset int
}

type OrderStats struct {
	ByStatus        map[model.OrderStatus]int64
	Total           int64
	PendingPayments int64
	PaidRevenue     float64
}

// PaymentUpdate holds the gateway identifiers persisted when a payment is accepted.
type PaymentUpdate struct {
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
}

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*model.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error)
	FindByGatewayOrderID(ctx context.Context, tx *gorm.DB, gatewayOrderID string) (*model.Order, error)
	SetGatewayOrderID(ctx context.Context, tx *gorm.DB, id, gatewayOrderID string) (bool, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, id string, payment PaymentUpdate) (bool, error)
	MarkPaymentFailed(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	UpdateOrderStatus(ctx context.Context, tx *gorm.DB, id string, from, to model.OrderStatus) (bool, error)
	MarkNotified(ctx context.Context, tx *gorm.DB, id string, at time.Time) (bool, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	Stats(ctx context.Context) (*OrderStats, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	// items are written separately so their ids and line numbers stay under the caller's control
	return conn(r.db, tx).WithContext(ctx).Omit("Items", "Customer").Create(order).Error
}

func (r *orderRepoImpl) CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return conn(r.db, tx).WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, id string) (*model.Order, error) {
	var order model.Order
	err := r.withGraph(conn(r.db, tx).WithContext(ctx)).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	var order model.Order
	err := r.withGraph(r.db.WithContext(ctx)).
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByGatewayOrderID(ctx context.Context, tx *gorm.DB, gatewayOrderID string) (*model.Order, error) {
	var order model.Order
	err := r.withGraph(conn(r.db, tx).WithContext(ctx)).
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// SetGatewayOrderID attaches a new checkout attempt to an unpaid order and puts a
// previously failed payment back to pending.
func (r *orderRepoImpl) SetGatewayOrderID(ctx context.Context, tx *gorm.DB, id, gatewayOrderID string) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status <> ?", id, model.PaymentStatusPaid).
		Updates(map[string]interface{}{
			"gateway_order_id": gatewayOrderID,
			"payment_status":   model.PaymentStatusPending,
			"updated_at":       time.Now().UTC(),
		})

	return result.RowsAffected > 0, result.Error
}

// MarkPaid moves pending (or failed) payments to paid. It reports false when the
// order was already paid or does not exist.
func (r *orderRepoImpl) MarkPaid(ctx context.Context, tx *gorm.DB, id string, payment PaymentUpdate) (bool, error) {
	updates := map[string]interface{}{
		"payment_status":     model.PaymentStatusPaid,
		"gateway_order_id":   payment.GatewayOrderID,
		"gateway_payment_id": payment.GatewayPaymentID,
		"updated_at":         time.Now().UTC(),
	}
	if payment.GatewaySignature != "" {
		updates["gateway_signature"] = payment.GatewaySignature
	}

	result := conn(r.db, tx).WithContext(ctx).Model(&model.Order{}).
		Where(`
			id = ?
			AND payment_status IN ?
		`,
			id,
			[]model.PaymentStatus{model.PaymentStatusPending, model.PaymentStatusFailed},
		).
		Updates(updates)

	return result.RowsAffected > 0, result.Error
}

func (r *orderRepoImpl) MarkPaymentFailed(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ?", id, model.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status": model.PaymentStatusFailed,
			"updated_at":     time.Now().UTC(),
		})

	return result.RowsAffected > 0, result.Error
}

// UpdateOrderStatus is a compare-and-set on order_status; false means another writer got there first.
func (r *orderRepoImpl) UpdateOrderStatus(ctx context.Context, tx *gorm.DB, id string, from, to model.OrderStatus) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND order_status = ?", id, from).
		Updates(map[string]interface{}{
			"order_status": to,
			"updated_at":   time.Now().UTC(),
		})

	return result.RowsAffected > 0, result.Error
}

func (r *orderRepoImpl) MarkNotified(ctx context.Context, tx *gorm.DB, id string, at time.Time) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND notified_at IS NULL", id).
		Update("notified_at", at)

	return result.RowsAffected > 0, result.Error
}

func (r *orderRepoImpl) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Order{})
	if filter.Status != "" {
		query = query.Where("order_status = ?", filter.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []model.Order
	err := query.
		Preload("Customer").
		Order("created_at DESC").
		Order("id").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepoImpl) Stats(ctx context.Context) (*OrderStats, error) {
	var rows []struct {
		OrderStatus model.OrderStatus
		Count       int64
	}
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("order_status, COUNT(*) AS count").
		Group("order_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &OrderStats{ByStatus: make(map[model.OrderStatus]int64, len(model.OrderStatuses))}
	for _, status := range model.OrderStatuses {
		stats.ByStatus[status] = 0
	}
	for _, row := range rows {
		stats.ByStatus[row.OrderStatus] = row.Count
		stats.Total += row.Count
	}

	err = r.db.WithContext(ctx).Model(&model.Order{}).
		Where("payment_status = ?", model.PaymentStatusPending).
		Where("order_status <> ?", model.OrderStatusCancelled).
		Count(&stats.PendingPayments).Error
	if err != nil {
		return nil, err
	}

	var revenue struct{ Total float64 }
	err = r.db.WithContext(ctx).Model(&model.Order{}).
		Select("COALESCE(SUM(total_amount), 0) AS total").
		Where("payment_status = ?", model.PaymentStatusPaid).
		Scan(&revenue).Error
	if err != nil {
		return nil, err
	}
	stats.PaidRevenue = revenue.Total

	return stats, nil
}

func (r *orderRepoImpl) withGraph(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_no")
		})
}
