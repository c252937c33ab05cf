package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"fabro-storefront/internal/dto"
	"fabro-storefront/internal/model"
	"fabro-storefront/internal/repository"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// fulfilment position of each forward state; cancelled sits outside the sequence
var fulfilmentRank = map[model.OrderStatus]int{
	model.OrderStatusPlaced:     0,
	model.OrderStatusConfirmed:  1,
	model.OrderStatusInProgress: 2,
	model.OrderStatusShipped:    3,
	model.OrderStatusDelivered:  4,
}

// CanTransition allows forward moves along the fulfilment sequence (skipping is fine)
// and cancellation of any order that is not yet delivered or cancelled.
func CanTransition(from, to model.OrderStatus) error {
	if !from.Valid() || !to.Valid() || from == to || from.Terminal() {
		return &InvalidTransitionError{From: from, To: to}
	}
	if to == model.OrderStatusCancelled {
		return nil
	}
	if fulfilmentRank[to] > fulfilmentRank[from] {
		return nil
	}
	return &InvalidTransitionError{From: from, To: to}
}

type LifecycleService interface {
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	UpdateStatus(ctx context.Context, orderID string, to model.OrderStatus, actor, note string) (*model.Order, error)
	History(ctx context.Context, orderID string) ([]model.OrderStatusHistory, error)
	ListOrders(ctx context.Context, query dto.OrderListQuery) (*dto.OrderListResponse, error)
	Dashboard(ctx context.Context) (*dto.DashboardResponse, error)
	TrackOrder(ctx context.Context, orderNumber, contact string) (*model.Order, error)
}

type lifecycleServiceImpl struct {
	db                *gorm.DB
	orderRepo         repository.OrderRepository
	historyRepo       repository.StatusHistoryRepository
	orderNumberFormat *regexp.Regexp
	events            *EventEmitter
	logger            *zap.Logger
}

func NewLifecycleService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	historyRepo repository.StatusHistoryRepository,
	orderNumberPrefix string,
	events *EventEmitter,
	logger *zap.Logger,
) LifecycleService {
	return &lifecycleServiceImpl{
		db:                db,
		orderRepo:         orderRepo,
		historyRepo:       historyRepo,
		orderNumberFormat: orderNumberPattern(orderNumberPrefix),
		events:            events,
		logger:            logger,
	}
}

func (s *lifecycleServiceImpl) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, nil, orderID)
	if err != nil {
		return nil, storeErr("load order", err)
	}
	return order, nil
}

func (s *lifecycleServiceImpl) UpdateStatus(ctx context.Context, orderID string, to model.OrderStatus, actor, note string) (*model.Order, error) {
	if !to.Valid() {
		return nil, validationErr("order_status %q is not a known status", to)
	}

	var updated *model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.FindByID(ctx, tx, orderID)
		if err != nil {
			return storeErr("load order", err)
		}

		from := order.OrderStatus
		if err := CanTransition(from, to); err != nil {
			return err
		}

		ok, err := s.orderRepo.UpdateOrderStatus(ctx, tx, orderID, from, to)
		if err != nil {
			return storeErr("update order status", err)
		}
		if !ok {
			return fmt.Errorf("%w: order %s changed status concurrently", ErrConflict, orderID)
		}

		err = s.historyRepo.Append(ctx, tx, &model.OrderStatusHistory{
			ID:         ulid.Make().String(),
			OrderID:    orderID,
			FromStatus: from,
			ToStatus:   to,
			Actor:      actor,
			Note:       strings.TrimSpace(note),
			ChangedAt:  time.Now().UTC(),
		})
		if err != nil {
			return storeErr("store status history", err)
		}

		updated, err = s.orderRepo.FindByID(ctx, tx, orderID)
		if err != nil {
			return storeErr("reload order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status changed",
		zap.String("order_id", updated.ID),
		zap.String("to", string(to)),
		zap.String("actor", actor),
	)
	s.events.Emit(ctx, EventOrderStatusChanged, updated, actor)

	return updated, nil
}

func (s *lifecycleServiceImpl) History(ctx context.Context, orderID string) ([]model.OrderStatusHistory, error) {
	if _, err := s.orderRepo.FindByID(ctx, nil, orderID); err != nil {
		return nil, storeErr("load order", err)
	}

	entries, err := s.historyRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, storeErr("load status history", err)
	}
	return entries, nil
}

func (s *lifecycleServiceImpl) ListOrders(ctx context.Context, query dto.OrderListQuery) (*dto.OrderListResponse, error) {
	status := model.OrderStatus(strings.TrimSpace(query.Status))
	if status != "" && !status.Valid() {
		return nil, validationErr("status %q is not a known status", status)
	}
	if query.Offset < 0 {
		return nil, validationErr("offset must not be negative")
	}

	limit := query.Limit
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	orders, total, err := s.orderRepo.List(ctx, repository.OrderFilter{
		Status: status,
		Limit:  limit,
		Offset: query.Offset,
	})
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	if orders == nil {
		orders = []model.Order{}
	}

	return &dto.OrderListResponse{
		Orders: orders,
		Total:  total,
		Limit:  limit,
		Offset: query.Offset,
	}, nil
}

func (s *lifecycleServiceImpl) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	stats, err := s.orderRepo.Stats(ctx)
	if err != nil {
		return nil, storeErr("order stats", err)
	}

	return &dto.DashboardResponse{
		TotalOrders:     stats.Total,
		ByStatus:        stats.ByStatus,
		PendingPayments: stats.PendingPayments,
		PaidRevenue:     stats.PaidRevenue,
	}, nil
}

// TrackOrder answers NotFound both for unknown numbers and for a contact that does not
// belong to the order, so order numbers cannot be enumerated.
func (s *lifecycleServiceImpl) TrackOrder(ctx context.Context, orderNumber, contact string) (*model.Order, error) {
	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	contact = strings.TrimSpace(contact)
	if orderNumber == "" || contact == "" {
		return nil, validationErr("orderNumber and contact are required")
	}
	if !s.orderNumberFormat.MatchString(orderNumber) {
		return nil, validationErr("orderNumber %q is not a valid order number", orderNumber)
	}

	order, err := s.orderRepo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, storeErr("load order", err)
	}
	if order.Customer == nil || !contactMatches(order.Customer, contact) {
		return nil, storeErr("load order", gorm.ErrRecordNotFound)
	}
	return order, nil
}

func contactMatches(customer *model.Customer, contact string) bool {
	if strings.Contains(contact, "@") {
		return strings.EqualFold(customer.Email, contact)
	}
	key := phoneKey(contact)
	return key != "" && phoneKey(customer.Phone) == key
}

// nationalNumberLen is the length of an Indian subscriber number without +91 or a 0 prefix.
const nationalNumberLen = 10

// phoneKey reduces a phone number to its last ten digits so "+91 98765 43210",
// "098765 43210" and "9876543210" compare equal.
func phoneKey(phone string) string {
	digits := digitsOnly(phone)
	if len(digits) > nationalNumberLen {
		return digits[len(digits)-nationalNumberLen:]
	}
	return digits
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
