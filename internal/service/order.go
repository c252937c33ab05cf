package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"fabro-storefront/internal/dto"
	"fabro-storefront/internal/model"
	"fabro-storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxOrderNumberAttempts = 5
	actorCustomer          = "customer"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, req *dto.CreateOrderRequest) (*dto.CreateOrderResponse, error)
}

type orderServiceImpl struct {
	db              *gorm.DB
	customerService CustomerService
	orderRepo       repository.OrderRepository
	historyRepo     repository.StatusHistoryRepository
	nextOrderNumber OrderNumberGenerator
	notifier        NotificationService
	events          *EventEmitter
	logger          *zap.Logger
	sanitizer       *bluemonday.Policy
	now             func() time.Time
}

func NewOrderService(
	db *gorm.DB,
	customerService CustomerService,
	orderRepo repository.OrderRepository,
	historyRepo repository.StatusHistoryRepository,
	nextOrderNumber OrderNumberGenerator,
	notifier NotificationService,
	events *EventEmitter,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		db:              db,
		customerService: customerService,
		orderRepo:       orderRepo,
		historyRepo:     historyRepo,
		nextOrderNumber: nextOrderNumber,
		notifier:        notifier,
		events:          events,
		logger:          logger,
		sanitizer:       bluemonday.StrictPolicy(),
		now:             time.Now,
	}
}

func (s *orderServiceImpl) PlaceOrder(ctx context.Context, req *dto.CreateOrderRequest) (*dto.CreateOrderResponse, error) {
	in, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:              uuid.NewString(),
		ShippingAddress: in.ShippingAddress,
		ShippingCity:    in.ShippingCity,
		ShippingState:   in.ShippingState,
		ShippingPincode: in.ShippingPincode,
		OrderNotes:      in.OrderNotes,
		TotalAmount:     req.TotalAmount,
		PaymentMethod:   model.PaymentMethod(in.PaymentMethod),
		PaymentStatus:   model.PaymentStatusPending,
		OrderStatus:     model.OrderStatusPlaced,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerService.Resolve(ctx, tx, CustomerInput{
			Name:  in.CustomerName,
			Email: in.Email,
			Phone: in.Phone,
		})
		if err != nil {
			return err
		}
		order.CustomerID = customer.ID

		if err := s.insertWithUniqueNumber(ctx, tx, order); err != nil {
			return err
		}

		items := make([]*model.OrderItem, len(in.Items))
		for i, item := range in.Items {
			items[i] = &model.OrderItem{
				ID:           uuid.NewString(),
				OrderID:      order.ID,
				LineNo:       i + 1,
				ProductID:    item.ProductID,
				ProductName:  item.ProductName,
				ProductImage: item.ProductImage,
				Quantity:     item.Quantity,
				Price:        item.Price,
			}
		}
		if err := s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
			return storeErr("store order items", err)
		}

		err = s.historyRepo.Append(ctx, tx, &model.OrderStatusHistory{
			ID:        ulid.Make().String(),
			OrderID:   order.ID,
			ToStatus:  model.OrderStatusPlaced,
			Actor:     actorCustomer,
			ChangedAt: order.CreatedAt,
		})
		if err != nil {
			return storeErr("store status history", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("payment_method", string(order.PaymentMethod)),
	)

	s.events.Emit(ctx, EventOrderPlaced, order, actorCustomer)
	if order.PaymentMethod == model.PaymentMethodCOD {
		s.notifier.ConfirmInBackground(ctx, order.ID)
	}

	return &dto.CreateOrderResponse{
		Success:     true,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
	}, nil
}

// insertWithUniqueNumber draws a fresh order number whenever the unique index rejects one.
// Each attempt runs in its own savepoint so a rejected insert leaves the outer transaction usable.
func (s *orderServiceImpl) insertWithUniqueNumber(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		number, err := s.nextOrderNumber(s.now())
		if err != nil {
			return fmt.Errorf("generate order number: %w", err)
		}
		order.OrderNumber = number
		order.CreatedAt = s.now().UTC()
		order.UpdatedAt = order.CreatedAt

		err = tx.Transaction(func(sp *gorm.DB) error {
			return s.orderRepo.Create(ctx, sp, order)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return storeErr("store order", err)
		}

		s.logger.Warn("order number collision",
			zap.String("order_number", number),
			zap.Int("attempt", attempt),
		)
	}

	return fmt.Errorf("%w: could not allocate a unique order number after %d attempts", ErrConflict, maxOrderNumberAttempts)
}

type placeOrderInput struct {
	dto.CreateOrderRequest
}

func (s *orderServiceImpl) normalize(req *dto.CreateOrderRequest) (*placeOrderInput, error) {
	if req == nil {
		return nil, validationErr("request body is required")
	}

	in := &placeOrderInput{CreateOrderRequest: *req}
	in.CustomerName = s.clean(req.CustomerName)
	in.Email = strings.TrimSpace(req.Email)
	in.Phone = strings.TrimSpace(req.Phone)
	in.ShippingAddress = s.clean(req.ShippingAddress)
	in.ShippingCity = s.clean(req.ShippingCity)
	in.ShippingState = s.clean(req.ShippingState)
	in.ShippingPincode = strings.TrimSpace(req.ShippingPincode)
	in.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	if req.OrderNotes != nil {
		if notes := s.clean(*req.OrderNotes); notes != "" {
			in.OrderNotes = &notes
		} else {
			in.OrderNotes = nil
		}
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"customerName", in.CustomerName},
		{"email", in.Email},
		{"phone", in.Phone},
		{"shippingAddress", in.ShippingAddress},
		{"shippingCity", in.ShippingCity},
		{"shippingState", in.ShippingState},
		{"shippingPincode", in.ShippingPincode},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, validationErr("missing required fields: %s", strings.Join(missing, ", "))
	}
	if !strings.Contains(in.Email, "@") {
		return nil, validationErr("email %q is not valid", in.Email)
	}
	if !model.PaymentMethod(in.PaymentMethod).Valid() {
		return nil, validationErr("paymentMethod %q is not supported", req.PaymentMethod)
	}
	if len(req.Items) == 0 {
		return nil, validationErr("order must contain at least one item")
	}

	sum := decimal.Zero
	in.Items = make([]dto.OrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		item.ProductName = s.clean(item.ProductName)
		if item.ProductImage != nil && strings.TrimSpace(*item.ProductImage) == "" {
			item.ProductImage = nil
		}
		if item.ProductID == "" || item.ProductName == "" {
			return nil, validationErr("item %d: productId and productName are required", i+1)
		}
		if item.Quantity < 1 {
			return nil, validationErr("item %d: quantity must be at least 1", i+1)
		}
		if item.Price <= 0 {
			return nil, validationErr("item %d: price must be positive", i+1)
		}
		in.Items[i] = item
		sum = sum.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	if !decimal.NewFromFloat(req.TotalAmount).Equal(sum) {
		return nil, validationErr("totalAmount %v does not match items total %s", req.TotalAmount, sum.String())
	}

	return in, nil
}

// clean strips markup from free text. Entities bluemonday introduces are decoded
// again since output is escaped at render time.
func (s *orderServiceImpl) clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(v)))
}
