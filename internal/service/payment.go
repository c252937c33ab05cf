package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"fabro-storefront/internal/client"
	"fabro-storefront/internal/dto"
	"fabro-storefront/internal/model"
	"fabro-storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	razorpaySignatureHeader = "X-Razorpay-Signature"
	razorpayEventIDHeader   = "X-Razorpay-Event-Id"

	razorpayEventPaymentCaptured = "payment.captured"
	razorpayEventPaymentFailed   = "payment.failed"

	actorGateway = "gateway"
)

type PaymentService interface {
	CreatePaymentOrder(ctx context.Context, req *dto.CreatePaymentOrderRequest) (*dto.PaymentOrderResponse, error)
	VerifyPayment(ctx context.Context, req *dto.VerifyPaymentRequest) (*dto.VerifyPaymentResponse, error)
	HandleWebhook(ctx context.Context, headers http.Header, body []byte) error
}

type PaymentSecrets struct {
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	Currency              string
}

type paymentServiceImpl struct {
	db               *gorm.DB
	razorpayClient   client.RazorpayClient
	stripeClient     client.StripeClient // nil when Stripe is not configured
	secrets          PaymentSecrets
	orderRepo        repository.OrderRepository
	webhookEventRepo repository.WebhookEventRepository
	notifier         NotificationService
	events           *EventEmitter
	logger           *zap.Logger
}

func NewPaymentService(
	db *gorm.DB,
	razorpayClient client.RazorpayClient,
	stripeClient client.StripeClient,
	secrets PaymentSecrets,
	orderRepo repository.OrderRepository,
	webhookEventRepo repository.WebhookEventRepository,
	notifier NotificationService,
	events *EventEmitter,
	logger *zap.Logger,
) PaymentService {
	if secrets.Currency == "" {
		secrets.Currency = "INR"
	}
	return &paymentServiceImpl{
		db:               db,
		razorpayClient:   razorpayClient,
		stripeClient:     stripeClient,
		secrets:          secrets,
		orderRepo:        orderRepo,
		webhookEventRepo: webhookEventRepo,
		notifier:         notifier,
		events:           events,
		logger:           logger,
	}
}

// RazorpaySignature is HMAC-SHA256(secret, gatewayOrderID + "|" + gatewayPaymentID), hex encoded.
func RazorpaySignature(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifyRazorpaySignature(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	expected := RazorpaySignature(secret, gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(signature))
}

// toPaise converts a rupee amount to minor units.
func toPaise(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (s *paymentServiceImpl) CreatePaymentOrder(ctx context.Context, req *dto.CreatePaymentOrderRequest) (*dto.PaymentOrderResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" {
		return nil, validationErr("orderId is required")
	}

	order, err := s.orderRepo.FindByID(ctx, nil, strings.TrimSpace(req.OrderID))
	if err != nil {
		return nil, storeErr("load order", err)
	}
	if !order.PaymentMethod.IsOnline() {
		return nil, validationErr("order %s is paid by %s", order.OrderNumber, order.PaymentMethod)
	}
	if order.PaymentStatus == model.PaymentStatusPaid {
		return nil, validationErr("order %s is already paid", order.OrderNumber)
	}

	amount := toPaise(order.TotalAmount)
	if req.Amount != nil && *req.Amount != amount {
		return nil, validationErr("amount %d does not match order total %d", *req.Amount, amount)
	}

	customerName := strings.TrimSpace(req.CustomerName)
	customerEmail := strings.TrimSpace(req.CustomerEmail)
	if order.Customer != nil {
		customerName = order.Customer.Name
		customerEmail = order.Customer.Email
	}

	var resp *dto.PaymentOrderResponse
	switch order.PaymentMethod {
	case model.PaymentMethodRazorpay:
		rzpOrder, err := s.razorpayClient.CreateOrder(ctx, &client.RazorpayOrderRequest{
			Amount:   amount,
			Currency: s.secrets.Currency,
			Receipt:  order.ID,
			Notes: map[string]string{
				"order_id":      order.ID,
				"order_number":  order.OrderNumber,
				"customer_name": customerName,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPaymentGateway, err)
		}
		resp = &dto.PaymentOrderResponse{
			Gateway:  string(model.PaymentMethodRazorpay),
			ID:       rzpOrder.ID,
			Entity:   rzpOrder.Entity,
			Amount:   rzpOrder.Amount,
			Currency: rzpOrder.Currency,
			Receipt:  rzpOrder.Receipt,
			Status:   rzpOrder.Status,
			Notes:    rzpOrder.Notes,
			KeyID:    s.razorpayClient.KeyID(),
		}

	case model.PaymentMethodStripe:
		if s.stripeClient == nil {
			return nil, fmt.Errorf("%w: stripe is not configured", ErrPaymentGateway)
		}
		intent, err := s.stripeClient.CreatePaymentIntent(ctx, &client.StripeIntentRequest{
			Amount:        amount,
			Currency:      s.secrets.Currency,
			OrderID:       order.ID,
			CustomerEmail: customerEmail,
			Metadata:      map[string]string{"order_number": order.OrderNumber},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPaymentGateway, err)
		}
		resp = &dto.PaymentOrderResponse{
			Gateway:      string(model.PaymentMethodStripe),
			ID:           intent.ID,
			Entity:       "payment_intent",
			Amount:       intent.Amount,
			Currency:     strings.ToUpper(intent.Currency),
			Status:       intent.Status,
			Notes:        intent.Metadata,
			ClientSecret: intent.ClientSecret,
		}
	}

	ok, err := s.orderRepo.SetGatewayOrderID(ctx, nil, order.ID, resp.ID)
	if err != nil {
		return nil, storeErr("store gateway order id", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: order %s was paid concurrently", ErrConflict, order.OrderNumber)
	}

	resp.OrderID = order.ID
	resp.OrderNumber = order.OrderNumber

	s.logger.Info("payment order created",
		zap.String("order_id", order.ID),
		zap.String("gateway", resp.Gateway),
		zap.String("gateway_order_id", resp.ID),
		zap.Int64("amount", amount),
	)
	return resp, nil
}

func (s *paymentServiceImpl) VerifyPayment(ctx context.Context, req *dto.VerifyPaymentRequest) (*dto.VerifyPaymentResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" || strings.TrimSpace(req.GatewayOrderID) == "" {
		return nil, validationErr("orderId and gatewayOrderId are required")
	}

	order, err := s.orderRepo.FindByID(ctx, nil, req.OrderID)
	if err != nil {
		return nil, storeErr("load order", err)
	}

	var payment repository.PaymentUpdate
	switch order.PaymentMethod {
	case model.PaymentMethodRazorpay:
		payment, err = s.verifyRazorpay(order, req)
	case model.PaymentMethodStripe:
		payment, err = s.verifyStripe(ctx, order, req)
	default:
		return nil, validationErr("order %s is paid by %s", order.OrderNumber, order.PaymentMethod)
	}
	if err != nil {
		if errors.Is(err, ErrSignatureMismatch) {
			s.logger.Warn("payment verification rejected",
				zap.String("order_id", order.ID),
				zap.String("gateway_order_id", req.GatewayOrderID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	if order.PaymentStatus == model.PaymentStatusPaid {
		return s.alreadyPaid(order, payment.GatewayPaymentID)
	}

	ok, err := s.orderRepo.MarkPaid(ctx, nil, order.ID, payment)
	if err != nil {
		return nil, storeErr("mark order paid", err)
	}

	paid, err := s.orderRepo.FindByID(ctx, nil, order.ID)
	if err != nil {
		return nil, storeErr("reload order", err)
	}
	if !ok {
		// lost a race with the webhook or a second verify call
		return s.alreadyPaid(paid, payment.GatewayPaymentID)
	}

	s.logger.Info("payment verified",
		zap.String("order_id", paid.ID),
		zap.String("gateway_payment_id", payment.GatewayPaymentID),
	)
	s.events.Emit(ctx, EventOrderPaid, paid, actorGateway)
	s.notifier.ConfirmInBackground(ctx, paid.ID)

	return &dto.VerifyPaymentResponse{Success: true, Order: paid}, nil
}

func (s *paymentServiceImpl) alreadyPaid(order *model.Order, paymentID string) (*dto.VerifyPaymentResponse, error) {
	if order.PaymentStatus == model.PaymentStatusPaid &&
		order.GatewayPaymentID != nil && *order.GatewayPaymentID == paymentID {
		return &dto.VerifyPaymentResponse{Success: true, Order: order}, nil
	}
	return nil, fmt.Errorf("%w: order %s is already paid by another payment", ErrConflict, order.OrderNumber)
}

func (s *paymentServiceImpl) verifyRazorpay(order *model.Order, req *dto.VerifyPaymentRequest) (repository.PaymentUpdate, error) {
	if strings.TrimSpace(req.GatewayPaymentID) == "" || strings.TrimSpace(req.GatewaySignature) == "" {
		return repository.PaymentUpdate{}, validationErr("gatewayPaymentId and gatewaySignature are required")
	}
	if !VerifyRazorpaySignature(s.secrets.RazorpayKeySecret, req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature) {
		return repository.PaymentUpdate{}, ErrSignatureMismatch
	}
	if !ownsGatewayOrder(order, req.GatewayOrderID) {
		return repository.PaymentUpdate{}, fmt.Errorf("%w: gateway order does not belong to order %s", ErrSignatureMismatch, order.OrderNumber)
	}

	return repository.PaymentUpdate{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		GatewaySignature: req.GatewaySignature,
	}, nil
}

// ownsGatewayOrder reports whether the gateway order was created for this order by
// CreatePaymentOrder. The amount was checked against the order total at that point, so a
// valid signature for it also settles the right amount.
func ownsGatewayOrder(order *model.Order, gatewayOrderID string) bool {
	return order.GatewayOrderID != nil && *order.GatewayOrderID == gatewayOrderID
}

// verifyStripe trusts the intent fetched from Stripe, not the client's claim.
func (s *paymentServiceImpl) verifyStripe(ctx context.Context, order *model.Order, req *dto.VerifyPaymentRequest) (repository.PaymentUpdate, error) {
	if s.stripeClient == nil {
		return repository.PaymentUpdate{}, fmt.Errorf("%w: stripe is not configured", ErrPaymentGateway)
	}
	if !ownsGatewayOrder(order, req.GatewayOrderID) {
		return repository.PaymentUpdate{}, fmt.Errorf("%w: payment intent does not belong to order %s", ErrSignatureMismatch, order.OrderNumber)
	}

	intent, err := s.stripeClient.GetPaymentIntent(ctx, req.GatewayOrderID)
	if err != nil {
		return repository.PaymentUpdate{}, fmt.Errorf("%w: %w", ErrPaymentGateway, err)
	}
	if intent.Metadata["order_id"] != order.ID {
		return repository.PaymentUpdate{}, fmt.Errorf("%w: payment intent does not belong to order %s", ErrSignatureMismatch, order.OrderNumber)
	}
	if !intent.Succeeded() {
		return repository.PaymentUpdate{}, fmt.Errorf("%w: payment intent status is %s", ErrSignatureMismatch, intent.Status)
	}
	if intent.Amount != toPaise(order.TotalAmount) {
		return repository.PaymentUpdate{}, fmt.Errorf("%w: payment intent amount %d does not match order", ErrSignatureMismatch, intent.Amount)
	}

	paymentID := intent.ChargeID
	if paymentID == "" {
		paymentID = intent.ID
	}
	return repository.PaymentUpdate{
		GatewayOrderID:   intent.ID,
		GatewayPaymentID: paymentID,
	}, nil
}

func (s *paymentServiceImpl) HandleWebhook(ctx context.Context, headers http.Header, body []byte) error {
	if !VerifyWebhookSignature(s.secrets.RazorpayWebhookSecret, body, headers.Get(razorpaySignatureHeader)) {
		return fmt.Errorf("%w: webhook signature", ErrSignatureMismatch)
	}

	var event model.RazorpayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return validationErr("decode webhook payload: %v", err)
	}

	eventID := headers.Get(razorpayEventIDHeader)
	if eventID == "" {
		return validationErr("missing %s header", razorpayEventIDHeader)
	}

	var (
		changed   *model.Order
		eventType string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.webhookEventRepo.Exists(ctx, tx, eventID)
		if err != nil {
			return storeErr("check webhook event", err)
		}
		if exists {
			return nil
		}

		switch event.Event {
		case razorpayEventPaymentCaptured:
			changed, err = s.handlePaymentCaptured(ctx, tx, &event.Payload.Payment.Entity)
			eventType = EventOrderPaid
		case razorpayEventPaymentFailed:
			changed, err = s.handlePaymentFailed(ctx, tx, &event.Payload.Payment.Entity)
			eventType = EventOrderPaymentFailed
		default:
			s.logger.Debug("ignoring webhook event", zap.String("event", event.Event))
		}
		if err != nil {
			return err
		}

		if err := s.webhookEventRepo.MarkProcessed(ctx, tx, eventID, event.Event); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: webhook event %s processed concurrently", ErrConflict, eventID)
			}
			return storeErr("mark webhook event", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if changed != nil {
		s.events.Emit(ctx, eventType, changed, actorGateway)
		if eventType == EventOrderPaid {
			s.notifier.ConfirmInBackground(ctx, changed.ID)
		}
	}
	return nil
}

// handlePaymentCaptured returns the order only when this event moved it to paid.
func (s *paymentServiceImpl) handlePaymentCaptured(ctx context.Context, tx *gorm.DB, payment *model.RazorpayPaymentEntity) (*model.Order, error) {
	order, err := s.orderForPayment(ctx, tx, payment)
	if err != nil || order == nil {
		return nil, err
	}

	ok, err := s.orderRepo.MarkPaid(ctx, tx, order.ID, repository.PaymentUpdate{
		GatewayOrderID:   payment.OrderID,
		GatewayPaymentID: payment.ID,
	})
	if err != nil {
		return nil, storeErr("mark order paid", err)
	}
	if !ok {
		return nil, nil
	}

	s.logger.Info("payment captured via webhook",
		zap.String("order_id", order.ID),
		zap.String("gateway_payment_id", payment.ID),
	)
	return s.reload(ctx, tx, order.ID)
}

func (s *paymentServiceImpl) handlePaymentFailed(ctx context.Context, tx *gorm.DB, payment *model.RazorpayPaymentEntity) (*model.Order, error) {
	order, err := s.orderForPayment(ctx, tx, payment)
	if err != nil || order == nil {
		return nil, err
	}

	ok, err := s.orderRepo.MarkPaymentFailed(ctx, tx, order.ID)
	if err != nil {
		return nil, storeErr("mark payment failed", err)
	}
	if !ok {
		return nil, nil
	}

	s.logger.Info("payment failed via webhook",
		zap.String("order_id", order.ID),
		zap.String("error_code", payment.ErrorCode),
		zap.String("error_description", payment.ErrorDescription),
	)
	return s.reload(ctx, tx, order.ID)
}

// orderForPayment returns nil without error for payments that belong to no local order.
func (s *paymentServiceImpl) orderForPayment(ctx context.Context, tx *gorm.DB, payment *model.RazorpayPaymentEntity) (*model.Order, error) {
	if payment.OrderID == "" {
		return nil, validationErr("webhook payment has no order_id")
	}

	order, err := s.orderRepo.FindByGatewayOrderID(ctx, tx, payment.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn("webhook for unknown gateway order", zap.String("gateway_order_id", payment.OrderID))
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("load order by gateway order id", err)
	}
	return order, nil
}

func (s *paymentServiceImpl) reload(ctx context.Context, tx *gorm.DB, orderID string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, tx, orderID)
	if err != nil {
		return nil, storeErr("reload order", err)
	}
	return order, nil
}
