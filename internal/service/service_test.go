package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"fabro-storefront/internal/client"
	"fabro-storefront/internal/config"
	"fabro-storefront/internal/dto"
	"fabro-storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testKeySecret     = "rzp_secret_test"
	testWebhookSecret = "whsec_test"
)

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []*client.EmailMessage
	err  error
	// when set, sends wait for it to be closed
	release chan struct{}
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, msg *client.EmailMessage) (string, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg_" + uuid.NewString()[:8], nil
}

func (f *fakeEmailSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeRazorpay struct {
	lastReq *client.RazorpayOrderRequest
	err     error
}

func (f *fakeRazorpay) CreateOrder(_ context.Context, req *client.RazorpayOrderRequest) (*client.RazorpayOrder, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastReq = req
	return &client.RazorpayOrder{
		ID:       "order_" + uuid.NewString()[:12],
		Entity:   "order",
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    req.Notes,
	}, nil
}

func (f *fakeRazorpay) KeyID() string { return "rzp_test_key" }

type fakeStripe struct {
	intents map[string]*client.StripeIntent
}

func (f *fakeStripe) CreatePaymentIntent(_ context.Context, req *client.StripeIntentRequest) (*client.StripeIntent, error) {
	intent := &client.StripeIntent{
		ID:           "pi_" + uuid.NewString()[:12],
		Status:       "requires_payment_method",
		Amount:       req.Amount,
		Currency:     "inr",
		ClientSecret: "secret",
		Metadata:     map[string]string{"order_id": req.OrderID},
	}
	f.intents[intent.ID] = intent
	return intent, nil
}

func (f *fakeStripe) GetPaymentIntent(_ context.Context, id string) (*client.StripeIntent, error) {
	intent, ok := f.intents[id]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	return intent, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey, _ string, body []byte) error {
	var event OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}
	if event.Type != routingKey {
		return errors.New("routing key does not match event type")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	db        *gorm.DB
	orderRepo repository.OrderRepository
	email     *fakeEmailSender
	razorpay  *fakeRazorpay
	stripe    *fakeStripe
	publisher *recordingPublisher

	customers     CustomerService
	orders        OrderService
	lifecycle     LifecycleService
	payments      PaymentService
	notifications NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithGenerator(t, NewOrderNumberGenerator("FABRO", nil))
}

func newTestEnvWithGenerator(t *testing.T, gen OrderNumberGenerator) *testEnv {
	t.Helper()

	db, err := client.OpenDatabase(&config.Database{
		Driver:   "sqlite",
		URL:      "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	logger := zap.NewNop()
	env := &testEnv{
		db:        db,
		orderRepo: repository.NewOrderRepository(db),
		email:     &fakeEmailSender{},
		razorpay:  &fakeRazorpay{},
		stripe:    &fakeStripe{intents: map[string]*client.StripeIntent{}},
		publisher: &recordingPublisher{},
	}

	historyRepo := repository.NewStatusHistoryRepository(db)
	events := NewEventEmitter(env.publisher, logger)

	env.customers = NewCustomerService(repository.NewCustomerRepository(db))
	env.notifications = NewNotificationService(env.email, env.orderRepo, "+91 88528 08522", "https://fabro.in/", logger)
	t.Cleanup(func() {
		_ = env.notifications.Wait(context.Background())
	})
	env.orders = NewOrderService(db, env.customers, env.orderRepo, historyRepo, gen, env.notifications, events, logger)
	env.lifecycle = NewLifecycleService(db, env.orderRepo, historyRepo, "FABRO", events, logger)
	env.payments = NewPaymentService(
		db,
		env.razorpay,
		env.stripe,
		PaymentSecrets{RazorpayKeySecret: testKeySecret, RazorpayWebhookSecret: testWebhookSecret, Currency: "INR"},
		env.orderRepo,
		repository.NewWebhookEventRepository(db),
		env.notifications,
		events,
		logger,
	)
	return env
}

func validOrderRequest(method string) *dto.CreateOrderRequest {
	return &dto.CreateOrderRequest{
		CustomerName:    "Asha Rao",
		Email:           "asha@example.com",
		Phone:           "9876543210",
		ShippingAddress: "12 MG Road",
		ShippingCity:    "Bengaluru",
		ShippingState:   "Karnataka",
		ShippingPincode: "560001",
		Items: []dto.OrderItemRequest{
			{ProductID: "1", ProductName: "Ivory Heirloom Kurti", Quantity: 1, Price: 3500},
		},
		TotalAmount:   3500,
		PaymentMethod: method,
	}
}

func (e *testEnv) placeOrder(t *testing.T, req *dto.CreateOrderRequest) *dto.CreateOrderResponse {
	t.Helper()
	resp, err := e.orders.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	return resp
}

// settle waits for background confirmations so their effects can be asserted.
func (e *testEnv) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.notifications.Wait(ctx))
}

// sequenceReader hands out a fixed byte stream, used to force order number collisions.
type sequenceReader struct {
	mu  sync.Mutex
	buf *bytes.Reader
}

func newSequenceReader(chunks ...[]byte) *sequenceReader {
	return &sequenceReader{buf: bytes.NewReader(bytes.Join(chunks, nil))}
}

func (r *sequenceReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Read(p)
}
