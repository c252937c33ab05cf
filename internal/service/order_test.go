package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"fabro-storefront/internal/dto"
	"fabro-storefront/internal/model"

	"github.com/stretchr/testify/require"
)

func countRows(t *testing.T, env *testEnv, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(m).Count(&n).Error)
	return n
}

func TestPlaceOrderCOD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.placeOrder(t, validOrderRequest("COD"))
	require.True(t, resp.Success)
	require.Regexp(t, `^FABRO-\d{8}-[A-Z0-9]{5}$`, resp.OrderNumber)
	env.settle(t)

	order, err := env.lifecycle.GetOrder(ctx, resp.OrderID)
	require.NoError(t, err)
	require.Equal(t, model.PaymentStatusPending, order.PaymentStatus)
	require.Equal(t, model.OrderStatusPlaced, order.OrderStatus)
	require.Equal(t, resp.CustomerID, order.CustomerID)
	require.Len(t, order.Items, 1)
	require.Equal(t, "Ivory Heirloom Kurti", order.Items[0].ProductName)
	require.Equal(t, 3500.0, order.Items[0].Price)

	history, err := env.lifecycle.History(ctx, resp.OrderID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, model.OrderStatusPlaced, history[0].ToStatus)
	require.Empty(t, history[0].FromStatus)

	// cash orders are confirmed by email right away
	require.Equal(t, 1, env.email.count())
	require.NotNil(t, order.NotifiedAt)
	require.Equal(t, []string{EventOrderPlaced}, env.publisher.types())
}

func TestPlaceOrderOnlineDoesNotNotifyYet(t *testing.T) {
	env := newTestEnv(t)

	env.placeOrder(t, validOrderRequest("Razorpay"))
	env.settle(t)
	require.Zero(t, env.email.count())
}

func TestPlaceOrderDoesNotWaitForEmail(t *testing.T) {
	env := newTestEnv(t)
	env.email.release = make(chan struct{})

	done := make(chan *dto.CreateOrderResponse, 1)
	go func() {
		resp, err := env.orders.PlaceOrder(context.Background(), validOrderRequest("COD"))
		if err != nil {
			resp = nil
		}
		done <- resp
	}()

	var resp *dto.CreateOrderResponse
	select {
	case resp = <-done:
		require.NotNil(t, resp)
	case <-time.After(3 * time.Second):
		t.Fatal("PlaceOrder blocked on the confirmation email")
	}

	// the send is still parked in the email client
	require.Zero(t, env.email.count())

	close(env.email.release)
	env.settle(t)
	require.Equal(t, 1, env.email.count())

	order, err := env.lifecycle.GetOrder(context.Background(), resp.OrderID)
	require.NoError(t, err)
	require.NotNil(t, order.NotifiedAt)
}

func TestPlaceOrderSurvivesEmailFailure(t *testing.T) {
	env := newTestEnv(t)
	env.email.err = errors.New("resend unavailable")

	resp := env.placeOrder(t, validOrderRequest("COD"))
	env.settle(t)

	order, err := env.lifecycle.GetOrder(context.Background(), resp.OrderID)
	require.NoError(t, err)
	require.Nil(t, order.NotifiedAt)
}

func TestPlaceOrderValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dto.CreateOrderRequest)
	}{
		{"empty items", func(r *dto.CreateOrderRequest) { r.Items = nil; r.TotalAmount = 0 }},
		{"blank name", func(r *dto.CreateOrderRequest) { r.CustomerName = "   " }},
		{"markup only name", func(r *dto.CreateOrderRequest) { r.CustomerName = "<b></b>" }},
		{"blank email", func(r *dto.CreateOrderRequest) { r.Email = "" }},
		{"malformed email", func(r *dto.CreateOrderRequest) { r.Email = "asha.example.com" }},
		{"blank phone", func(r *dto.CreateOrderRequest) { r.Phone = "" }},
		{"blank address", func(r *dto.CreateOrderRequest) { r.ShippingAddress = "" }},
		{"blank city", func(r *dto.CreateOrderRequest) { r.ShippingCity = "" }},
		{"blank state", func(r *dto.CreateOrderRequest) { r.ShippingState = "" }},
		{"blank pincode", func(r *dto.CreateOrderRequest) { r.ShippingPincode = "" }},
		{"unknown payment method", func(r *dto.CreateOrderRequest) { r.PaymentMethod = "UPI" }},
		{"zero quantity", func(r *dto.CreateOrderRequest) { r.Items[0].Quantity = 0 }},
		{"negative price", func(r *dto.CreateOrderRequest) { r.Items[0].Price = -1; r.TotalAmount = -1 }},
		{"blank product id", func(r *dto.CreateOrderRequest) { r.Items[0].ProductID = "" }},
		{"total mismatch", func(r *dto.CreateOrderRequest) { r.TotalAmount = 3000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := validOrderRequest("COD")
			tt.mutate(req)

			_, err := env.orders.PlaceOrder(context.Background(), req)
			require.ErrorIs(t, err, ErrValidation)
			require.Zero(t, countRows(t, env, &model.Order{}))
			require.Zero(t, countRows(t, env, &model.Customer{}))
		})
	}
}

func TestPlaceOrderTotalUsesExactArithmetic(t *testing.T) {
	env := newTestEnv(t)
	req := validOrderRequest("COD")
	req.Items = []dto.OrderItemRequest{
		{ProductID: "a", ProductName: "Thread", Quantity: 3, Price: 0.1},
		{ProductID: "b", ProductName: "Needle", Quantity: 1, Price: 0.2},
	}
	req.TotalAmount = 0.5

	resp := env.placeOrder(t, req)
	order, err := env.lifecycle.GetOrder(context.Background(), resp.OrderID)
	require.NoError(t, err)
	require.Len(t, order.Items, 2)
	require.Equal(t, "a", order.Items[0].ProductID)
	require.Equal(t, 1, order.Items[0].LineNo)
}

func TestPlaceOrderReusesCustomerByEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.placeOrder(t, validOrderRequest("COD"))

	req := validOrderRequest("COD")
	req.Email = "  asha@example.com "
	req.CustomerName = "Asha R."
	req.Phone = "9000000000"
	second := env.placeOrder(t, req)

	require.Equal(t, first.CustomerID, second.CustomerID)
	require.NotEqual(t, first.OrderNumber, second.OrderNumber)
	require.EqualValues(t, 1, countRows(t, env, &model.Customer{}))

	order, err := env.lifecycle.GetOrder(ctx, first.OrderID)
	require.NoError(t, err)
	require.Equal(t, "Asha R.", order.Customer.Name)
	require.Equal(t, "9000000000", order.Customer.Phone)
}

func TestPlaceOrderStripsMarkup(t *testing.T) {
	env := newTestEnv(t)
	req := validOrderRequest("COD")
	req.CustomerName = "<b>Asha</b> Rao"
	req.ShippingAddress = "St. John's Road <img src=x onerror=alert(1)>"
	notes := "<i>gift wrap</i> please"
	req.OrderNotes = &notes

	resp := env.placeOrder(t, req)
	order, err := env.lifecycle.GetOrder(context.Background(), resp.OrderID)
	require.NoError(t, err)
	require.Equal(t, "Asha Rao", order.Customer.Name)
	require.Equal(t, "St. John's Road", order.ShippingAddress)
	require.Equal(t, "gift wrap please", *order.OrderNotes)
}

func TestPlaceOrderRetriesOnOrderNumberCollision(t *testing.T) {
	zeros := make([]byte, 10)
	ones := bytes.Repeat([]byte{1}, 10)
	gen := NewOrderNumberGenerator("FABRO", newSequenceReader(zeros, zeros, ones))
	env := newTestEnvWithGenerator(t, gen)

	first := env.placeOrder(t, validOrderRequest("Razorpay"))
	second := env.placeOrder(t, validOrderRequest("Razorpay"))

	require.Regexp(t, `-AAAAA$`, first.OrderNumber)
	require.Regexp(t, `-BBBBB$`, second.OrderNumber)
	require.EqualValues(t, 2, countRows(t, env, &model.Order{}))
	require.EqualValues(t, 2, countRows(t, env, &model.OrderItem{}))
}

func TestPlaceOrderGivesUpAfterRepeatedCollisions(t *testing.T) {
	gen := NewOrderNumberGenerator("FABRO", bytes.NewReader(make([]byte, 10*(1+maxOrderNumberAttempts))))
	env := newTestEnvWithGenerator(t, gen)

	env.placeOrder(t, validOrderRequest("Razorpay"))

	req := validOrderRequest("Razorpay")
	req.Email = "someone.else@example.com"
	_, err := env.orders.PlaceOrder(context.Background(), req)
	require.ErrorIs(t, err, ErrConflict)

	// the whole write rolled back, customer included
	require.EqualValues(t, 1, countRows(t, env, &model.Order{}))
	require.EqualValues(t, 1, countRows(t, env, &model.OrderItem{}))
	require.EqualValues(t, 1, countRows(t, env, &model.Customer{}))
}
