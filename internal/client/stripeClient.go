package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fabro-storefront/internal/config"

	"github.com/stripe/stripe-go/v78"
	stripeclient "github.com/stripe/stripe-go/v78/client"
)

type StripeClient interface {
	CreatePaymentIntent(ctx context.Context, req *StripeIntentRequest) (*StripeIntent, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*StripeIntent, error)
}

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeClientImpl struct {
	intents stripePaymentIntentAPI
}

type StripeIntentRequest struct {
	Amount        int64 // minor units
	Currency      string
	OrderID       string
	CustomerEmail string
	Metadata      map[string]string
}

type StripeIntent struct {
	ID           string
	Status       string
	Amount       int64
	Currency     string
	ClientSecret string
	ChargeID     string
	Metadata     map[string]string
}

// Succeeded reports whether the intent has been fully captured.
func (i *StripeIntent) Succeeded() bool {
	return i != nil && i.Status == string(stripe.PaymentIntentStatusSucceeded)
}

func NewStripeClient(cfg *config.Stripe) (StripeClient, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, errors.New("stripe: secret key is required")
	}
	sc := stripeclient.New(key, nil)
	return newStripeClientWithAPI(sc.PaymentIntents), nil
}

func newStripeClientWithAPI(intents stripePaymentIntentAPI) StripeClient {
	return &stripeClientImpl{intents: intents}
}

func (c *stripeClientImpl) CreatePaymentIntent(ctx context.Context, req *StripeIntentRequest) (*StripeIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata("order_id", req.OrderID)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	// one intent per local order
	params.SetIdempotencyKey("order-" + req.OrderID)

	pi, err := c.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return toStripeIntent(pi), nil
}

func (c *stripeClientImpl) GetPaymentIntent(ctx context.Context, intentID string) (*StripeIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.intents.Get(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get payment intent: %w", err)
	}
	return toStripeIntent(pi), nil
}

func toStripeIntent(pi *stripe.PaymentIntent) *StripeIntent {
	intent := &StripeIntent{
		ID:           pi.ID,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		ClientSecret: pi.ClientSecret,
		Metadata:     pi.Metadata,
	}
	if pi.LatestCharge != nil {
		intent.ChargeID = pi.LatestCharge.ID
	}
	return intent
}
