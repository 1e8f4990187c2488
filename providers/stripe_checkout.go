package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"

	"salonpro-pos/services"
)

type StripeConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
	Currency   string
}

// StripeCheckout opens hosted Stripe Checkout sessions for card-not-present sales.
type StripeCheckout struct {
	sessions *session.Client
	cfg      StripeConfig
}

func NewStripeCheckout(cfg StripeConfig) *StripeCheckout {
	return NewStripeCheckoutWithBackend(stripe.GetBackend(stripe.APIBackend), cfg)
}

func NewStripeCheckoutWithBackend(b stripe.Backend, cfg StripeConfig) *StripeCheckout {
	if cfg.Currency == "" {
		cfg.Currency = "ils"
	}
	cfg.Currency = strings.ToLower(cfg.Currency)
	return &StripeCheckout{
		sessions: &session.Client{B: b, Key: cfg.SecretKey},
		cfg:      cfg,
	}
}

var _ services.CheckoutSessionProvider = (*StripeCheckout)(nil)

func (s *StripeCheckout) CreateCheckoutSession(ctx context.Context, amount decimal.Decimal, description string, client services.ClientInfo) (services.CheckoutSession, error) {
	minor := amount.Shift(2).Round(0).IntPart()
	if minor <= 0 {
		return services.CheckoutSession{}, fmt.Errorf("stripe: amount must be positive, got %s", amount.StringFixed(2))
	}
	if description == "" {
		description = "Salon purchase"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.cfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
					UnitAmount: stripe.Int64(minor),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if client.ID != "" {
		params.ClientReferenceID = stripe.String(client.ID)
	}
	if client.Email != "" {
		params.CustomerEmail = stripe.String(client.Email)
	}
	params.Context = ctx

	cs, err := s.sessions.New(params)
	if err != nil {
		return services.CheckoutSession{}, fmt.Errorf("stripe checkout: %w", err)
	}
	return services.CheckoutSession{URL: cs.URL, SessionRef: cs.ID}, nil
}
