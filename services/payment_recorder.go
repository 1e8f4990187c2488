package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonpro-pos/models"
	"salonpro-pos/repository"
)

type PaymentLink struct {
	URL         string
	ExternalRef string
}

// PaymentLinkProvider creates a payable link for card payments taken remotely.
type PaymentLinkProvider interface {
	CreatePaymentLink(ctx context.Context, amount decimal.Decimal, description, clientRef string) (PaymentLink, error)
}

type ClientInfo struct {
	ID    string
	Name  string
	Email string
	Phone string
}

type CheckoutSession struct {
	URL        string
	SessionRef string
}

// CheckoutSessionProvider opens a hosted card-not-present checkout.
type CheckoutSessionProvider interface {
	CreateCheckoutSession(ctx context.Context, amount decimal.Decimal, description string, client ClientInfo) (CheckoutSession, error)
}

// PaymentRequest carries what both recording paths need.
type PaymentRequest struct {
	OrgID         uuid.UUID
	Amount        decimal.Decimal
	Method        models.PaymentMethod
	Client        *ClientInfo
	ClientID      *uuid.UUID
	Description   string
	SaleID        *uuid.UUID
	AppointmentID *uuid.UUID
}

type PaymentRecorder struct {
	payments repository.PaymentRepository
	links    PaymentLinkProvider
	checkout CheckoutSessionProvider
	now      func() time.Time
}

func NewPaymentRecorder(payments repository.PaymentRepository, links PaymentLinkProvider, checkout CheckoutSessionProvider) *PaymentRecorder {
	return &PaymentRecorder{
		payments: payments,
		links:    links,
		checkout: checkout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *PaymentRecorder) check(req PaymentRequest) error {
	if req.OrgID == uuid.Nil {
		return validationf("organization is required")
	}
	if req.Amount.IsNegative() {
		return validationf("payment amount must not be negative")
	}
	return nil
}

// RecordInstant writes a completed payment. Callers call it once per sale.
func (r *PaymentRecorder) RecordInstant(ctx context.Context, req PaymentRequest) (*models.Payment, error) {
	if err := r.check(req); err != nil {
		return nil, err
	}
	if !req.Method.Instant() {
		return nil, validationf("%s is not an instant payment method", req.Method)
	}
	paidAt := r.now()
	p := &models.Payment{
		OrgID:         req.OrgID,
		Amount:        req.Amount,
		Method:        req.Method,
		Status:        models.PaymentCompleted,
		ClientID:      req.ClientID,
		Description:   req.Description,
		SaleID:        req.SaleID,
		AppointmentID: req.AppointmentID,
		PaidAt:        &paidAt,
	}
	if err := r.payments.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("record %s payment: %w", req.Method, err)
	}
	return p, nil
}

// RequestDeferred asks the external provider for a link or checkout session
// and stores a pending payment holding its reference. If the provider fails,
// no payment row is written.
func (r *PaymentRecorder) RequestDeferred(ctx context.Context, req PaymentRequest) (*models.Payment, error) {
	if err := r.check(req); err != nil {
		return nil, err
	}
	client := ClientInfo{}
	if req.Client != nil {
		client = *req.Client
	}

	var url, ref string
	switch req.Method {
	case models.PaymentCredit:
		if r.links == nil {
			return nil, fmt.Errorf("%w: no payment link provider configured", ErrExternalPaymentProvider)
		}
		link, err := r.links.CreatePaymentLink(ctx, req.Amount, req.Description, client.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: payment link: %v", ErrExternalPaymentProvider, err)
		}
		url, ref = link.URL, link.ExternalRef
	case models.PaymentStripe:
		if r.checkout == nil {
			return nil, fmt.Errorf("%w: no checkout provider configured", ErrExternalPaymentProvider)
		}
		session, err := r.checkout.CreateCheckoutSession(ctx, req.Amount, req.Description, client)
		if err != nil {
			return nil, fmt.Errorf("%w: checkout session: %v", ErrExternalPaymentProvider, err)
		}
		url, ref = session.URL, session.SessionRef
	default:
		return nil, validationf("%s is not a deferred payment method", req.Method)
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: provider returned no reference", ErrExternalPaymentProvider)
	}

	p := &models.Payment{
		OrgID:         req.OrgID,
		Amount:        req.Amount,
		Method:        req.Method,
		Status:        models.PaymentPending,
		ClientID:      req.ClientID,
		Description:   req.Description,
		ExternalRef:   &ref,
		PaymentURL:    url,
		SaleID:        req.SaleID,
		AppointmentID: req.AppointmentID,
	}
	if err := r.payments.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("record pending %s payment: %w", req.Method, err)
	}
	return p, nil
}

// MarkCompleted is driven by the external confirmation channel.
func (r *PaymentRecorder) MarkCompleted(ctx context.Context, orgID, paymentID uuid.UUID) (*models.Payment, error) {
	paidAt := r.now()
	p, err := r.payments.TransitionPayment(ctx, orgID, paymentID,
		[]models.PaymentStatus{models.PaymentPending}, models.PaymentCompleted, &paidAt)
	if err != nil {
		return nil, fmt.Errorf("complete payment %s: %w", paymentID, err)
	}
	return p, nil
}

func (r *PaymentRecorder) MarkFailed(ctx context.Context, orgID, paymentID uuid.UUID) (*models.Payment, error) {
	p, err := r.payments.TransitionPayment(ctx, orgID, paymentID,
		[]models.PaymentStatus{models.PaymentPending}, models.PaymentFailed, nil)
	if err != nil {
		return nil, fmt.Errorf("fail payment %s: %w", paymentID, err)
	}
	return p, nil
}

func (r *PaymentRecorder) Get(ctx context.Context, orgID, paymentID uuid.UUID) (*models.Payment, error) {
	return r.payments.GetPayment(ctx, orgID, paymentID)
}
