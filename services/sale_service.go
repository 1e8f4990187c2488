// services/sale_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonpro-pos/models"
	"salonpro-pos/repository"
)

const defaultLineRetries = 3

// Notifier hears about completed sales. It runs outside the request and its
// failures never reach the caller.
type Notifier interface {
	SaleCompleted(ctx context.Context, result SaleResult)
}

type SaleResult struct {
	SaleID       uuid.UUID                 `json:"saleId"`
	OrgID        uuid.UUID                 `json:"orgId"`
	Total        decimal.Decimal           `json:"total"`
	ClientID     *uuid.UUID                `json:"clientId,omitempty"`
	Transactions []models.StockTransaction `json:"transactions"`
	Payment      *models.Payment           `json:"payment,omitempty"`
	Appointment  *models.Appointment       `json:"appointment,omitempty"`
	// AppointmentError is set when stock and payment went through but the
	// appointment could not be closed.
	AppointmentError string `json:"appointmentError,omitempty"`
}

// PaymentConfirmation is what ConfirmDeferredPayment reports.
type PaymentConfirmation struct {
	Payment          *models.Payment     `json:"payment"`
	Appointment      *models.Appointment `json:"appointment,omitempty"`
	AppointmentError string              `json:"appointmentError,omitempty"`
}

type SaleService struct {
	ledger       *Ledger
	payments     *PaymentRecorder
	appointments *AppointmentBridge
	attempts     repository.SaleAttemptRepository
	clients      repository.ClientRepository
	notifier     Notifier
	lineRetries  int
}

type SaleOption func(*SaleService)

func WithNotifier(n Notifier) SaleOption {
	return func(s *SaleService) { s.notifier = n }
}

// WithLineRetries sets how often a line is retried after a write conflict.
func WithLineRetries(n int) SaleOption {
	return func(s *SaleService) {
		if n >= 0 {
			s.lineRetries = n
		}
	}
}

// WithClients lets the service attach client contact data to deferred payments.
func WithClients(c repository.ClientRepository) SaleOption {
	return func(s *SaleService) { s.clients = c }
}

func NewSaleService(ledger *Ledger, payments *PaymentRecorder, appointments *AppointmentBridge, attempts repository.SaleAttemptRepository, opts ...SaleOption) *SaleService {
	s := &SaleService{
		ledger:       ledger,
		payments:     payments,
		appointments: appointments,
		attempts:     attempts,
		lineRetries:  defaultLineRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExecuteSale turns a cart into stock movements, a payment and, for instant
// payments, a completed appointment.
//
// Lines are applied in cart order, each as its own atomic ledger write. If a
// line fails, the lines already applied are reversed and nothing else is
// written. Once every line is in, the payment is recorded; a payment failure
// at that point leaves the stock sold and is reported as payment_not_recorded
// together with the partial result.
func (s *SaleService) ExecuteSale(ctx context.Context, cart *Cart) (*SaleResult, error) {
	if cart == nil {
		return nil, &SaleError{Kind: SaleErrValidation, Line: -1, Err: validationf("cart is required")}
	}
	if err := cart.Check(); err != nil {
		return nil, &SaleError{Kind: SaleErrValidation, Line: -1, Err: err}
	}
	if cart.AppointmentID != nil {
		if err := s.appointments.CanComplete(ctx, cart.OrgID, *cart.AppointmentID); err != nil {
			return nil, &SaleError{Kind: kindOf(err), Line: -1, Err: err}
		}
	}

	total := cart.Total()
	attempt := &models.SaleAttempt{
		OrgID:         cart.OrgID,
		State:         models.SaleApplyingStock,
		PaymentMethod: cart.PaymentMethod,
		Total:         total,
	}
	if err := s.attempts.CreateSaleAttempt(ctx, attempt); err != nil {
		return nil, &SaleError{Kind: SaleErrStorage, Line: -1, Err: fmt.Errorf("open sale journal: %w", err)}
	}
	saleID := attempt.ID

	applied := make([]models.StockTransaction, 0, len(cart.Lines))
	for i, line := range cart.Lines {
		price := line.UnitPrice
		lineTotal := line.Total()
		tx, err := s.applyLine(ctx, cart.OrgID, line.ProductID, Movement{
			Type:          models.StockSale,
			Magnitude:     line.Quantity,
			PricePerUnit:  &price,
			TotalPrice:    &lineTotal,
			AppointmentID: cart.AppointmentID,
			SaleID:        &saleID,
		})
		if err != nil {
			return nil, s.abort(ctx, cart.OrgID, saleID, len(applied), i, line.ProductID, err)
		}
		applied = append(applied, *tx)
	}

	next := models.SaleRecordingPayment
	if cart.PaymentMethod.Deferred() {
		next = models.SaleReservingPayment
	}
	if err := s.attempts.TransitionSaleAttempt(ctx, cart.OrgID, saleID,
		[]models.SaleState{models.SaleApplyingStock}, next, ""); err != nil {
		// recovery already claimed the attempt, or the journal is unreachable
		return nil, s.abort(ctx, cart.OrgID, saleID, len(applied), -1, uuid.Nil, fmt.Errorf("commit sale journal: %w", err))
	}

	result := &SaleResult{
		SaleID:       saleID,
		OrgID:        cart.OrgID,
		Total:        total,
		ClientID:     cart.ClientID,
		Transactions: applied,
	}

	req := PaymentRequest{
		OrgID:         cart.OrgID,
		Amount:        total,
		Method:        cart.PaymentMethod,
		Client:        s.clientInfo(ctx, cart),
		ClientID:      cart.ClientID,
		Description:   describe(cart),
		SaleID:        &saleID,
		AppointmentID: cart.AppointmentID,
	}
	var payment *models.Payment
	var err error
	if cart.PaymentMethod.Instant() {
		payment, err = s.payments.RecordInstant(ctx, req)
	} else {
		payment, err = s.payments.RequestDeferred(ctx, req)
	}
	if err != nil {
		log.Printf("[sale] %s: stock committed but payment not recorded: %v", saleID, err)
		if terr := s.attempts.TransitionSaleAttempt(context.WithoutCancel(ctx), cart.OrgID, saleID,
			[]models.SaleState{next}, models.SaleNeedsReconciliation, err.Error()); terr != nil {
			log.Printf("[sale] %s: journal update failed: %v", saleID, terr)
		}
		return result, &SaleError{
			Kind:         SaleErrPaymentNotRecorded,
			SaleID:       saleID,
			Line:         -1,
			StockMutated: true,
			Err:          fmt.Errorf("%w: %w", ErrPaymentNotRecorded, err),
		}
	}
	result.Payment = payment

	// Deferred payments close the appointment when the provider confirms.
	if cart.AppointmentID != nil && cart.PaymentMethod.Instant() {
		a, err := s.appointments.Complete(ctx, cart.OrgID, *cart.AppointmentID)
		if err != nil {
			log.Printf("[sale] %s: appointment %s not completed: %v", saleID, *cart.AppointmentID, err)
			result.AppointmentError = err.Error()
		} else {
			result.Appointment = a
		}
	}

	if err := s.attempts.TransitionSaleAttempt(context.WithoutCancel(ctx), cart.OrgID, saleID,
		[]models.SaleState{next}, models.SaleSucceeded, ""); err != nil {
		log.Printf("[sale] %s: journal update failed: %v", saleID, err)
	}

	s.notify(ctx, *result)
	return result, nil
}

func (s *SaleService) applyLine(ctx context.Context, orgID, productID uuid.UUID, m Movement) (*models.StockTransaction, error) {
	var lastErr error
	for attempt := 0; attempt <= s.lineRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tx, err := s.ledger.ApplyTransaction(ctx, orgID, productID, m)
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, ErrConcurrencyConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// abort reverses every sale row already written for saleID and closes the
// journal entry. It runs detached from ctx so a cancelled request still
// restores stock.
func (s *SaleService) abort(ctx context.Context, orgID, saleID uuid.UUID, applied, line int, productID uuid.UUID, cause error) error {
	serr := &SaleError{
		Kind:      kindOf(cause),
		SaleID:    saleID,
		Line:      line,
		ProductID: productID,
		Err:       cause,
	}
	cctx := context.WithoutCancel(ctx)

	if err := s.attempts.TransitionSaleAttempt(cctx, orgID, saleID,
		[]models.SaleState{models.SaleApplyingStock}, models.SaleCompensating, cause.Error()); err != nil &&
		!errors.Is(err, repository.ErrStateMismatch) {
		log.Printf("[sale] %s: journal update failed: %v", saleID, err)
	}

	reversals, err := s.ledger.ReverseSale(cctx, orgID, saleID, fmt.Sprintf("reversal of sale %s", saleID))
	if err != nil {
		log.Printf("[sale] %s: compensation incomplete, left for recovery: %v", saleID, err)
		serr.StockMutated = true
		return serr
	}
	if len(reversals) > 0 {
		log.Printf("[sale] %s: reversed %d line(s) after %v", saleID, len(reversals), cause)
	}

	if err := s.attempts.TransitionSaleAttempt(cctx, orgID, saleID,
		[]models.SaleState{models.SaleApplyingStock, models.SaleCompensating}, models.SaleCompensated, ""); err != nil &&
		!errors.Is(err, repository.ErrStateMismatch) {
		log.Printf("[sale] %s: journal update failed: %v", saleID, err)
	}
	serr.Compensated = applied > 0 || len(reversals) > 0
	return serr
}

func (s *SaleService) clientInfo(ctx context.Context, cart *Cart) *ClientInfo {
	if cart.ClientID == nil {
		return nil
	}
	info := &ClientInfo{ID: cart.ClientID.String()}
	if s.clients == nil {
		return info
	}
	c, err := s.clients.GetClient(ctx, cart.OrgID, *cart.ClientID)
	if err != nil {
		log.Printf("[sale] client %s lookup: %v", *cart.ClientID, err)
		return info
	}
	info.Name, info.Email, info.Phone = c.Name, c.Email, c.Phone
	return info
}

func describe(cart *Cart) string {
	if cart.Description != "" {
		return cart.Description
	}
	var units int64
	for _, l := range cart.Lines {
		units += l.Quantity
	}
	if len(cart.Lines) == 0 {
		return "Service payment"
	}
	return fmt.Sprintf("Sale of %d item(s)", units)
}

func (s *SaleService) notify(ctx context.Context, result SaleResult) {
	if s.notifier == nil || result.ClientID == nil {
		return
	}
	nctx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[notify] sale %s: recovered from panic: %v", result.SaleID, r)
			}
		}()
		s.notifier.SaleCompleted(nctx, result)
	}()
}

// ConfirmDeferredPayment completes a pending payment and, if it belongs to an
// appointment, completes that appointment too.
func (s *SaleService) ConfirmDeferredPayment(ctx context.Context, orgID, paymentID uuid.UUID) (*PaymentConfirmation, error) {
	p, err := s.payments.MarkCompleted(ctx, orgID, paymentID)
	if err != nil {
		return nil, err
	}
	conf := &PaymentConfirmation{Payment: p}
	if p.AppointmentID != nil {
		a, err := s.appointments.Complete(ctx, orgID, *p.AppointmentID)
		if err != nil {
			log.Printf("[sale] payment %s: appointment %s not completed: %v", paymentID, *p.AppointmentID, err)
			conf.AppointmentError = err.Error()
		} else {
			conf.Appointment = a
		}
	}
	return conf, nil
}

// FailDeferredPayment marks a pending payment failed. Stock stays sold; the
// counter decides whether to take another payment or return the goods.
func (s *SaleService) FailDeferredPayment(ctx context.Context, orgID, paymentID uuid.UUID) (*models.Payment, error) {
	return s.payments.MarkFailed(ctx, orgID, paymentID)
}

func (s *SaleService) GetPayment(ctx context.Context, orgID, paymentID uuid.UUID) (*models.Payment, error) {
	return s.payments.Get(ctx, orgID, paymentID)
}
