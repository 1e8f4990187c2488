package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonpro-pos/models"
	"salonpro-pos/repository"
)

type fakeLinks struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeLinks) CreatePaymentLink(_ context.Context, amount decimal.Decimal, _, _ string) (PaymentLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return PaymentLink{}, f.err
	}
	ref := "lnk_" + uuid.NewString()
	return PaymentLink{URL: "https://pay.example.test/" + ref + "?amount=" + amount.StringFixed(2), ExternalRef: ref}, nil
}

type fakeCheckout struct {
	calls  int
	client ClientInfo
}

func (f *fakeCheckout) CreateCheckoutSession(_ context.Context, _ decimal.Decimal, _ string, client ClientInfo) (CheckoutSession, error) {
	f.calls++
	f.client = client
	return CheckoutSession{URL: "https://checkout.example.test/cs_1", SessionRef: "cs_" + uuid.NewString()}, nil
}

// conflictingStock fails the first n stock writes with a concurrency conflict.
type conflictingStock struct {
	*repository.MemoryStore
	mu sync.Mutex
	n  int
}

func (s *conflictingStock) ApplyStockDelta(ctx context.Context, tx *models.StockTransaction) error {
	s.mu.Lock()
	if s.n > 0 {
		s.n--
		s.mu.Unlock()
		return repository.ErrConcurrencyConflict
	}
	s.mu.Unlock()
	return s.MemoryStore.ApplyStockDelta(ctx, tx)
}

// brokenPayments refuses to store payments.
type brokenPayments struct {
	*repository.MemoryStore
}

func (brokenPayments) CreatePayment(context.Context, *models.Payment) error {
	return errors.New("connection reset")
}

type recordingNotifier struct {
	done chan SaleResult
}

func (n *recordingNotifier) SaleCompleted(_ context.Context, result SaleResult) {
	n.done <- result
}

type env struct {
	org         uuid.UUID
	store       *repository.MemoryStore
	ledger      *Ledger
	catalog     *CatalogService
	adjustments *AdjustmentService
	bridge      *AppointmentBridge
	recorder    *PaymentRecorder
	sales       *SaleService
	links       *fakeLinks
	checkout    *fakeCheckout
}

func setup(t *testing.T, opts ...SaleOption) *env {
	t.Helper()
	store := repository.NewMemoryStore()
	return setupWith(t, store, store, store, opts...)
}

func setupWith(t *testing.T, store *repository.MemoryStore, stock repository.StockRepository, payments repository.PaymentRepository, opts ...SaleOption) *env {
	t.Helper()
	e := &env{
		org:      uuid.New(),
		store:    store,
		ledger:   NewLedger(stock),
		links:    &fakeLinks{},
		checkout: &fakeCheckout{},
	}
	e.catalog = NewCatalogService(store, e.ledger)
	e.adjustments = NewAdjustmentService(e.ledger, store)
	e.bridge = NewAppointmentBridge(store)
	e.recorder = NewPaymentRecorder(payments, e.links, e.checkout)
	e.sales = NewSaleService(e.ledger, e.recorder, e.bridge, store, append([]SaleOption{WithClients(store)}, opts...)...)
	return e
}

func (e *env) product(t *testing.T, name string, qty int64, price int64) *models.Product {
	t.Helper()
	p, err := e.catalog.CreateProduct(context.Background(), e.org, NewProduct{
		Name:            name,
		SellPrice:       decimal.NewFromInt(price),
		InitialQuantity: qty,
	})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return p
}

func (e *env) quantity(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	q, err := e.ledger.CurrentQuantity(context.Background(), e.org, id)
	if err != nil {
		t.Fatalf("quantity: %v", err)
	}
	return q
}

func (e *env) appointment(t *testing.T, status models.AppointmentStatus) *models.Appointment {
	t.Helper()
	a := &models.Appointment{OrgID: e.org, Status: status, ServiceName: "Haircut"}
	if err := e.store.CreateAppointment(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	return a
}

func (e *env) assertConsistent(t *testing.T, id uuid.UUID) {
	t.Helper()
	rec, err := e.ledger.Reconcile(context.Background(), e.org, id)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !rec.Consistent {
		t.Fatalf("quantity %d does not match ledger sum %d", rec.Quantity, rec.LedgerSum)
	}
}
