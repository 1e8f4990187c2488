package repository

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonpro-pos/models"
)

// openingStock books qty as a purchase, or nothing for zero.
func openingStock(qty int64) *models.StockTransaction {
	if qty == 0 {
		return nil
	}
	return &models.StockTransaction{Type: models.StockPurchase, QuantityDelta: qty, Notes: "opening stock"}
}

func seedProduct(t *testing.T, store *MemoryStore, orgID uuid.UUID, qty int64) models.Product {
	t.Helper()
	p := models.Product{OrgID: orgID, Name: "Shampoo", SellPrice: decimal.NewFromInt(10)}
	if err := store.CreateProduct(context.Background(), &p, openingStock(qty)); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func TestMemoryStore_ProductCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	org := uuid.New()

	code := "7290000000011"
	p := models.Product{OrgID: org, Name: "Hair Mask", Barcode: &code, Category: "Care", SellPrice: decimal.NewFromInt(45)}
	if err := store.CreateProduct(ctx, &p, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Fatalf("no id")
	}

	got, err := store.GetProduct(ctx, org, p.ID)
	if err != nil || got.Name != "Hair Mask" {
		t.Fatalf("get: %v", err)
	}
	if _, err := store.GetProduct(ctx, uuid.New(), p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for other org, got %v", err)
	}

	byCode, err := store.FindProductByBarcode(ctx, org, code)
	if err != nil || byCode.ID != p.ID {
		t.Fatalf("barcode lookup: %v", err)
	}

	dup := models.Product{OrgID: org, Name: "Other", Barcode: &code}
	if err := store.CreateProduct(ctx, &dup, nil); !errors.Is(err, ErrDuplicateBarcode) {
		t.Fatalf("expected duplicate barcode, got %v", err)
	}
	// same barcode in another org is fine
	other := models.Product{OrgID: uuid.New(), Name: "Other", Barcode: &code}
	if err := store.CreateProduct(ctx, &other, nil); err != nil {
		t.Fatalf("other org barcode: %v", err)
	}

	if err := store.UpdatePurchasePrice(ctx, org, p.ID, decimal.NewFromInt(20)); err != nil {
		t.Fatalf("update price: %v", err)
	}
	got, _ = store.GetProduct(ctx, org, p.ID)
	if got.PurchasePrice == nil || !got.PurchasePrice.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("purchase price not updated: %v", got.PurchasePrice)
	}
}

func TestMemoryStore_ListFiltering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	org := uuid.New()

	for _, p := range []models.Product{
		{OrgID: org, Name: "Argan Oil", Category: "Care", Quantity: 1, MinQuantity: 2},
		{OrgID: org, Name: "Hair Spray", Category: "Styling", Quantity: 10, MinQuantity: 2},
		{OrgID: org, Name: "Hair Gel", Category: "Styling", Quantity: 0},
		{OrgID: uuid.New(), Name: "Hair Wax", Category: "Styling"},
	} {
		p := p
		if err := store.CreateProduct(ctx, &p, openingStock(p.Quantity)); err != nil {
			t.Fatal(err)
		}
	}

	list, _ := store.ListProducts(ctx, org, ProductFilter{NameSubstring: "hair"})
	if len(list) != 2 {
		t.Fatalf("expected 2 by name, got %d", len(list))
	}
	list, _ = store.ListProducts(ctx, org, ProductFilter{Category: "styling"})
	if len(list) != 2 || list[0].Name != "Hair Gel" {
		t.Fatalf("category filter: %+v", list)
	}
	list, _ = store.ListProducts(ctx, org, ProductFilter{LowStockOnly: true})
	if len(list) != 2 {
		t.Fatalf("expected 2 low stock, got %d", len(list))
	}
}

func TestMemoryStore_ApplyStockDelta(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	org := uuid.New()
	p := seedProduct(t, store, org, 0)

	in := &models.StockTransaction{OrgID: org, ProductID: p.ID, Type: models.StockPurchase, QuantityDelta: 5}
	if err := store.ApplyStockDelta(ctx, in); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if in.ID == uuid.Nil || in.QuantityAfter != 5 || in.CreatedAt.IsZero() {
		t.Fatalf("transaction not filled in: %+v", in)
	}

	out := &models.StockTransaction{OrgID: org, ProductID: p.ID, Type: models.StockSale, QuantityDelta: -6}
	if err := store.ApplyStockDelta(ctx, out); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if q, _ := store.GetQuantity(ctx, org, p.ID); q != 5 {
		t.Fatalf("failed write changed quantity to %d", q)
	}
	txs, _ := store.ListStockTransactions(ctx, org, p.ID)
	if len(txs) != 1 {
		t.Fatalf("failed write left a ledger row: %d rows", len(txs))
	}

	wrongOrg := &models.StockTransaction{OrgID: uuid.New(), ProductID: p.ID, Type: models.StockReturn, QuantityDelta: 1}
	if err := store.ApplyStockDelta(ctx, wrongOrg); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_CreateWithOpeningStock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	org := uuid.New()

	p := models.Product{OrgID: org, Name: "Toner", Quantity: 99}
	opening := openingStock(4)
	if err := store.CreateProduct(ctx, &p, opening); err != nil {
		t.Fatal(err)
	}
	if p.Quantity != 4 || opening.ProductID != p.ID || opening.QuantityAfter != 4 {
		t.Fatalf("opening not applied: product %+v opening %+v", p, opening)
	}
	txs, _ := store.ListStockTransactions(ctx, org, p.ID)
	if len(txs) != 1 {
		t.Fatalf("expected the opening row, got %d", len(txs))
	}

	bad := models.Product{OrgID: org, Name: "Broken"}
	err := store.CreateProduct(ctx, &bad, &models.StockTransaction{Type: models.StockAdjustment, QuantityDelta: -1})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if _, err := store.GetProduct(ctx, org, bad.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("product stored without its opening stock: %v", err)
	}
}

func TestMemoryStore_QuantityOverflow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	org := uuid.New()
	p := seedProduct(t, store, org, 10)

	huge := &models.StockTransaction{OrgID: org, ProductID: p.ID, Type: models.StockPurchase, QuantityDelta: math.MaxInt64}
	if err := store.ApplyStockDelta(ctx, huge); !errors.Is(err, ErrQuantityOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if q, _ := store.GetQuantity(ctx, org, p.ID); q != 10 {
		t.Fatalf("overflowing write changed quantity to %d", q)
	}
}

func TestMemoryStore_ReversalOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	org := uuid.New()
	p := seedProduct(t, store, org, 0)
	saleID := uuid.New()

	_ = store.ApplyStockDelta(ctx, &models.StockTransaction{OrgID: org, ProductID: p.ID, Type: models.StockPurchase, QuantityDelta: 3})
	sale := &models.StockTransaction{OrgID: org, ProductID: p.ID, Type: models.StockSale, QuantityDelta: -2, SaleID: &saleID}
	if err := store.ApplyStockDelta(ctx, sale); err != nil {
		t.Fatal(err)
	}

	rev := func() error {
		return store.ApplyStockDelta(ctx, &models.StockTransaction{
			OrgID: org, ProductID: p.ID, Type: models.StockAdjustment, QuantityDelta: 2, SaleID: &saleID, ReversesID: &sale.ID,
		})
	}
	if err := rev(); err != nil {
		t.Fatalf("first reversal: %v", err)
	}
	if err := rev(); !errors.Is(err, ErrAlreadyReversed) {
		t.Fatalf("expected already reversed, got %v", err)
	}
	if q, _ := store.GetQuantity(ctx, org, p.ID); q != 3 {
		t.Fatalf("expected 3, got %d", q)
	}
	bySale, _ := store.ListSaleTransactions(ctx, org, saleID)
	if len(bySale) != 2 {
		t.Fatalf("expected sale and reversal, got %d", len(bySale))
	}
}

func TestMemoryStore_ConcurrentDecrements(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	org := uuid.New()
	p := seedProduct(t, store, org, 7)

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, short := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.ApplyStockDelta(ctx, &models.StockTransaction{OrgID: org, ProductID: p.ID, Type: models.StockSale, QuantityDelta: -1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrInsufficientStock):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 7 || short != workers-7 {
		t.Fatalf("expected 7 successes and %d rejections, got %d and %d", workers-7, ok, short)
	}
	if q, _ := store.GetQuantity(ctx, org, p.ID); q != 0 {
		t.Fatalf("expected 0, got %d", q)
	}
}

func TestMemoryStore_Transitions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	org := uuid.New()

	pay := models.Payment{OrgID: org, Amount: decimal.NewFromInt(50), Method: models.PaymentCredit, Status: models.PaymentPending}
	if err := store.CreatePayment(ctx, &pay); err != nil {
		t.Fatal(err)
	}
	paidAt := time.Now()
	done, err := store.TransitionPayment(ctx, org, pay.ID, []models.PaymentStatus{models.PaymentPending}, models.PaymentCompleted, &paidAt)
	if err != nil || done.Status != models.PaymentCompleted || done.PaidAt == nil {
		t.Fatalf("complete payment: %v %+v", err, done)
	}
	if _, err := store.TransitionPayment(ctx, org, pay.ID, []models.PaymentStatus{models.PaymentPending}, models.PaymentFailed, nil); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected state mismatch, got %v", err)
	}

	appt := models.Appointment{OrgID: org, Status: models.AppointmentCancelled}
	if err := store.CreateAppointment(ctx, &appt); err != nil {
		t.Fatal(err)
	}
	if _, err := store.TransitionAppointment(ctx, org, appt.ID,
		[]models.AppointmentStatus{models.AppointmentScheduled}, models.AppointmentCompleted); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected state mismatch, got %v", err)
	}
}

func TestMemoryStore_StaleSaleAttempts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	org := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return base })

	old := models.SaleAttempt{OrgID: org, State: models.SaleApplyingStock}
	if err := store.CreateSaleAttempt(ctx, &old); err != nil {
		t.Fatal(err)
	}
	store.SetClock(func() time.Time { return base.Add(10 * time.Minute) })
	fresh := models.SaleAttempt{OrgID: org, State: models.SaleApplyingStock}
	if err := store.CreateSaleAttempt(ctx, &fresh); err != nil {
		t.Fatal(err)
	}

	stale, err := store.ListStaleSaleAttempts(ctx, []models.SaleState{models.SaleApplyingStock}, base.Add(5*time.Minute))
	if err != nil || len(stale) != 1 || stale[0].ID != old.ID {
		t.Fatalf("expected only the old attempt, got %v %+v", err, stale)
	}

	if err := store.TransitionSaleAttempt(ctx, org, old.ID, []models.SaleState{models.SaleApplyingStock}, models.SaleCompensating, "timeout"); err != nil {
		t.Fatal(err)
	}
	if err := store.TransitionSaleAttempt(ctx, org, old.ID, []models.SaleState{models.SaleApplyingStock}, models.SaleSucceeded, ""); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected state mismatch, got %v", err)
	}
	got, _ := store.GetSaleAttempt(ctx, org, old.ID)
	if got.State != models.SaleCompensating || got.Detail != "timeout" {
		t.Fatalf("unexpected attempt %+v", got)
	}
}
