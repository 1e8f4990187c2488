package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonpro-pos/models"
	"salonpro-pos/repository"
)

type observed struct {
	calls []int64
}

func (o *observed) StockChanged(_ context.Context, _, _ uuid.UUID, quantity int64) {
	o.calls = append(o.calls, quantity)
}

func TestLedger_ApplyTransactionSigns(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	x := e.product(t, "Wax", 0, 10)
	obs := &observed{}
	e.ledger.Observe(obs)

	steps := []struct {
		m    Movement
		want int64
	}{
		{Movement{Type: models.StockPurchase, Magnitude: 10}, 10},
		{Movement{Type: models.StockSale, Magnitude: 3}, 7},
		{Movement{Type: models.StockReturn, Magnitude: 1}, 8},
		{Movement{Type: models.StockAdjustment, Magnitude: 2, Decrease: true}, 6},
		{Movement{Type: models.StockAdjustment, Magnitude: 1}, 7},
		{Movement{Type: models.StockWriteOff, Magnitude: 7}, 0},
	}
	for i, s := range steps {
		tx, err := e.ledger.ApplyTransaction(ctx, e.org, x.ID, s.m)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if tx.QuantityAfter != s.want {
			t.Fatalf("step %d: expected %d after, got %d", i, s.want, tx.QuantityAfter)
		}
		if tx.Magnitude() != s.m.Magnitude {
			t.Fatalf("step %d: magnitude %d, want %d", i, tx.Magnitude(), s.m.Magnitude)
		}
	}
	if len(obs.calls) != len(steps) || obs.calls[len(obs.calls)-1] != 0 {
		t.Fatalf("observer saw %v", obs.calls)
	}
	e.assertConsistent(t, x.ID)
}

func TestLedger_RejectsBadMovements(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	x := e.product(t, "Wax", 2, 10)

	if _, err := e.ledger.ApplyTransaction(ctx, e.org, x.ID, Movement{Type: models.StockSale, Magnitude: 0}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for zero magnitude, got %v", err)
	}
	if _, err := e.ledger.ApplyTransaction(ctx, e.org, x.ID, Movement{Type: "gift", Magnitude: 1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
	if _, err := e.ledger.ApplyTransaction(ctx, e.org, x.ID, Movement{Type: models.StockWriteOff, Magnitude: 3}); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if _, err := e.ledger.ApplyTransaction(ctx, uuid.New(), x.ID, Movement{Type: models.StockReturn, Magnitude: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for a foreign org, got %v", err)
	}
	if q := e.quantity(t, x.ID); q != 2 {
		t.Fatalf("expected 2, got %d", q)
	}
}

func TestLedger_CurrentQuantityIsStable(t *testing.T) {
	e := setup(t)
	x := e.product(t, "Wax", 4, 10)
	if e.quantity(t, x.ID) != e.quantity(t, x.ID) {
		t.Fatal("two reads without a write differ")
	}
}

func TestLedger_ReverseSaleOnce(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	x := e.product(t, "Wax", 5, 10)
	saleID := uuid.New()

	if _, err := e.ledger.ApplyTransaction(ctx, e.org, x.ID, Movement{Type: models.StockSale, Magnitude: 2, SaleID: &saleID}); err != nil {
		t.Fatal(err)
	}
	first, err := e.ledger.ReverseSale(ctx, e.org, saleID, "undo")
	if err != nil || len(first) != 1 {
		t.Fatalf("first reverse: %v, %d rows", err, len(first))
	}
	second, err := e.ledger.ReverseSale(ctx, e.org, saleID, "undo")
	if err != nil || len(second) != 0 {
		t.Fatalf("second reverse: %v, %d rows", err, len(second))
	}
	if q := e.quantity(t, x.ID); q != 5 {
		t.Fatalf("expected 5, got %d", q)
	}
}

func TestLedger_HistoryUnknownProduct(t *testing.T) {
	e := setup(t)
	if _, err := e.ledger.GetStockHistory(context.Background(), e.org, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type ctxRecorder struct {
	errs []error
}

func (o *ctxRecorder) StockChanged(ctx context.Context, _, _ uuid.UUID, _ int64) {
	o.errs = append(o.errs, ctx.Err())
}

func TestLedger_ObserverOutlivesCancelledRequest(t *testing.T) {
	store := repository.NewMemoryStore()
	stock := &cancellingStock{MemoryStore: store}
	e := setupWith(t, store, stock, store)
	x := e.product(t, "Wax", 3, 10)
	obs := &ctxRecorder{}
	e.ledger.Observe(obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stock.cancel = cancel
	if _, err := e.ledger.ApplyTransaction(ctx, e.org, x.ID, Movement{Type: models.StockSale, Magnitude: 1}); err != nil {
		t.Fatal(err)
	}
	if ctx.Err() == nil {
		t.Fatal("request context was not cancelled by the write")
	}
	if len(obs.errs) != 1 || obs.errs[0] != nil {
		t.Fatalf("observer saw a cancelled context: %v", obs.errs)
	}
}

func TestLedger_OverflowIsValidation(t *testing.T) {
	e := setup(t)
	x := e.product(t, "Wax", 10, 10)

	_, err := e.ledger.ApplyTransaction(context.Background(), e.org, x.ID, Movement{Type: models.StockPurchase, Magnitude: math.MaxInt64})
	if !errors.Is(err, ErrValidation) || !errors.Is(err, repository.ErrQuantityOverflow) {
		t.Fatalf("expected overflow validation error, got %v", err)
	}
	if q := e.quantity(t, x.ID); q != 10 {
		t.Fatalf("expected 10, got %d", q)
	}
	e.assertConsistent(t, x.ID)
}

func TestLedger_RejectsSubCentPrices(t *testing.T) {
	e := setup(t)
	x := e.product(t, "Wax", 1, 10)
	price := decimal.RequireFromString("4.995")

	_, err := e.ledger.ApplyTransaction(context.Background(), e.org, x.ID, Movement{Type: models.StockPurchase, Magnitude: 1, PricePerUnit: &price})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if q := e.quantity(t, x.ID); q != 1 {
		t.Fatalf("expected 1, got %d", q)
	}
}

func TestLedger_OpenProductRejectsDecrease(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p := &models.Product{OrgID: e.org, Name: "Ghost"}

	_, err := e.ledger.OpenProduct(ctx, p, &Movement{Type: models.StockWriteOff, Magnitude: 1})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	list, _ := e.store.ListProducts(ctx, e.org, repository.ProductFilter{})
	if len(list) != 0 {
		t.Fatalf("product stored despite rejected opening: %+v", list)
	}
}
