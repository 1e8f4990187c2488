package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"salonpro-pos/models"
)

func TestAdjustments_Restock(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	x := e.product(t, "Dye", 1, 40)
	price := decimal.RequireFromString("17.25")

	tx, err := e.adjustments.Restock(ctx, e.org, x.ID, 4, &price, "weekly order")
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if tx.Type != models.StockPurchase || tx.QuantityAfter != 5 {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if tx.TotalPrice == nil || !tx.TotalPrice.Equal(decimal.NewFromInt(69)) {
		t.Fatalf("expected total 69, got %v", tx.TotalPrice)
	}
	p, _ := e.catalog.GetProduct(ctx, e.org, x.ID)
	if p.PurchasePrice == nil || !p.PurchasePrice.Equal(price) {
		t.Fatalf("purchase price not updated: %v", p.PurchasePrice)
	}
}

func TestAdjustments_ReturnAndWriteOff(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	x := e.product(t, "Dye", 2, 40)

	if _, err := e.adjustments.Return(ctx, e.org, x.ID, 1, ""); err != nil {
		t.Fatalf("return: %v", err)
	}
	if _, err := e.adjustments.WriteOff(ctx, e.org, x.ID, 1, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("write-off without note accepted: %v", err)
	}
	if _, err := e.adjustments.WriteOff(ctx, e.org, x.ID, 4, "dropped"); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	tx, err := e.adjustments.WriteOff(ctx, e.org, x.ID, 3, "expired")
	if err != nil || tx.QuantityAfter != 0 || tx.QuantityDelta != -3 {
		t.Fatalf("write-off: %v %+v", err, tx)
	}
	e.assertConsistent(t, x.ID)
}

func TestAdjustments_Adjust(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	x := e.product(t, "Dye", 5, 40)

	if _, err := e.adjustments.Adjust(ctx, e.org, x.ID, -2, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("adjust without note accepted")
	}
	if _, err := e.adjustments.Adjust(ctx, e.org, x.ID, 0, "nothing"); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero adjustment accepted")
	}
	tx, err := e.adjustments.Adjust(ctx, e.org, x.ID, -2, "stocktake")
	if err != nil || tx.QuantityDelta != -2 || tx.Type != models.StockAdjustment {
		t.Fatalf("adjust down: %v %+v", err, tx)
	}
	tx, err = e.adjustments.Adjust(ctx, e.org, x.ID, 1, "found one")
	if err != nil || tx.QuantityAfter != 4 {
		t.Fatalf("adjust up: %v %+v", err, tx)
	}
	if _, err := e.adjustments.Adjust(ctx, e.org, x.ID, -5, "stocktake"); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}
