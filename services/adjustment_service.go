package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonpro-pos/models"
	"salonpro-pos/repository"
)

// AdjustmentService covers stock changes that happen outside a sale.
type AdjustmentService struct {
	ledger   *Ledger
	products repository.ProductRepository
}

func NewAdjustmentService(ledger *Ledger, products repository.ProductRepository) *AdjustmentService {
	return &AdjustmentService{ledger: ledger, products: products}
}

// Restock books a purchase. A given price also becomes the product's purchase price.
func (s *AdjustmentService) Restock(ctx context.Context, orgID, productID uuid.UUID, qty int64, price *decimal.Decimal, notes string) (*models.StockTransaction, error) {
	var total *decimal.Decimal
	if price != nil {
		if price.IsNegative() {
			return nil, validationf("purchase price must not be negative")
		}
		if !wholeCents(*price) {
			return nil, validationf("purchase price %s has more than two decimals", price)
		}
		t := price.Mul(decimal.NewFromInt(qty))
		total = &t
	}
	tx, err := s.ledger.ApplyTransaction(ctx, orgID, productID, Movement{
		Type:         models.StockPurchase,
		Magnitude:    qty,
		PricePerUnit: price,
		TotalPrice:   total,
		Notes:        strings.TrimSpace(notes),
	})
	if err != nil {
		return nil, err
	}
	if price != nil {
		if err := s.products.UpdatePurchasePrice(ctx, orgID, productID, *price); err != nil {
			return tx, fmt.Errorf("restock booked, purchase price not updated: %w", err)
		}
	}
	return tx, nil
}

func (s *AdjustmentService) Return(ctx context.Context, orgID, productID uuid.UUID, qty int64, notes string) (*models.StockTransaction, error) {
	return s.ledger.ApplyTransaction(ctx, orgID, productID, Movement{
		Type:      models.StockReturn,
		Magnitude: qty,
		Notes:     strings.TrimSpace(notes),
	})
}

// Adjust corrects stock by a signed delta, e.g. after a stocktake.
func (s *AdjustmentService) Adjust(ctx context.Context, orgID, productID uuid.UUID, delta int64, notes string) (*models.StockTransaction, error) {
	notes = strings.TrimSpace(notes)
	if delta == 0 {
		return nil, validationf("adjustment must not be zero")
	}
	if notes == "" {
		return nil, validationf("adjustment needs a note explaining the discrepancy")
	}
	m := Movement{Type: models.StockAdjustment, Magnitude: delta, Notes: notes}
	if delta < 0 {
		m.Magnitude, m.Decrease = -delta, true
	}
	return s.ledger.ApplyTransaction(ctx, orgID, productID, m)
}

func (s *AdjustmentService) WriteOff(ctx context.Context, orgID, productID uuid.UUID, qty int64, notes string) (*models.StockTransaction, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, validationf("write-off needs a note, e.g. damage or loss")
	}
	return s.ledger.ApplyTransaction(ctx, orgID, productID, Movement{
		Type:      models.StockWriteOff,
		Magnitude: qty,
		Notes:     notes,
	})
}
