package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonpro-pos/models"
	"salonpro-pos/repository"
)

// Movement is one requested change to a product's stock. Magnitude is always
// positive; the sign comes from Type, and from Decrease for adjustments.
type Movement struct {
	Type          models.StockTransactionType
	Magnitude     int64
	Decrease      bool
	PricePerUnit  *decimal.Decimal
	TotalPrice    *decimal.Decimal
	Notes         string
	AppointmentID *uuid.UUID
	SaleID        *uuid.UUID
	ReversesID    *uuid.UUID
}

// Delta returns the signed quantity change.
func (m Movement) Delta() int64 {
	switch m.Type {
	case models.StockSale, models.StockWriteOff:
		return -m.Magnitude
	case models.StockAdjustment:
		if m.Decrease {
			return -m.Magnitude
		}
	}
	return m.Magnitude
}

// StockObserver is told about every committed quantity. Calls run after the
// write on a context detached from the caller's cancellation. Two writes to
// the same product may report out of order, so a value is advisory.
type StockObserver interface {
	StockChanged(ctx context.Context, orgID, productID uuid.UUID, quantity int64)
}

// Ledger is the only component that changes Product.Quantity.
type Ledger struct {
	stock    repository.StockRepository
	observer StockObserver
}

func NewLedger(stock repository.StockRepository) *Ledger {
	return &Ledger{stock: stock}
}

// Observe registers o to receive committed quantities. Passing nil disables it.
func (l *Ledger) Observe(o StockObserver) {
	l.observer = o
}

// ApplyTransaction validates m, then hands it to the store, which applies the
// delta and inserts the ledger row atomically. ErrInsufficientStock comes
// straight from that write.
func (l *Ledger) ApplyTransaction(ctx context.Context, orgID, productID uuid.UUID, m Movement) (*models.StockTransaction, error) {
	if productID == uuid.Nil {
		return nil, validationf("organization and product are required")
	}
	tx, err := newTransaction(orgID, m)
	if err != nil {
		return nil, err
	}
	tx.ProductID = productID
	if err := l.stock.ApplyStockDelta(ctx, tx); err != nil {
		return nil, movementError(m, productID, err)
	}
	l.notify(ctx, orgID, productID, tx.QuantityAfter)
	return tx, nil
}

// OpenProduct stores p together with its opening movement. The opening must
// not decrease stock. With a nil opening p starts at zero.
func (l *Ledger) OpenProduct(ctx context.Context, p *models.Product, opening *Movement) (*models.StockTransaction, error) {
	var tx *models.StockTransaction
	if opening != nil {
		if opening.Delta() < 0 {
			return nil, validationf("opening stock must not decrease quantity")
		}
		var err error
		if tx, err = newTransaction(p.OrgID, *opening); err != nil {
			return nil, err
		}
	} else if p.OrgID == uuid.Nil {
		return nil, validationf("organization is required")
	}
	if err := l.stock.CreateProduct(ctx, p, tx); err != nil {
		if opening != nil {
			return nil, movementError(*opening, p.ID, err)
		}
		return nil, err
	}
	if tx != nil {
		l.notify(ctx, p.OrgID, p.ID, tx.QuantityAfter)
	}
	return tx, nil
}

func newTransaction(orgID uuid.UUID, m Movement) (*models.StockTransaction, error) {
	if orgID == uuid.Nil {
		return nil, validationf("organization and product are required")
	}
	if !m.Type.Valid() {
		return nil, validationf("unknown transaction type %q", m.Type)
	}
	if m.Magnitude <= 0 {
		return nil, validationf("quantity must be positive, got %d", m.Magnitude)
	}
	if m.PricePerUnit != nil {
		if m.PricePerUnit.IsNegative() {
			return nil, validationf("price per unit must not be negative")
		}
		if !wholeCents(*m.PricePerUnit) {
			return nil, validationf("price per unit %s has more than two decimals", m.PricePerUnit)
		}
	}
	if m.TotalPrice != nil && !wholeCents(*m.TotalPrice) {
		return nil, validationf("total price %s has more than two decimals", m.TotalPrice)
	}
	return &models.StockTransaction{
		OrgID:                orgID,
		Type:                 m.Type,
		QuantityDelta:        m.Delta(),
		PricePerUnit:         m.PricePerUnit,
		TotalPrice:           m.TotalPrice,
		Notes:                m.Notes,
		RelatedAppointmentID: m.AppointmentID,
		SaleID:               m.SaleID,
		ReversesID:           m.ReversesID,
	}, nil
}

func movementError(m Movement, productID uuid.UUID, err error) error {
	if errors.Is(err, repository.ErrQuantityOverflow) {
		return fmt.Errorf("%w: %s of %d to product %s: %w", ErrValidation, m.Type, m.Magnitude, productID, err)
	}
	return fmt.Errorf("apply %s of %d to product %s: %w", m.Type, m.Magnitude, productID, err)
}

func (l *Ledger) notify(ctx context.Context, orgID, productID uuid.UUID, quantity int64) {
	if l.observer == nil {
		return
	}
	l.observer.StockChanged(context.WithoutCancel(ctx), orgID, productID, quantity)
}

// CurrentQuantity is a plain read for display. Never base a write on it.
func (l *Ledger) CurrentQuantity(ctx context.Context, orgID, productID uuid.UUID) (int64, error) {
	return l.stock.GetQuantity(ctx, orgID, productID)
}

func (l *Ledger) Quantities(ctx context.Context, orgID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	return l.stock.GetQuantities(ctx, orgID, productIDs)
}

// GetStockHistory returns the product's ledger, oldest first.
func (l *Ledger) GetStockHistory(ctx context.Context, orgID, productID uuid.UUID) ([]models.StockTransaction, error) {
	if _, err := l.stock.GetQuantity(ctx, orgID, productID); err != nil {
		return nil, err
	}
	return l.stock.ListStockTransactions(ctx, orgID, productID)
}

type Reconciliation struct {
	ProductID        uuid.UUID `json:"productId"`
	Quantity         int64     `json:"quantity"`
	LedgerSum        int64     `json:"ledgerSum"`
	TransactionCount int       `json:"transactionCount"`
	Consistent       bool      `json:"consistent"`
}

// Reconcile compares the stored quantity with the signed sum of the ledger.
func (l *Ledger) Reconcile(ctx context.Context, orgID, productID uuid.UUID) (*Reconciliation, error) {
	qty, err := l.stock.GetQuantity(ctx, orgID, productID)
	if err != nil {
		return nil, err
	}
	txs, err := l.stock.ListStockTransactions(ctx, orgID, productID)
	if err != nil {
		return nil, err
	}
	var sum int64
	for _, t := range txs {
		sum += t.QuantityDelta
	}
	return &Reconciliation{
		ProductID:        productID,
		Quantity:         qty,
		LedgerSum:        sum,
		TransactionCount: len(txs),
		Consistent:       qty == sum,
	}, nil
}

const reversalRetries = 3

// ReverseSale books a balancing adjustment for every sale row of saleID that
// has not been reversed yet, newest first. Reversals are unique per original
// row, so concurrent callers never reverse the same row twice.
func (l *Ledger) ReverseSale(ctx context.Context, orgID, saleID uuid.UUID, note string) ([]models.StockTransaction, error) {
	txs, err := l.stock.ListSaleTransactions(ctx, orgID, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale %s: %w", saleID, err)
	}
	reversed := make(map[uuid.UUID]struct{})
	for _, t := range txs {
		if t.ReversesID != nil {
			reversed[*t.ReversesID] = struct{}{}
		}
	}

	var out []models.StockTransaction
	for i := len(txs) - 1; i >= 0; i-- {
		orig := txs[i]
		if orig.Type != models.StockSale {
			continue
		}
		if _, done := reversed[orig.ID]; done {
			continue
		}
		origID := orig.ID
		m := Movement{
			Type:          models.StockAdjustment,
			Magnitude:     orig.Magnitude(),
			Decrease:      orig.QuantityDelta > 0,
			Notes:         note,
			AppointmentID: orig.RelatedAppointmentID,
			SaleID:        &saleID,
			ReversesID:    &origID,
		}
		var rev *models.StockTransaction
		for attempt := 0; attempt <= reversalRetries; attempt++ {
			rev, err = l.ApplyTransaction(ctx, orgID, orig.ProductID, m)
			if !errors.Is(err, repository.ErrConcurrencyConflict) {
				break
			}
		}
		if errors.Is(err, repository.ErrAlreadyReversed) {
			continue
		}
		if err != nil {
			return out, fmt.Errorf("reverse %s: %w", orig.ID, err)
		}
		out = append(out, *rev)
	}
	return out, nil
}
