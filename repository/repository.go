package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonpro-pos/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock is returned when a delta would take quantity below zero.
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrConcurrencyConflict = errors.New("concurrent write conflict")
	ErrDuplicateBarcode    = errors.New("barcode already in use")
	// ErrStateMismatch means a compare-and-set status change found another state.
	ErrStateMismatch   = errors.New("state changed concurrently")
	ErrAlreadyReversed = errors.New("transaction already reversed")
	// ErrQuantityOverflow is returned when a delta would take quantity past int64.
	ErrQuantityOverflow = errors.New("quantity out of range")
)

type ProductFilter struct {
	NameSubstring string
	Category      string
	LowStockOnly  bool
}

type ProductRepository interface {
	GetProduct(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, orgID uuid.UUID, f ProductFilter) ([]models.Product, error)
	FindProductByBarcode(ctx context.Context, orgID uuid.UUID, code string) (*models.Product, error)
	UpdatePurchasePrice(ctx context.Context, orgID, id uuid.UUID, price decimal.Decimal) error
}

// StockRepository is the only writer of products.quantity.
type StockRepository interface {
	// CreateProduct inserts p and, when opening is not nil, applies opening to
	// it in the same atomic unit. Either both are stored or neither is.
	CreateProduct(ctx context.Context, p *models.Product, opening *models.StockTransaction) error
	// ApplyStockDelta adds tx.QuantityDelta to the product's quantity and
	// inserts tx in one atomic unit. The check against zero happens inside the
	// write, never before it. On success tx.ID, tx.QuantityAfter and
	// tx.CreatedAt are filled in.
	ApplyStockDelta(ctx context.Context, tx *models.StockTransaction) error
	GetQuantity(ctx context.Context, orgID, productID uuid.UUID) (int64, error)
	GetQuantities(ctx context.Context, orgID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	ListStockTransactions(ctx context.Context, orgID, productID uuid.UUID) ([]models.StockTransaction, error)
	ListSaleTransactions(ctx context.Context, orgID, saleID uuid.UUID) ([]models.StockTransaction, error)
}

type PaymentRepository interface {
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, orgID, id uuid.UUID) (*models.Payment, error)
	// TransitionPayment moves the payment to `to` only if its status is one of `from`.
	TransitionPayment(ctx context.Context, orgID, id uuid.UUID, from []models.PaymentStatus, to models.PaymentStatus, paidAt *time.Time) (*models.Payment, error)
}

type AppointmentRepository interface {
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, orgID, id uuid.UUID) (*models.Appointment, error)
	TransitionAppointment(ctx context.Context, orgID, id uuid.UUID, from []models.AppointmentStatus, to models.AppointmentStatus) (*models.Appointment, error)
}

type ClientRepository interface {
	CreateClient(ctx context.Context, c *models.Client) error
	GetClient(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error)
}

type SaleAttemptRepository interface {
	CreateSaleAttempt(ctx context.Context, a *models.SaleAttempt) error
	GetSaleAttempt(ctx context.Context, orgID, id uuid.UUID) (*models.SaleAttempt, error)
	TransitionSaleAttempt(ctx context.Context, orgID, id uuid.UUID, from []models.SaleState, to models.SaleState, detail string) error
	// ListStaleSaleAttempts returns attempts in one of states created before olderThan, across orgs.
	ListStaleSaleAttempts(ctx context.Context, states []models.SaleState, olderThan time.Time) ([]models.SaleAttempt, error)
}

type NotificationLogRepository interface {
	CreateNotificationLog(ctx context.Context, l *models.NotificationLog) error
}

// Store bundles every repository the engine needs. Both MemoryStore and GormStore satisfy it.
type Store interface {
	ProductRepository
	StockRepository
	PaymentRepository
	AppointmentRepository
	ClientRepository
	SaleAttemptRepository
	NotificationLogRepository
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matchesFilter(p models.Product, f ProductFilter) bool {
	if !containsIgnoreCase(p.Name, f.NameSubstring) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.LowStockOnly && !p.LowStock() {
		return false
	}
	return true
}
