package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonpro-pos/models"
)

// MemoryStore is a process-local Store. One mutex guards every table, so the
// conditional stock write is trivially atomic. Used by tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mu           sync.RWMutex
	now          func() time.Time
	products     map[uuid.UUID]models.Product
	transactions []models.StockTransaction
	reversed     map[uuid.UUID]struct{}
	payments     map[uuid.UUID]models.Payment
	appointments map[uuid.UUID]models.Appointment
	clients      map[uuid.UUID]models.Client
	attempts     map[uuid.UUID]models.SaleAttempt
	notifyLogs   []models.NotificationLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:          func() time.Time { return time.Now().UTC() },
		products:     make(map[uuid.UUID]models.Product),
		reversed:     make(map[uuid.UUID]struct{}),
		payments:     make(map[uuid.UUID]models.Payment),
		appointments: make(map[uuid.UUID]models.Appointment),
		clients:      make(map[uuid.UUID]models.Client),
		attempts:     make(map[uuid.UUID]models.SaleAttempt),
	}
}

// SetClock replaces the time source. Tests use it to age sale attempts.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

var _ Store = (*MemoryStore)(nil)

// CreateProduct implements StockRepository.
func (m *MemoryStore) CreateProduct(_ context.Context, p *models.Product, opening *models.StockTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Barcode != nil && *p.Barcode != "" {
		for _, other := range m.products {
			if other.OrgID == p.OrgID && other.Barcode != nil && *other.Barcode == *p.Barcode {
				return ErrDuplicateBarcode
			}
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := *p
	row.Quantity = 0
	row.CreatedAt = m.now()
	row.UpdatedAt = row.CreatedAt
	if opening != nil {
		opening.ProductID = row.ID
		opening.OrgID = row.OrgID
		if err := m.applyLocked(&row, opening); err != nil {
			return err
		}
	}
	m.products[row.ID] = row
	*p = row
	return nil
}

// ProductRepository implementation
func (m *MemoryStore) GetProduct(_ context.Context, orgID, id uuid.UUID) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok || p.OrgID != orgID {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) ListProducts(_ context.Context, orgID uuid.UUID, f ProductFilter) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Product, 0)
	for _, p := range m.products {
		if p.OrgID != orgID || !matchesFilter(p, f) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) FindProductByBarcode(_ context.Context, orgID uuid.UUID, code string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.products {
		if p.OrgID == orgID && p.Barcode != nil && *p.Barcode == code {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdatePurchasePrice(_ context.Context, orgID, id uuid.UUID, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || p.OrgID != orgID {
		return ErrNotFound
	}
	p.PurchasePrice = &price
	p.UpdatedAt = m.now()
	m.products[id] = p
	return nil
}

// StockRepository implementation
func (m *MemoryStore) ApplyStockDelta(_ context.Context, tx *models.StockTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[tx.ProductID]
	if !ok || p.OrgID != tx.OrgID {
		return ErrNotFound
	}
	if err := m.applyLocked(&p, tx); err != nil {
		return err
	}
	m.products[p.ID] = p
	return nil
}

// applyLocked moves p by tx.QuantityDelta and records tx. p is only changed
// on success. Callers hold m.mu.
func (m *MemoryStore) applyLocked(p *models.Product, tx *models.StockTransaction) error {
	if tx.ReversesID != nil {
		if _, done := m.reversed[*tx.ReversesID]; done {
			return ErrAlreadyReversed
		}
	}
	next, ok := addQuantity(p.Quantity, tx.QuantityDelta)
	if !ok {
		return ErrQuantityOverflow
	}
	if next < 0 {
		return ErrInsufficientStock
	}
	p.Quantity = next
	p.UpdatedAt = m.now()

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.QuantityAfter = next
	tx.CreatedAt = m.now()
	if tx.ReversesID != nil {
		m.reversed[*tx.ReversesID] = struct{}{}
	}
	m.transactions = append(m.transactions, *tx)
	return nil
}

func addQuantity(q, delta int64) (int64, bool) {
	next := q + delta
	if (delta > 0 && next < q) || (delta < 0 && next > q) {
		return 0, false
	}
	return next, true
}

func (m *MemoryStore) GetQuantity(_ context.Context, orgID, productID uuid.UUID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[productID]
	if !ok || p.OrgID != orgID {
		return 0, ErrNotFound
	}
	return p.Quantity, nil
}

func (m *MemoryStore) GetQuantities(_ context.Context, orgID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[uuid.UUID]int64, len(productIDs))
	for _, id := range productIDs {
		if p, ok := m.products[id]; ok && p.OrgID == orgID {
			out[id] = p.Quantity
		}
	}
	return out, nil
}

func (m *MemoryStore) ListStockTransactions(_ context.Context, orgID, productID uuid.UUID) ([]models.StockTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.StockTransaction, 0)
	for _, t := range m.transactions {
		if t.OrgID == orgID && t.ProductID == productID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListSaleTransactions(_ context.Context, orgID, saleID uuid.UUID) ([]models.StockTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.StockTransaction, 0)
	for _, t := range m.transactions {
		if t.OrgID == orgID && t.SaleID != nil && *t.SaleID == saleID {
			out = append(out, t)
		}
	}
	return out, nil
}

// PaymentRepository implementation
func (m *MemoryStore) CreatePayment(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	m.payments[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetPayment(_ context.Context, orgID, id uuid.UUID) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok || p.OrgID != orgID {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) TransitionPayment(_ context.Context, orgID, id uuid.UUID, from []models.PaymentStatus, to models.PaymentStatus, paidAt *time.Time) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.OrgID != orgID {
		return nil, ErrNotFound
	}
	if !containsStatus(from, p.Status) {
		return nil, ErrStateMismatch
	}
	p.Status = to
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	p.UpdatedAt = m.now()
	m.payments[id] = p
	return &p, nil
}

// AppointmentRepository implementation
func (m *MemoryStore) CreateAppointment(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.UpdatedAt = m.now()
	m.appointments[a.ID] = *a
	return nil
}

func (m *MemoryStore) GetAppointment(_ context.Context, orgID, id uuid.UUID) (*models.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appointments[id]
	if !ok || a.OrgID != orgID {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemoryStore) TransitionAppointment(_ context.Context, orgID, id uuid.UUID, from []models.AppointmentStatus, to models.AppointmentStatus) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.OrgID != orgID {
		return nil, ErrNotFound
	}
	if !containsStatus(from, a.Status) {
		return nil, ErrStateMismatch
	}
	a.Status = to
	a.UpdatedAt = m.now()
	if to == models.AppointmentCompleted {
		at := a.UpdatedAt
		a.CompletedAt = &at
	}
	m.appointments[id] = a
	return &a, nil
}

// ClientRepository implementation
func (m *MemoryStore) CreateClient(_ context.Context, c *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.clients[c.ID] = *c
	return nil
}

func (m *MemoryStore) GetClient(_ context.Context, orgID, id uuid.UUID) (*models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok || c.OrgID != orgID {
		return nil, ErrNotFound
	}
	return &c, nil
}

// SaleAttemptRepository implementation
func (m *MemoryStore) CreateSaleAttempt(_ context.Context, a *models.SaleAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = m.now()
	a.UpdatedAt = a.CreatedAt
	m.attempts[a.ID] = *a
	return nil
}

func (m *MemoryStore) GetSaleAttempt(_ context.Context, orgID, id uuid.UUID) (*models.SaleAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok || a.OrgID != orgID {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemoryStore) TransitionSaleAttempt(_ context.Context, orgID, id uuid.UUID, from []models.SaleState, to models.SaleState, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok || a.OrgID != orgID {
		return ErrNotFound
	}
	if !containsStatus(from, a.State) {
		return ErrStateMismatch
	}
	a.State = to
	if detail != "" {
		a.Detail = detail
	}
	a.UpdatedAt = m.now()
	m.attempts[id] = a
	return nil
}

func (m *MemoryStore) ListStaleSaleAttempts(_ context.Context, states []models.SaleState, olderThan time.Time) ([]models.SaleAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.SaleAttempt, 0)
	for _, a := range m.attempts {
		if containsStatus(states, a.State) && a.CreatedAt.Before(olderThan) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// NotificationLogRepository implementation
func (m *MemoryStore) CreateNotificationLog(_ context.Context, l *models.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = m.now()
	m.notifyLogs = append(m.notifyLogs, *l)
	return nil
}

// NotificationLogs returns a copy of the delivery log.
func (m *MemoryStore) NotificationLogs() []models.NotificationLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.NotificationLog(nil), m.notifyLogs...)
}

func containsStatus[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
