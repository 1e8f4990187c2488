package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"salonpro-pos/models"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

// Models lists the tables owned by this store, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.Product{},
		&models.StockTransaction{},
		&models.Payment{},
		&models.Appointment{},
		&models.Client{},
		&models.SaleAttempt{},
		&models.NotificationLog{},
	}
}

// classify maps driver errors onto the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return fmt.Errorf("%w: %s", ErrConcurrencyConflict, pgErr.Message)
		case "23505":
			switch {
			case strings.Contains(pgErr.ConstraintName, "reverses"):
				return ErrAlreadyReversed
			case strings.Contains(pgErr.ConstraintName, "barcode"):
				return ErrDuplicateBarcode
			}
		case "23514":
			if strings.Contains(pgErr.ConstraintName, "quantity") {
				return ErrInsufficientStock
			}
		case "22003": // numeric_value_out_of_range
			return ErrQuantityOverflow
		}
	}
	return err
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

// CreateProduct implements StockRepository. The product row and its opening
// purchase commit together.
func (s *GormStore) CreateProduct(ctx context.Context, p *models.Product, opening *models.StockTransaction) error {
	p.Quantity = 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		if opening == nil {
			return nil
		}
		opening.ProductID = p.ID
		opening.OrgID = p.OrgID
		if err := applyDelta(tx, opening); err != nil {
			return err
		}
		p.Quantity = opening.QuantityAfter
		return nil
	})
	if err != nil {
		p.Quantity = 0
	}
	return classify(err)
}

// ProductRepository implementation

func (s *GormStore) GetProduct(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id).First(&p).Error; err != nil {
		return nil, classify(err)
	}
	return &p, nil
}

func (s *GormStore) ListProducts(ctx context.Context, orgID uuid.UUID, f ProductFilter) ([]models.Product, error) {
	q := s.db.WithContext(ctx).Where("org_id = ?", orgID)
	if f.NameSubstring != "" {
		q = q.Where("name ILIKE ?", "%"+f.NameSubstring+"%")
	}
	if f.Category != "" {
		q = q.Where("LOWER(category) = LOWER(?)", f.Category)
	}
	if f.LowStockOnly {
		q = q.Where("quantity <= min_quantity")
	}
	var products []models.Product
	if err := q.Order("name").Find(&products).Error; err != nil {
		return nil, classify(err)
	}
	return products, nil
}

func (s *GormStore) FindProductByBarcode(ctx context.Context, orgID uuid.UUID, code string) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).Where("org_id = ? AND barcode = ?", orgID, code).First(&p).Error; err != nil {
		return nil, classify(err)
	}
	return &p, nil
}

func (s *GormStore) UpdatePurchasePrice(ctx context.Context, orgID, id uuid.UUID, price decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Update("purchase_price", price)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// StockRepository implementation

// ApplyStockDelta runs the guarded increment and the ledger insert in one
// transaction. The WHERE clause carries the non-negative check, so two
// concurrent decrements can never both pass on the same units.
func (s *GormStore) ApplyStockDelta(ctx context.Context, st *models.StockTransaction) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return applyDelta(tx, st)
	})
	return classify(err)
}

func applyDelta(tx *gorm.DB, st *models.StockTransaction) error {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND org_id = ? AND quantity + ? >= 0", st.ProductID, st.OrgID, st.QuantityDelta).
		Update("quantity", gorm.Expr("quantity + ?", st.QuantityDelta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Product{}).
			Where("id = ? AND org_id = ?", st.ProductID, st.OrgID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrInsufficientStock
	}

	var after int64
	if err := tx.Model(&models.Product{}).
		Select("quantity").
		Where("id = ?", st.ProductID).
		Row().Scan(&after); err != nil {
		return err
	}
	st.QuantityAfter = after
	return tx.Create(st).Error
}

func (s *GormStore) GetQuantity(ctx context.Context, orgID, productID uuid.UUID) (int64, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).Select("quantity").
		Where("org_id = ? AND id = ?", orgID, productID).
		First(&p).Error; err != nil {
		return 0, classify(err)
	}
	return p.Quantity, nil
}

func (s *GormStore) GetQuantities(ctx context.Context, orgID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ID       uuid.UUID
		Quantity int64
	}
	if err := s.db.WithContext(ctx).Model(&models.Product{}).
		Select("id, quantity").
		Where("org_id = ? AND id IN ?", orgID, productIDs).
		Scan(&rows).Error; err != nil {
		return nil, classify(err)
	}
	for _, r := range rows {
		out[r.ID] = r.Quantity
	}
	return out, nil
}

func (s *GormStore) ListStockTransactions(ctx context.Context, orgID, productID uuid.UUID) ([]models.StockTransaction, error) {
	var txs []models.StockTransaction
	if err := s.db.WithContext(ctx).
		Where("org_id = ? AND product_id = ?", orgID, productID).
		Order("created_at ASC").
		Find(&txs).Error; err != nil {
		return nil, classify(err)
	}
	return txs, nil
}

func (s *GormStore) ListSaleTransactions(ctx context.Context, orgID, saleID uuid.UUID) ([]models.StockTransaction, error) {
	var txs []models.StockTransaction
	if err := s.db.WithContext(ctx).
		Where("org_id = ? AND sale_id = ?", orgID, saleID).
		Order("created_at ASC").
		Find(&txs).Error; err != nil {
		return nil, classify(err)
	}
	return txs, nil
}

// PaymentRepository implementation
func (s *GormStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	return classify(s.db.WithContext(ctx).Create(p).Error)
}

func (s *GormStore) GetPayment(ctx context.Context, orgID, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id).First(&p).Error; err != nil {
		return nil, classify(err)
	}
	return &p, nil
}

func (s *GormStore) TransitionPayment(ctx context.Context, orgID, id uuid.UUID, from []models.PaymentStatus, to models.PaymentStatus, paidAt *time.Time) (*models.Payment, error) {
	updates := map[string]interface{}{"status": string(to)}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	res := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("org_id = ? AND id = ? AND status IN ?", orgID, id, toStrings(from)).
		Updates(updates)
	if res.Error != nil {
		return nil, classify(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetPayment(ctx, orgID, id); err != nil {
			return nil, err
		}
		return nil, ErrStateMismatch
	}
	return s.GetPayment(ctx, orgID, id)
}

// AppointmentRepository implementation
func (s *GormStore) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return classify(s.db.WithContext(ctx).Create(a).Error)
}

func (s *GormStore) GetAppointment(ctx context.Context, orgID, id uuid.UUID) (*models.Appointment, error) {
	var a models.Appointment
	if err := s.db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id).First(&a).Error; err != nil {
		return nil, classify(err)
	}
	return &a, nil
}

func (s *GormStore) TransitionAppointment(ctx context.Context, orgID, id uuid.UUID, from []models.AppointmentStatus, to models.AppointmentStatus) (*models.Appointment, error) {
	updates := map[string]interface{}{"status": string(to)}
	if to == models.AppointmentCompleted {
		updates["completed_at"] = time.Now().UTC()
	}
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("org_id = ? AND id = ? AND status IN ?", orgID, id, toStrings(from)).
		Updates(updates)
	if res.Error != nil {
		return nil, classify(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetAppointment(ctx, orgID, id); err != nil {
			return nil, err
		}
		return nil, ErrStateMismatch
	}
	return s.GetAppointment(ctx, orgID, id)
}

// ClientRepository implementation
func (s *GormStore) CreateClient(ctx context.Context, c *models.Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return classify(s.db.WithContext(ctx).Create(c).Error)
}

func (s *GormStore) GetClient(ctx context.Context, orgID, id uuid.UUID) (*models.Client, error) {
	var c models.Client
	if err := s.db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id).First(&c).Error; err != nil {
		return nil, classify(err)
	}
	return &c, nil
}

// SaleAttemptRepository implementation
func (s *GormStore) CreateSaleAttempt(ctx context.Context, a *models.SaleAttempt) error {
	return classify(s.db.WithContext(ctx).Create(a).Error)
}

func (s *GormStore) GetSaleAttempt(ctx context.Context, orgID, id uuid.UUID) (*models.SaleAttempt, error) {
	var a models.SaleAttempt
	if err := s.db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id).First(&a).Error; err != nil {
		return nil, classify(err)
	}
	return &a, nil
}

func (s *GormStore) TransitionSaleAttempt(ctx context.Context, orgID, id uuid.UUID, from []models.SaleState, to models.SaleState, detail string) error {
	updates := map[string]interface{}{"state": string(to)}
	if detail != "" {
		updates["detail"] = detail
	}
	res := s.db.WithContext(ctx).Model(&models.SaleAttempt{}).
		Where("org_id = ? AND id = ? AND state IN ?", orgID, id, toStrings(from)).
		Updates(updates)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetSaleAttempt(ctx, orgID, id); err != nil {
			return err
		}
		return ErrStateMismatch
	}
	return nil
}

func (s *GormStore) ListStaleSaleAttempts(ctx context.Context, states []models.SaleState, olderThan time.Time) ([]models.SaleAttempt, error) {
	var attempts []models.SaleAttempt
	if err := s.db.WithContext(ctx).
		Where("state IN ? AND created_at < ?", toStrings(states), olderThan).
		Order("created_at ASC").
		Find(&attempts).Error; err != nil {
		return nil, classify(err)
	}
	return attempts, nil
}

// NotificationLogRepository implementation
func (s *GormStore) CreateNotificationLog(ctx context.Context, l *models.NotificationLog) error {
	return classify(s.db.WithContext(ctx).Create(l).Error)
}
