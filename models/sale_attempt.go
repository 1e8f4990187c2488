package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleState string

const (
	SaleApplyingStock       SaleState = "applying_stock"
	SaleCompensating        SaleState = "compensating"
	SaleCompensated         SaleState = "compensated"
	SaleRecordingPayment    SaleState = "recording_payment"
	SaleReservingPayment    SaleState = "reserving_payment"
	SaleSucceeded           SaleState = "succeeded"
	SaleNeedsReconciliation SaleState = "needs_reconciliation"
)

// SaleAttempt journals one ExecuteSale call so a half-applied sale can be
// found and compensated after a crash or timeout.
type SaleAttempt struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrgID uuid.UUID `gorm:"type:uuid;index;not null" json:"orgId"`

	State         SaleState       `gorm:"type:varchar(30);not null;index" json:"state"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(20);not null" json:"paymentMethod"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Detail        string          `gorm:"type:text" json:"detail,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *SaleAttempt) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
