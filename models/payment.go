package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBit          PaymentMethod = "bit"
	PaymentCredit       PaymentMethod = "credit"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentPhoneCredit  PaymentMethod = "phone_credit"
	PaymentStripe       PaymentMethod = "stripe"
)

func (m PaymentMethod) Valid() bool {
	return m.Instant() || m.Deferred()
}

// Instant methods settle at the counter and are recorded as completed.
func (m PaymentMethod) Instant() bool {
	switch m {
	case PaymentCash, PaymentBit, PaymentBankTransfer, PaymentPhoneCredit:
		return true
	}
	return false
}

// Deferred methods settle later through a link or hosted checkout.
func (m PaymentMethod) Deferred() bool {
	return m == PaymentCredit || m == PaymentStripe
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrgID uuid.UUID `gorm:"type:uuid;index;not null" json:"orgId"`

	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Method      PaymentMethod   `gorm:"column:payment_method;type:varchar(20);not null" json:"paymentMethod"`
	Status      PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	ClientID    *uuid.UUID      `gorm:"type:uuid;index" json:"clientId,omitempty"`
	Description string          `json:"description,omitempty"`
	ExternalRef *string         `gorm:"uniqueIndex" json:"externalRef,omitempty"`
	PaymentURL  string          `json:"paymentUrl,omitempty"`

	SaleID        *uuid.UUID `gorm:"type:uuid;index" json:"saleId,omitempty"`
	AppointmentID *uuid.UUID `gorm:"type:uuid" json:"appointmentId,omitempty"`

	PaidAt    *time.Time `json:"paidAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
