package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StockTransactionType string

const (
	StockPurchase   StockTransactionType = "purchase"
	StockSale       StockTransactionType = "sale"
	StockReturn     StockTransactionType = "return"
	StockAdjustment StockTransactionType = "adjustment"
	StockWriteOff   StockTransactionType = "write_off"
)

func (t StockTransactionType) Valid() bool {
	switch t {
	case StockPurchase, StockSale, StockReturn, StockAdjustment, StockWriteOff:
		return true
	}
	return false
}

// StockTransaction is an immutable signed change of one product's quantity.
// Corrections are new rows; nothing updates or deletes these.
type StockTransaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrgID     uuid.UUID `gorm:"type:uuid;index;not null" json:"orgId"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null" json:"productId"`

	Type          StockTransactionType `gorm:"type:varchar(20);not null" json:"type"`
	QuantityDelta int64                `gorm:"not null" json:"quantityDelta"`
	QuantityAfter int64                `gorm:"not null" json:"quantityAfter"`
	PricePerUnit  *decimal.Decimal     `gorm:"type:decimal(12,2)" json:"pricePerUnit,omitempty"`
	TotalPrice    *decimal.Decimal     `gorm:"type:decimal(12,2)" json:"totalPrice,omitempty"`
	Notes         string               `gorm:"type:text" json:"notes,omitempty"`

	RelatedAppointmentID *uuid.UUID `gorm:"type:uuid" json:"relatedAppointmentId,omitempty"`
	SaleID               *uuid.UUID `gorm:"type:uuid;index" json:"saleId,omitempty"`
	// ReversesID points at the sale transaction this row compensates.
	ReversesID *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"reversesId,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	Product *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (t *StockTransaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

// Magnitude is the unsigned quantity shown to users.
func (t StockTransaction) Magnitude() int64 {
	if t.QuantityDelta < 0 {
		return -t.QuantityDelta
	}
	return t.QuantityDelta
}
