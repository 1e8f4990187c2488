package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a stock-keeping item of an organization. Quantity is owned by the
// stock ledger and only changes together with a StockTransaction.
type Product struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrgID uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_org_barcode,priority:1" json:"orgId"`

	Name          string           `gorm:"not null" json:"name"`
	Barcode       *string          `gorm:"uniqueIndex:idx_org_barcode,priority:2" json:"barcode,omitempty"`
	SKU           string           `json:"sku,omitempty"`
	Category      string           `gorm:"default:'General'" json:"category"`
	PurchasePrice *decimal.Decimal `gorm:"type:decimal(12,2)" json:"purchasePrice,omitempty"`
	SellPrice     decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"sellPrice"`
	Unit          string           `gorm:"type:varchar(20);default:'piece'" json:"unit"`
	MinQuantity   int64            `gorm:"default:0" json:"minQuantity"`
	Quantity      int64            `gorm:"not null;default:0;check:chk_products_quantity,quantity >= 0" json:"quantity"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// LowStock reports whether the product reached its reorder threshold.
func (p Product) LowStock() bool {
	return p.Quantity <= p.MinQuantity
}
