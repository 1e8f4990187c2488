package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"salonpro-pos/models"
)

// BarcodeResolver maps a scanned code to a product of the organization.
type BarcodeResolver interface {
	Lookup(ctx context.Context, orgID uuid.UUID, code string) (*models.Product, error)
}

// SnapshotSource returns last-known quantities. Values may be stale.
type SnapshotSource interface {
	Quantities(ctx context.Context, orgID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

// Composer helps build carts. It only reads; it never changes stock.
type Composer struct {
	barcodes  BarcodeResolver
	snapshots SnapshotSource
}

func NewComposer(barcodes BarcodeResolver, snapshots SnapshotSource) *Composer {
	return &Composer{barcodes: barcodes, snapshots: snapshots}
}

// AddScanned resolves code and adds qty of the product to cart.
func (c *Composer) AddScanned(ctx context.Context, cart *Cart, code string, qty int64) (*models.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, validationf("barcode is empty")
	}
	p, err := c.barcodes.Lookup(ctx, cart.OrgID, code)
	if err != nil {
		return nil, fmt.Errorf("barcode %q: %w", code, err)
	}
	if err := cart.AddLine(*p, qty); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate runs the structural checks and then the advisory stock check
// against the snapshot source.
func (c *Composer) Validate(ctx context.Context, cart *Cart) (ValidationResult, error) {
	if err := cart.Check(); err != nil {
		return ValidationResult{}, err
	}
	snapshot, err := c.snapshots.Quantities(ctx, cart.OrgID, cart.productIDs())
	if err != nil {
		return ValidationResult{}, fmt.Errorf("load stock snapshot: %w", err)
	}
	return cart.Validate(snapshot), nil
}
