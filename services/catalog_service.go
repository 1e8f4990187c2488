package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonpro-pos/models"
	"salonpro-pos/repository"
)

type NewProduct struct {
	Name            string
	Barcode         string
	SKU             string
	Category        string
	Unit            string
	PurchasePrice   *decimal.Decimal
	SellPrice       decimal.Decimal
	MinQuantity     int64
	InitialQuantity int64
}

// CatalogService manages product master data. Opening stock is booked through
// the ledger as a purchase, in the same write as the product itself.
type CatalogService struct {
	products repository.ProductRepository
	ledger   *Ledger
}

func NewCatalogService(products repository.ProductRepository, ledger *Ledger) *CatalogService {
	return &CatalogService{products: products, ledger: ledger}
}

func (s *CatalogService) CreateProduct(ctx context.Context, orgID uuid.UUID, in NewProduct) (*models.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case orgID == uuid.Nil:
		return nil, validationf("organization is required")
	case in.Name == "":
		return nil, validationf("name is required")
	case in.SellPrice.IsNegative():
		return nil, validationf("sell price must not be negative")
	case !wholeCents(in.SellPrice):
		return nil, validationf("sell price %s has more than two decimals", in.SellPrice)
	case in.PurchasePrice != nil && in.PurchasePrice.IsNegative():
		return nil, validationf("purchase price must not be negative")
	case in.PurchasePrice != nil && !wholeCents(*in.PurchasePrice):
		return nil, validationf("purchase price %s has more than two decimals", in.PurchasePrice)
	case in.MinQuantity < 0:
		return nil, validationf("minimum quantity must not be negative")
	case in.InitialQuantity < 0:
		return nil, validationf("initial quantity must not be negative")
	}

	p := &models.Product{
		OrgID:         orgID,
		Name:          in.Name,
		SKU:           in.SKU,
		Category:      in.Category,
		Unit:          in.Unit,
		PurchasePrice: in.PurchasePrice,
		SellPrice:     in.SellPrice,
		MinQuantity:   in.MinQuantity,
	}
	if p.Category == "" {
		p.Category = "General"
	}
	if p.Unit == "" {
		p.Unit = "piece"
	}
	if code := strings.TrimSpace(in.Barcode); code != "" {
		p.Barcode = &code
	}
	var opening *Movement
	if in.InitialQuantity > 0 {
		opening = &Movement{
			Type:         models.StockPurchase,
			Magnitude:    in.InitialQuantity,
			PricePerUnit: in.PurchasePrice,
			Notes:        "opening stock",
		}
	}
	if _, err := s.ledger.OpenProduct(ctx, p, opening); err != nil {
		if errors.Is(err, repository.ErrDuplicateBarcode) {
			return nil, validationf("barcode %s is already used by another product", *p.Barcode)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error) {
	return s.products.GetProduct(ctx, orgID, id)
}

func (s *CatalogService) ListProducts(ctx context.Context, orgID uuid.UUID, f repository.ProductFilter) ([]models.Product, error) {
	return s.products.ListProducts(ctx, orgID, f)
}

// Lookup resolves a scanned barcode.
func (s *CatalogService) Lookup(ctx context.Context, orgID uuid.UUID, code string) (*models.Product, error) {
	return s.products.FindProductByBarcode(ctx, orgID, strings.TrimSpace(code))
}
