package services

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonpro-pos/models"
)

type CartLine struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// Cart is an in-memory sale being put together at the counter. It is never
// persisted; ExecuteSale turns it into ledger rows and a payment.
type Cart struct {
	OrgID         uuid.UUID            `json:"orgId"`
	Lines         []CartLine           `json:"lines"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	ClientID      *uuid.UUID           `json:"clientId,omitempty"`
	AppointmentID *uuid.UUID           `json:"appointmentId,omitempty"`
	// ServiceAmount is charged on top of the lines when the sale closes an appointment.
	ServiceAmount decimal.Decimal `json:"serviceAmount"`
	Description   string          `json:"description,omitempty"`
}

func ComposeCart(orgID uuid.UUID, method models.PaymentMethod) *Cart {
	return &Cart{OrgID: orgID, PaymentMethod: method}
}

// AddLine adds qty of p at its sell price. A product already in the cart has
// its quantity increased instead of getting a second line.
func (c *Cart) AddLine(p models.Product, qty int64) error {
	return c.AddLineAtPrice(p, qty, p.SellPrice)
}

// AddLineAtPrice is AddLine with a counter override of the unit price. When
// the product is already in the cart the existing price is kept.
func (c *Cart) AddLineAtPrice(p models.Product, qty int64, price decimal.Decimal) error {
	if qty <= 0 {
		return validationf("quantity for %s must be positive, got %d", p.Name, qty)
	}
	if price.IsNegative() {
		return validationf("unit price for %s must not be negative", p.Name)
	}
	if !wholeCents(price) {
		return validationf("unit price %s for %s has more than two decimals", price, p.Name)
	}
	if p.OrgID != uuid.Nil && c.OrgID != uuid.Nil && p.OrgID != c.OrgID {
		return validationf("product %s belongs to another organization", p.ID)
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == p.ID {
			c.Lines[i].Quantity += qty
			return nil
		}
	}
	c.Lines = append(c.Lines, CartLine{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    qty,
		UnitPrice:   price,
	})
	return nil
}

// RemoveLine drops the product's line, keeping the order of the rest.
func (c *Cart) RemoveLine(productID uuid.UUID) error {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// Total is the amount charged: product lines plus the service amount.
func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal().Add(c.ServiceAmount)
}

// Check rejects a malformed cart. It needs no stock data and has no side effects.
func (c *Cart) Check() error {
	if c.OrgID == uuid.Nil {
		return validationf("organization is required")
	}
	if !c.PaymentMethod.Valid() {
		return validationf("unknown payment method %q", c.PaymentMethod)
	}
	if len(c.Lines) == 0 && c.ServiceAmount.IsZero() {
		return validationf("cart is empty")
	}
	if c.ServiceAmount.IsNegative() {
		return validationf("service amount must not be negative")
	}
	if !wholeCents(c.ServiceAmount) {
		return validationf("service amount %s has more than two decimals", c.ServiceAmount)
	}
	if !c.ServiceAmount.IsZero() && c.AppointmentID == nil {
		return validationf("service amount requires an appointment")
	}
	seen := make(map[uuid.UUID]struct{}, len(c.Lines))
	for i, l := range c.Lines {
		if l.ProductID == uuid.Nil {
			return validationf("line %d has no product", i)
		}
		if _, dup := seen[l.ProductID]; dup {
			return validationf("line %d repeats product %s", i, l.ProductID)
		}
		seen[l.ProductID] = struct{}{}
		if l.Quantity <= 0 {
			return validationf("line %d quantity must be positive", i)
		}
		if l.UnitPrice.IsNegative() {
			return validationf("line %d unit price must not be negative", i)
		}
		if !wholeCents(l.UnitPrice) {
			return validationf("line %d unit price %s has more than two decimals", i, l.UnitPrice)
		}
	}
	// A deferred charge of zero is never captured, so the sale could not close.
	if c.PaymentMethod.Deferred() && !c.Total().IsPositive() {
		return validationf("%s payment needs a positive total", c.PaymentMethod)
	}
	return nil
}

// wholeCents reports whether d has at most two decimal places.
func wholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

func (c *Cart) productIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(c.Lines))
	for i, l := range c.Lines {
		ids[i] = l.ProductID
	}
	return ids
}

type LineIssue struct {
	Line      int       `json:"line"`
	ProductID uuid.UUID `json:"productId"`
	Requested int64     `json:"requested"`
	Available int64     `json:"available"`
	Reason    string    `json:"reason"`
}

// ValidationResult is advisory. A valid cart can still fail in ExecuteSale
// when stock moved in between.
type ValidationResult struct {
	Valid  bool            `json:"valid"`
	Issues []LineIssue     `json:"issues,omitempty"`
	Total  decimal.Decimal `json:"total"`
}

// Validate compares each line with a last-known stock snapshot. Products
// missing from the snapshot are reported as unknown.
func (c *Cart) Validate(snapshot map[uuid.UUID]int64) ValidationResult {
	res := ValidationResult{Valid: true, Total: c.Total()}
	for i, l := range c.Lines {
		available, ok := snapshot[l.ProductID]
		switch {
		case !ok:
			res.Issues = append(res.Issues, LineIssue{Line: i, ProductID: l.ProductID, Requested: l.Quantity, Reason: "unknown product"})
		case l.Quantity > available:
			res.Issues = append(res.Issues, LineIssue{Line: i, ProductID: l.ProductID, Requested: l.Quantity, Available: available, Reason: "insufficient stock"})
		}
	}
	res.Valid = len(res.Issues) == 0
	return res
}
