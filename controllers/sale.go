// controllers/sale.go
package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salonpro-pos/models"
	"salonpro-pos/services"
	"salonpro-pos/utils"
)

type SaleController struct {
	Catalog  *services.CatalogService
	Composer *services.Composer
	Sales    *services.SaleService
}

// SaleLineInput names a product either by id or by scanned barcode.
type SaleLineInput struct {
	ProductID *uuid.UUID       `json:"productId"`
	Barcode   string           `json:"barcode"`
	Quantity  int64            `json:"quantity" binding:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
}

type SaleInput struct {
	Lines         []SaleLineInput      `json:"lines" binding:"dive"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod" binding:"required"`
	ClientID      *uuid.UUID           `json:"clientId"`
	AppointmentID *uuid.UUID           `json:"appointmentId"`
	ServiceAmount decimal.Decimal      `json:"serviceAmount"`
	Description   string               `json:"description"`
}

func (sc *SaleController) buildCart(ctx context.Context, orgID uuid.UUID, input SaleInput) (*services.Cart, error) {
	cart := services.ComposeCart(orgID, input.PaymentMethod)
	cart.ClientID = input.ClientID
	cart.AppointmentID = input.AppointmentID
	cart.ServiceAmount = input.ServiceAmount
	cart.Description = input.Description

	for i, line := range input.Lines {
		if line.Barcode != "" && line.UnitPrice == nil {
			if _, err := sc.Composer.AddScanned(ctx, cart, line.Barcode, line.Quantity); err != nil {
				return nil, fmt.Errorf("line %d: %w", i, err)
			}
			continue
		}

		var product *models.Product
		var err error
		switch {
		case line.Barcode != "":
			product, err = sc.Catalog.Lookup(ctx, orgID, line.Barcode)
		case line.ProductID != nil:
			product, err = sc.Catalog.GetProduct(ctx, orgID, *line.ProductID)
		default:
			return nil, fmt.Errorf("line %d: %w: productId or barcode is required", i, services.ErrValidation)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		price := product.SellPrice
		if line.UnitPrice != nil {
			price = *line.UnitPrice
		}
		if err := cart.AddLineAtPrice(*product, line.Quantity, price); err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
	}
	return cart, nil
}

// ValidateSale is the advisory pre-check the counter runs before charging.
func (sc *SaleController) ValidateSale(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}
	var input SaleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	cart, err := sc.buildCart(c.Request.Context(), orgID, input)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	result, err := sc.Composer.Validate(c.Request.Context(), cart)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": cart, "validation": result})
}

func (sc *SaleController) ExecuteSale(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}
	var input SaleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	cart, err := sc.buildCart(c.Request.Context(), orgID, input)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	result, err := sc.Sales.ExecuteSale(c.Request.Context(), cart)
	if err != nil {
		writeError(c, err, result)
		return
	}

	c.JSON(http.StatusCreated, result)
}
