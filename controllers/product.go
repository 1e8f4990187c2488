// controllers/product.go
package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"salonpro-pos/repository"
	"salonpro-pos/services"
	"salonpro-pos/utils"
)

type ProductController struct {
	Catalog *services.CatalogService
	Ledger  *services.Ledger
}

// CreateProductInput defines the expected JSON structure for creating a product
type CreateProductInput struct {
	Name            string           `json:"name" binding:"required"`
	Barcode         string           `json:"barcode"`
	SKU             string           `json:"sku"`
	Category        string           `json:"category"`
	Unit            string           `json:"unit"`
	PurchasePrice   *decimal.Decimal `json:"purchasePrice"`
	SellPrice       decimal.Decimal  `json:"sellPrice"`
	MinQuantity     int64            `json:"minQuantity" binding:"min=0"`
	InitialQuantity int64            `json:"initialQuantity" binding:"min=0"`
}

func (pc *ProductController) CreateProduct(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}

	var input CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	product, err := pc.Catalog.CreateProduct(c.Request.Context(), orgID, services.NewProduct{
		Name:            input.Name,
		Barcode:         input.Barcode,
		SKU:             input.SKU,
		Category:        input.Category,
		Unit:            input.Unit,
		PurchasePrice:   input.PurchasePrice,
		SellPrice:       input.SellPrice,
		MinQuantity:     input.MinQuantity,
		InitialQuantity: input.InitialQuantity,
	})
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// GetProducts lists products, optionally filtered by ?name=, ?category= and ?lowStock=true.
func (pc *ProductController) GetProducts(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}

	lowStock, _ := strconv.ParseBool(c.Query("lowStock"))
	products, err := pc.Catalog.ListProducts(c.Request.Context(), orgID, repository.ProductFilter{
		NameSubstring: c.Query("name"),
		Category:      c.Query("category"),
		LowStockOnly:  lowStock,
	})
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, products)
}

func (pc *ProductController) GetProduct(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	product, err := pc.Catalog.GetProduct(c.Request.Context(), orgID, id)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (pc *ProductController) GetProductByBarcode(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}

	product, err := pc.Catalog.Lookup(c.Request.Context(), orgID, c.Param("code"))
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (pc *ProductController) GetStock(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	qty, err := pc.Ledger.CurrentQuantity(c.Request.Context(), orgID, id)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"productId": id, "quantity": qty})
}

func (pc *ProductController) GetHistory(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	history, err := pc.Ledger.GetStockHistory(c.Request.Context(), orgID, id)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, history)
}

func (pc *ProductController) Reconcile(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	rec, err := pc.Ledger.Reconcile(c.Request.Context(), orgID, id)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, rec)
}
