// controllers/stock.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"salonpro-pos/services"
	"salonpro-pos/utils"
)

// StockController exposes stock changes made outside a sale.
type StockController struct {
	Adjustments *services.AdjustmentService
}

type RestockInput struct {
	Quantity int64            `json:"quantity" binding:"required,gt=0"`
	Price    *decimal.Decimal `json:"price"`
	Notes    string           `json:"notes"`
}

type ReturnInput struct {
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
	Notes    string `json:"notes"`
}

type AdjustInput struct {
	Delta int64  `json:"delta" binding:"required"`
	Notes string `json:"notes" binding:"required"`
}

type WriteOffInput struct {
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
	Notes    string `json:"notes" binding:"required"`
}

func (sc *StockController) Restock(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input RestockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	tx, err := sc.Adjustments.Restock(c.Request.Context(), orgID, id, input.Quantity, input.Price, input.Notes)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

func (sc *StockController) Return(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input ReturnInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	tx, err := sc.Adjustments.Return(c.Request.Context(), orgID, id, input.Quantity, input.Notes)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

func (sc *StockController) Adjust(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input AdjustInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	tx, err := sc.Adjustments.Adjust(c.Request.Context(), orgID, id, input.Delta, input.Notes)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

func (sc *StockController) WriteOff(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input WriteOffInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	tx, err := sc.Adjustments.WriteOff(c.Request.Context(), orgID, id, input.Quantity, input.Notes)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusCreated, tx)
}
