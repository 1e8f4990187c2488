// controllers/payment.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"salonpro-pos/services"
)

// PaymentController is the confirmation channel for deferred payments.
type PaymentController struct {
	Sales *services.SaleService
}

func (pc *PaymentController) GetPayment(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	payment, err := pc.Sales.GetPayment(c.Request.Context(), orgID, id)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (pc *PaymentController) CompletePayment(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	conf, err := pc.Sales.ConfirmDeferredPayment(c.Request.Context(), orgID, id)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, conf)
}

func (pc *PaymentController) FailPayment(c *gin.Context) {
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	payment, err := pc.Sales.FailDeferredPayment(c.Request.Context(), orgID, id)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, payment)
}
