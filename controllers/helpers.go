package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"salonpro-pos/repository"
	"salonpro-pos/services"
	"salonpro-pos/utils"
)

func orgIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	orgID, exists := c.Get("orgId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "Organization ID not found in context")
		return uuid.Nil, false
	}
	s, _ := orgID.(string)
	orgUUID, err := uuid.Parse(s)
	if err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid organization ID format")
		return uuid.Nil, false
	}
	return orgUUID, true
}

func idParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrConcurrencyConflict),
		errors.Is(err, repository.ErrStateMismatch):
		return http.StatusConflict
	case errors.Is(err, services.ErrPaymentNotRecorded),
		errors.Is(err, services.ErrExternalPaymentProvider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError is the single place errors become HTTP responses. A failed sale
// also reports which line failed and whether stock moved.
func writeError(c *gin.Context, err error, partial *services.SaleResult) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[http] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}

	var saleErr *services.SaleError
	if !errors.As(err, &saleErr) {
		utils.RespondWithError(c, status, err.Error())
		return
	}
	details := gin.H{
		"kind":         saleErr.Kind,
		"stockMutated": saleErr.StockMutated,
		"compensated":  saleErr.Compensated,
	}
	if saleErr.SaleID != uuid.Nil {
		details["saleId"] = saleErr.SaleID
	}
	if saleErr.Line >= 0 {
		details["line"] = saleErr.Line
		details["productId"] = saleErr.ProductID
	}
	if partial != nil {
		details["sale"] = partial
	}
	utils.RespondWithErrorDetails(c, status, err.Error(), details)
}
