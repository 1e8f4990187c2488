package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"salonpro-pos/repository"
)

var (
	ErrInsufficientStock   = repository.ErrInsufficientStock
	ErrConcurrencyConflict = repository.ErrConcurrencyConflict
	ErrNotFound            = repository.ErrNotFound

	ErrValidation              = errors.New("validation failed")
	ErrInvalidTransition       = errors.New("invalid appointment transition")
	ErrExternalPaymentProvider = errors.New("external payment provider failed")
	// ErrPaymentNotRecorded marks a sale whose stock is committed but whose payment is not.
	ErrPaymentNotRecorded = errors.New("stock sold, payment not recorded")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type SaleErrorKind string

const (
	SaleErrValidation         SaleErrorKind = "validation"
	SaleErrInsufficientStock  SaleErrorKind = "insufficient_stock"
	SaleErrConflict           SaleErrorKind = "concurrency_conflict"
	SaleErrInvalidTransition  SaleErrorKind = "invalid_transition"
	SaleErrPaymentNotRecorded SaleErrorKind = "payment_not_recorded"
	SaleErrStorage            SaleErrorKind = "storage"
)

// SaleError describes a failed ExecuteSale. Line is the zero-based cart line
// that caused it, or -1 when no single line is to blame.
type SaleError struct {
	Kind      SaleErrorKind
	SaleID    uuid.UUID
	Line      int
	ProductID uuid.UUID
	// StockMutated is true when quantities differ from before the call.
	StockMutated bool
	// Compensated is true when applied lines were reversed again.
	Compensated bool
	Err         error
}

func (e *SaleError) Error() string {
	msg := fmt.Sprintf("sale %s failed (%s)", e.SaleID, e.Kind)
	if e.Line >= 0 {
		msg += fmt.Sprintf(" at line %d product %s", e.Line, e.ProductID)
	}
	switch {
	case e.StockMutated:
		msg += ", stock was changed"
	case e.Compensated:
		msg += ", stock restored"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SaleError) Unwrap() error { return e.Err }

func kindOf(err error) SaleErrorKind {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return SaleErrInsufficientStock
	case errors.Is(err, ErrConcurrencyConflict):
		return SaleErrConflict
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return SaleErrValidation
	case errors.Is(err, ErrInvalidTransition):
		return SaleErrInvalidTransition
	}
	return SaleErrStorage
}
