package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain error kinds. Handlers catch these at the request boundary and
// turn them into a flash message plus redirect (HTML) or an error code
// (JSON); they never surface as raw failure pages.

// ValidationError is a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// InsufficientStockError carries the product name and remaining stock
// so the user message can say what is still available.
type InsufficientStockError struct {
	Product   string
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s, available: %s", e.Product, e.Available.StringFixed(2))
}

// ReferentialIntegrityError blocks deleting a record that is still
// referenced (product by line items, client by invoices).
type ReferentialIntegrityError struct {
	Entity string
	Name   string
	Refs   int64
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s %q cannot be deleted: %d referencing records", e.Entity, e.Name, e.Refs)
}

// ConfigurationError signals missing email credentials or recipient.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// DeliveryError wraps an SMTP transport failure.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string { return "delivery failed: " + e.Err.Error() }
func (e *DeliveryError) Unwrap() error { return e.Err }

var (
	// ErrAlreadyConfigured rejects a second row for a singleton table.
	ErrAlreadyConfigured = errors.New("already_configured")
	// ErrWaybillExists enforces the one-waybill-per-invoice invariant.
	ErrWaybillExists = errors.New("waybill_already_exists")
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("not_found")
)
