package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/somagec/quarrystock/internal/httpx"
	"github.com/somagec/quarrystock/internal/services"
)

const pageSize = 15

func pathID(r *http.Request) (uint, bool) {
	id64, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id64 == 0 {
		return 0, false
	}
	return uint(id64), true
}

func pageOffset(r *http.Request) (page, offset int) {
	page = 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			page = n
		}
	}
	return page, (page - 1) * pageSize
}

func formDecimal(r *http.Request, field, def string) decimal.Decimal {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		v = def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func formUint(r *http.Request, field string) uint {
	n, err := strconv.ParseUint(strings.TrimSpace(r.FormValue(field)), 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a contains-match LIKE pattern from user input,
// escaping the LIKE metacharacters. Callers pair it with ESCAPE '\'.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}

// fail converts a domain error into the boundary response: an error
// code for JSON clients, a flash message plus redirect for HTML.
func fail(w http.ResponseWriter, r *http.Request, err error, backURL string) {
	status, code := http.StatusInternalServerError, "internal_error"
	message := "An unexpected error occurred."

	var vErr *services.ValidationError
	var stockErr *services.InsufficientStockError
	var refErr *services.ReferentialIntegrityError
	var cfgErr *services.ConfigurationError
	var delErr *services.DeliveryError
	switch {
	case errors.As(err, &vErr):
		status, code = http.StatusBadRequest, "validation_failed"
		message = "Invalid input: " + vErr.Field + " " + vErr.Reason + "."
	case errors.As(err, &stockErr):
		status, code = http.StatusConflict, "insufficient_stock"
		message = "Insufficient stock for " + stockErr.Product + ". Available: " + stockErr.Available.StringFixed(2) + "."
	case errors.As(err, &refErr):
		status, code = http.StatusConflict, "protected_reference"
		message = "The " + refErr.Entity + " '" + refErr.Name + "' cannot be deleted because records still reference it."
	case errors.As(err, &cfgErr):
		status, code = http.StatusBadRequest, "not_configured"
		message = "Email is not configured: " + cfgErr.Reason + "."
	case errors.As(err, &delErr):
		status, code = http.StatusBadGateway, "delivery_failed"
		message = "Sending the email failed: " + delErr.Err.Error()
	case errors.Is(err, services.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
		message = "The requested record was not found."
	case errors.Is(err, services.ErrWaybillExists):
		status, code = http.StatusConflict, "waybill_exists"
		message = "A transport waybill already exists for this invoice."
	case errors.Is(err, services.ErrAlreadyConfigured):
		status, code = http.StatusConflict, "already_configured"
		message = "This record already exists; edit it instead of creating a new one."
	}

	if httpx.WantsJSON(r) {
		httpx.JSONError(w, status, code, err.Error())
		return
	}
	httpx.Redirect(w, r, backURL, "error", message)
}
