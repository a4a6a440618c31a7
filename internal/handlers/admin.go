package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/somagec/quarrystock/internal/backup"
	"github.com/somagec/quarrystock/internal/httpx"
	"github.com/somagec/quarrystock/internal/services"
)

// AdminHandler exposes maintenance actions: clearing current-year
// invoices to restart numbering, and forcing a backup run.
type AdminHandler struct {
	Invoices *services.InvoiceService
	Backup   *backup.Runner
}

func NewAdminHandler(invoices *services.InvoiceService, runner *backup.Runner) *AdminHandler {
	return &AdminHandler{Invoices: invoices, Backup: runner}
}

// ResetNumbering deletes the selected invoices that belong to the
// current year, restoring their stock, so numbering restarts at 0001.
// Selected invoices from previous years are skipped, not deleted.
func (h *AdminHandler) ResetNumbering(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		fail(w, r, &services.ValidationError{Field: "form", Reason: "invalid"}, "/invoices")
		return
	}
	var ids []uint
	for _, raw := range r.Form["ids"] {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil && id > 0 {
			ids = append(ids, uint(id))
		}
	}
	if len(ids) == 0 {
		fail(w, r, &services.ValidationError{Field: "ids", Reason: "required"}, "/invoices")
		return
	}
	count, err := h.Invoices.ResetYearNumbering(ids, time.Now())
	if err != nil {
		fail(w, r, err, "/invoices")
		return
	}
	log.Info().Int("deleted", count).Msg("invoice numbering reset")
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": count})
		return
	}
	if count == 0 {
		httpx.Redirect(w, r, "/invoices", "info", "No current-year invoices were selected; nothing was deleted.")
		return
	}
	httpx.Redirect(w, r, "/invoices", "success",
		strconv.Itoa(count)+" invoice(s) deleted and stock restored. Numbering will restart at 0001.")
}

// RunBackup forces an immediate backup regardless of the schedule.
func (h *AdminHandler) RunBackup(w http.ResponseWriter, r *http.Request) {
	ran, err := h.Backup.CheckAndRun(time.Now(), true)
	if err != nil {
		fail(w, r, err, "/settings/backup")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"ran": ran})
		return
	}
	httpx.Redirect(w, r, "/settings/backup", "success", "Backup completed and sent to the configured recipient.")
}
