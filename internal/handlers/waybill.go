package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/somagec/quarrystock/internal/httpx"
	"github.com/somagec/quarrystock/internal/mailer"
	"github.com/somagec/quarrystock/internal/models"
	"github.com/somagec/quarrystock/internal/pdf"
	"github.com/somagec/quarrystock/internal/services"
	"github.com/somagec/quarrystock/internal/view"
)

type WaybillHandler struct {
	DB       *gorm.DB
	Svc      *services.WaybillService
	Settings *services.SettingsService
	Mailer   *mailer.Mailer
}

func NewWaybillHandler(db *gorm.DB, svc *services.WaybillService, settings *services.SettingsService, m *mailer.Mailer) *WaybillHandler {
	return &WaybillHandler{DB: db, Svc: svc, Settings: settings, Mailer: m}
}

// List: GET /waybills, newest first, paginated.
func (h *WaybillHandler) List(w http.ResponseWriter, r *http.Request) {
	var total int64
	h.DB.Model(&models.Waybill{}).Count(&total)
	page, offset := pageOffset(r)
	var waybills []models.Waybill
	if err := h.DB.Preload("Invoice.Client").
		Order("issue_date desc, number desc").
		Limit(pageSize).Offset(offset).
		Find(&waybills).Error; err != nil {
		fail(w, r, err, "/waybills")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": waybills, "total": total, "page": page})
		return
	}
	data := map[string]any{"Waybills": waybills, "Total": total, "Page": page, "Flash": httpx.PopFlash(w, r)}
	_ = view.Render(w, r, "waybills.html", data)
}

// Detail: GET /waybills/{id}
func (h *WaybillHandler) Detail(w http.ResponseWriter, r *http.Request) {
	wb, ok := h.load(w, r)
	if !ok {
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, wb)
		return
	}
	_ = view.Render(w, r, "waybill_detail.html", map[string]any{"Waybill": wb, "Flash": httpx.PopFlash(w, r)})
}

// Edit: transport details only, items stay as copied from the invoice.
func (h *WaybillHandler) Edit(w http.ResponseWriter, r *http.Request) {
	wb, ok := h.load(w, r)
	if !ok {
		return
	}
	if r.Method == http.MethodGet {
		_ = view.Render(w, r, "waybill_edit.html", map[string]any{"Waybill": wb, "Flash": httpx.PopFlash(w, r)})
		return
	}
	if err := r.ParseForm(); err != nil {
		fail(w, r, &services.ValidationError{Field: "form", Reason: "invalid"}, "/waybills")
		return
	}
	in := services.WaybillInput{
		LoadingAddress:   strings.TrimSpace(r.FormValue("loading_address")),
		UnloadingAddress: strings.TrimSpace(r.FormValue("unloading_address")),
		VehiclePlate:     strings.TrimSpace(r.FormValue("vehicle_plate")),
	}
	updated, err := h.Svc.Update(wb.ID, in)
	if err != nil {
		fail(w, r, err, fmt.Sprintf("/waybills/%d/edit", wb.ID))
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, updated)
		return
	}
	httpx.Redirect(w, r, fmt.Sprintf("/waybills/%d", updated.ID), "success", "Waybill "+updated.Number+" updated.")
}

// Print: GET /waybills/{id}/print
func (h *WaybillHandler) Print(w http.ResponseWriter, r *http.Request) {
	wb, ok := h.load(w, r)
	if !ok {
		return
	}
	profile, _ := h.Settings.CompanyProfile()
	_ = view.Render(w, r, "waybill_print.html", map[string]any{"Waybill": wb, "Company": profile})
}

// PDF: GET /waybills/{id}/pdf
func (h *WaybillHandler) PDF(w http.ResponseWriter, r *http.Request) {
	wb, ok := h.load(w, r)
	if !ok {
		return
	}
	profile, _ := h.Settings.CompanyProfile()
	data, err := pdf.Waybill(wb, profile)
	if err != nil {
		fail(w, r, err, fmt.Sprintf("/waybills/%d", wb.ID))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "waybill_"+wb.Number+".pdf"))
	_, _ = w.Write(data)
}

// Email: POST /waybills/{id}/email sends the PDF to the invoice client.
func (h *WaybillHandler) Email(w http.ResponseWriter, r *http.Request) {
	wb, ok := h.load(w, r)
	if !ok {
		return
	}
	back := fmt.Sprintf("/waybills/%d", wb.ID)
	client := wb.Invoice.Client
	if client.Email == "" {
		fail(w, r, &services.ConfigurationError{Reason: "client '" + client.Name + "' has no email address"}, back)
		return
	}
	settings, err := h.Settings.EmailSettings()
	if err != nil {
		fail(w, r, err, back)
		return
	}
	profile, _ := h.Settings.CompanyProfile()
	data, err := pdf.Waybill(wb, profile)
	if err != nil {
		fail(w, r, err, back)
		return
	}
	company := "Our company"
	if profile != nil && profile.CompanyName != "" {
		company = profile.CompanyName
	}
	subject := fmt.Sprintf("Transport Waybill No %s from %s", wb.Number, company)
	body := fmt.Sprintf("Dear %s,\n\nPlease find attached transport waybill number %s.\n\nBest regards,\n%s\n", client.Name, wb.Number, company)
	att := mailer.Attachment{Filename: "waybill_" + wb.Number + ".pdf", ContentType: "application/pdf", Data: data}
	if err := h.Mailer.Send(settings, client.Email, subject, body, att); err != nil {
		fail(w, r, err, back)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"sent": client.Email})
		return
	}
	httpx.Redirect(w, r, back, "success", "Waybill sent to "+client.Email+".")
}

func (h *WaybillHandler) load(w http.ResponseWriter, r *http.Request) (*models.Waybill, bool) {
	id, ok := pathID(r)
	if !ok {
		fail(w, r, services.ErrNotFound, "/waybills")
		return nil, false
	}
	wb, err := h.Svc.Get(id)
	if err != nil {
		fail(w, r, err, "/waybills")
		return nil, false
	}
	return wb, true
}
