package handlers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/somagec/quarrystock/internal/auth"
	"github.com/somagec/quarrystock/internal/httpx"
	"github.com/somagec/quarrystock/internal/mailer"
	"github.com/somagec/quarrystock/internal/models"
	"github.com/somagec/quarrystock/internal/pdf"
	"github.com/somagec/quarrystock/internal/services"
	"github.com/somagec/quarrystock/internal/view"
)

type InvoiceHandler struct {
	DB       *gorm.DB
	Svc      *services.InvoiceService
	Waybills *services.WaybillService
	Settings *services.SettingsService
	Mailer   *mailer.Mailer
}

func NewInvoiceHandler(db *gorm.DB, svc *services.InvoiceService, waybills *services.WaybillService, settings *services.SettingsService, m *mailer.Mailer) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Svc: svc, Waybills: waybills, Settings: settings, Mailer: m}
}

// List: GET /invoices with the filters the paper workflow needs:
// number, client name, exact issue date, paid state, current month.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dbq := h.DB.Model(&models.Invoice{})
	if v := strings.TrimSpace(q.Get("q_number")); v != "" {
		dbq = dbq.Where(`number LIKE ? ESCAPE '\'`, likePattern(v))
	}
	if v := strings.TrimSpace(q.Get("q_client")); v != "" {
		dbq = dbq.Joins("JOIN clients ON clients.id = invoices.client_id").
			Where(`lower(clients.name) LIKE ? ESCAPE '\'`, likePattern(v))
	}
	if v := strings.TrimSpace(q.Get("q_date")); v != "" {
		if day, err := time.Parse("2006-01-02", v); err == nil {
			dbq = dbq.Where("issue_date >= ? AND issue_date < ?", day, day.AddDate(0, 0, 1))
		}
	}
	switch q.Get("q_paid") {
	case "yes":
		dbq = dbq.Where("paid = ?", true)
	case "no":
		dbq = dbq.Where("paid = ?", false)
	}
	if q.Get("q_period") == "current_month" {
		now := time.Now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		dbq = dbq.Where("issue_date >= ? AND issue_date < ?", monthStart, monthStart.AddDate(0, 1, 0))
	}
	var total int64
	dbq.Count(&total)
	page, offset := pageOffset(r)
	var invoices []models.Invoice
	if err := dbq.Preload("Items").Preload("Client").
		Order("issue_date desc, number desc").
		Limit(pageSize).Offset(offset).
		Find(&invoices).Error; err != nil {
		fail(w, r, err, "/invoices")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": invoices, "total": total, "page": page})
		return
	}
	data := map[string]any{
		"Invoices": invoices, "Total": total, "Page": page,
		"QNumber": q.Get("q_number"), "QClient": q.Get("q_client"),
		"QDate": q.Get("q_date"), "QPaid": q.Get("q_paid"), "QPeriod": q.Get("q_period"),
		"Flash": httpx.PopFlash(w, r),
	}
	_ = view.Render(w, r, "invoices.html", data)
}

// issueInput decodes either a JSON body or the HTML form. The form
// posts each line as a JSON object in items[], the way the invoice
// composer widget submits them.
func issueInput(r *http.Request) (services.IssueInput, error) {
	var in services.IssueInput
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return in, &services.ValidationError{Field: "body", Reason: "invalid_json"}
		}
		return in, nil
	}
	if err := r.ParseForm(); err != nil {
		return in, &services.ValidationError{Field: "form", Reason: "invalid"}
	}
	in.ClientID = formUint(r, "client")
	in.TaxRate = formDecimal(r, "tax_rate", "17.00")
	in.DiscountRate = formDecimal(r, "discount_rate", "0.00")
	in.Advance = formDecimal(r, "advance", "0.00")
	for _, raw := range r.Form["items[]"] {
		var line services.LineInput
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return in, &services.ValidationError{Field: "items", Reason: "invalid_json"}
		}
		in.Lines = append(in.Lines, line)
	}
	return in, nil
}

func (h *InvoiceHandler) formData(extra map[string]any) map[string]any {
	var clients []models.Client
	var products []models.Product
	_ = h.DB.Order("name asc").Find(&clients).Error
	_ = h.DB.Order("name asc").Find(&products).Error
	data := map[string]any{"Clients": clients, "Products": products}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// New: GET shows the composer, POST issues the invoice.
func (h *InvoiceHandler) New(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		_ = view.Render(w, r, "invoice_form.html", h.formData(map[string]any{"Flash": httpx.PopFlash(w, r)}))
		return
	}
	in, err := issueInput(r)
	if err != nil {
		fail(w, r, err, "/invoices/new")
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	inv, err := h.Svc.Issue(uid, in)
	if err != nil {
		fail(w, r, err, "/invoices/new")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, inv)
		return
	}
	httpx.Redirect(w, r, fmt.Sprintf("/invoices/%d", inv.ID), "success", "Invoice "+inv.Number+" created.")
}

// Detail: GET /invoices/{id}
func (h *InvoiceHandler) Detail(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"invoice":    inv,
			"subtotal":   inv.Subtotal(),
			"discount":   inv.DiscountAmount(),
			"tax":        inv.TaxAmount(),
			"total":      inv.Total(),
			"amount_due": inv.AmountDue(),
		})
		return
	}
	var waybill models.Waybill
	hasWaybill := h.DB.Where("invoice_id = ?", inv.ID).First(&waybill).Error == nil
	data := map[string]any{"Invoice": inv, "HasWaybill": hasWaybill, "Waybill": waybill, "Flash": httpx.PopFlash(w, r)}
	_ = view.Render(w, r, "invoice_detail.html", data)
}

// Edit: GET shows the composer pre-filled, POST re-issues the lines.
func (h *InvoiceHandler) Edit(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	if r.Method == http.MethodGet {
		items := make([]map[string]any, 0, len(inv.Items))
		for _, it := range inv.Items {
			items = append(items, map[string]any{
				"product_id": it.ProductID,
				"name":       it.Product.Label(),
				"quantity":   it.Quantity,
				"unit_price": it.UnitPrice,
			})
		}
		itemsJSON, _ := json.Marshal(items)
		data := h.formData(map[string]any{"Invoice": inv, "ItemsJSON": template.JS(itemsJSON), "Flash": httpx.PopFlash(w, r)})
		_ = view.Render(w, r, "invoice_form.html", data)
		return
	}
	in, err := issueInput(r)
	if err != nil {
		fail(w, r, err, fmt.Sprintf("/invoices/%d/edit", inv.ID))
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	updated, err := h.Svc.Edit(uid, inv.ID, in)
	if err != nil {
		fail(w, r, err, fmt.Sprintf("/invoices/%d/edit", inv.ID))
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, updated)
		return
	}
	httpx.Redirect(w, r, fmt.Sprintf("/invoices/%d", updated.ID), "success", "Invoice "+updated.Number+" updated.")
}

// TogglePaid: POST /invoices/{id}/toggle-paid
func (h *InvoiceHandler) TogglePaid(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		fail(w, r, services.ErrNotFound, "/invoices")
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	inv, err := h.Svc.TogglePaid(uid, id)
	if err != nil {
		fail(w, r, err, "/invoices")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, inv)
		return
	}
	state := "NOT PAID"
	if inv.Paid {
		state = "PAID"
	}
	httpx.Redirect(w, r, "/invoices", "success", "Invoice "+inv.Number+" marked as "+state+".")
}

// Print: GET /invoices/{id}/print renders the print-friendly page.
// Delete: POST /invoices/{id}/delete. No stock restore on this path.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(inv.ID); err != nil {
		fail(w, r, err, fmt.Sprintf("/invoices/%d", inv.ID))
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": inv.Number})
		return
	}
	httpx.Redirect(w, r, "/invoices", "success", "Invoice "+inv.Number+" deleted.")
}

func (h *InvoiceHandler) Print(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	profile, _ := h.Settings.CompanyProfile()
	_ = view.Render(w, r, "invoice_print.html", map[string]any{"Invoice": inv, "Company": profile})
}

// PDF: GET /invoices/{id}/pdf streams the document, nothing persisted.
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	profile, _ := h.Settings.CompanyProfile()
	data, err := pdf.Invoice(inv, profile)
	if err != nil {
		fail(w, r, err, fmt.Sprintf("/invoices/%d", inv.ID))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "invoice_"+inv.Number+".pdf"))
	_, _ = w.Write(data)
}

// Email: POST /invoices/{id}/email sends the PDF to the client.
func (h *InvoiceHandler) Email(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	back := fmt.Sprintf("/invoices/%d", inv.ID)
	if inv.Client.Email == "" {
		fail(w, r, &services.ConfigurationError{Reason: "client '" + inv.Client.Name + "' has no email address"}, back)
		return
	}
	settings, err := h.Settings.EmailSettings()
	if err != nil {
		fail(w, r, err, back)
		return
	}
	profile, _ := h.Settings.CompanyProfile()
	data, err := pdf.Invoice(inv, profile)
	if err != nil {
		fail(w, r, err, back)
		return
	}
	company := "Our company"
	if profile != nil && profile.CompanyName != "" {
		company = profile.CompanyName
	}
	subject := fmt.Sprintf("Invoice No %s from %s", inv.Number, company)
	body := fmt.Sprintf("Dear %s,\n\nPlease find attached invoice number %s.\n\nBest regards,\n%s\n", inv.Client.Name, inv.Number, company)
	att := mailer.Attachment{Filename: "invoice_" + inv.Number + ".pdf", ContentType: "application/pdf", Data: data}
	if err := h.Mailer.Send(settings, inv.Client.Email, subject, body, att); err != nil {
		fail(w, r, err, back)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"sent": inv.Client.Email})
		return
	}
	httpx.Redirect(w, r, back, "success", "Invoice sent to "+inv.Client.Email+".")
}

// CreateWaybill: GET shows the transport form, POST derives the waybill
// from this invoice's line items.
func (h *InvoiceHandler) CreateWaybill(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	back := fmt.Sprintf("/invoices/%d", inv.ID)
	if r.Method == http.MethodGet {
		profile, _ := h.Settings.CompanyProfile()
		_ = view.Render(w, r, "waybill_form.html", map[string]any{"Invoice": inv, "Company": profile, "Flash": httpx.PopFlash(w, r)})
		return
	}
	var in services.WaybillInput
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			fail(w, r, &services.ValidationError{Field: "body", Reason: "invalid_json"}, back)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			fail(w, r, &services.ValidationError{Field: "form", Reason: "invalid"}, back)
			return
		}
		in = services.WaybillInput{
			LoadingAddress:   strings.TrimSpace(r.FormValue("loading_address")),
			UnloadingAddress: strings.TrimSpace(r.FormValue("unloading_address")),
			VehiclePlate:     strings.TrimSpace(r.FormValue("vehicle_plate")),
		}
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	wb, err := h.Waybills.CreateFromInvoice(uid, inv.ID, in)
	if err != nil {
		fail(w, r, err, back)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, wb)
		return
	}
	httpx.Redirect(w, r, fmt.Sprintf("/waybills/%d", wb.ID), "success", "Waybill "+wb.Number+" created from invoice "+inv.Number+".")
}

func (h *InvoiceHandler) load(w http.ResponseWriter, r *http.Request) (*models.Invoice, bool) {
	id, ok := pathID(r)
	if !ok {
		fail(w, r, services.ErrNotFound, "/invoices")
		return nil, false
	}
	inv, err := h.Svc.Get(id)
	if err != nil {
		fail(w, r, err, "/invoices")
		return nil, false
	}
	return inv, true
}
