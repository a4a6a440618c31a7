package handlers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/somagec/quarrystock/internal/httpx"
	"github.com/somagec/quarrystock/internal/models"
	"github.com/somagec/quarrystock/internal/services"
	"github.com/somagec/quarrystock/internal/validation"
	"github.com/somagec/quarrystock/internal/view"
)

type ClientHandler struct {
	DB      *gorm.DB
	Catalog *services.CatalogService
}

func NewClientHandler(db *gorm.DB, catalog *services.CatalogService) *ClientHandler {
	return &ClientHandler{DB: db, Catalog: catalog}
}

// List: GET /clients with optional name/phone search, paginated.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	qName := strings.TrimSpace(r.URL.Query().Get("q_name"))
	qPhone := strings.TrimSpace(r.URL.Query().Get("q_phone"))
	dbq := h.DB.Model(&models.Client{})
	if qName != "" {
		dbq = dbq.Where(`lower(name) LIKE ? ESCAPE '\'`, likePattern(qName))
	}
	if qPhone != "" {
		dbq = dbq.Where(`phone LIKE ? ESCAPE '\'`, likePattern(qPhone))
	}
	var total int64
	dbq.Count(&total)
	page, offset := pageOffset(r)
	var clients []models.Client
	if err := dbq.Order("name asc").Limit(pageSize).Offset(offset).Find(&clients).Error; err != nil {
		fail(w, r, err, "/clients")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": clients, "total": total, "page": page})
		return
	}
	data := map[string]any{
		"Clients": clients, "Total": total, "Page": page,
		"QName": qName, "QPhone": qPhone,
		"Flash": httpx.PopFlash(w, r),
	}
	_ = view.Render(w, r, "clients.html", data)
}

func clientFromForm(r *http.Request) models.Client {
	return models.Client{
		Name:    strings.TrimSpace(r.FormValue("name")),
		TaxID:   strings.TrimSpace(r.FormValue("tax_id")),
		Address: strings.TrimSpace(r.FormValue("address")),
		Phone:   strings.TrimSpace(r.FormValue("phone")),
		Email:   strings.TrimSpace(r.FormValue("email")),
	}
}

// New: GET shows the form, POST creates.
func (h *ClientHandler) New(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		_ = view.Render(w, r, "client_form.html", map[string]any{"Flash": httpx.PopFlash(w, r)})
		return
	}
	if err := r.ParseForm(); err != nil {
		fail(w, r, &services.ValidationError{Field: "form", Reason: "invalid"}, "/clients/new")
		return
	}
	client := clientFromForm(r)
	v := validation.Violations{}
	validation.Required("name", client.Name, v)
	if !v.Empty() {
		fail(w, r, &services.ValidationError{Field: "name", Reason: "required"}, "/clients/new")
		return
	}
	if err := h.DB.Create(&client).Error; err != nil {
		fail(w, r, err, "/clients/new")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, client)
		return
	}
	httpx.Redirect(w, r, "/clients", "success", "Client '"+client.Name+"' added.")
}

// Edit: GET shows the form, POST saves.
func (h *ClientHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		fail(w, r, services.ErrNotFound, "/clients")
		return
	}
	var client models.Client
	if err := h.DB.First(&client, id).Error; err != nil {
		fail(w, r, services.ErrNotFound, "/clients")
		return
	}
	if r.Method == http.MethodGet {
		_ = view.Render(w, r, "client_form.html", map[string]any{"Client": client, "Flash": httpx.PopFlash(w, r)})
		return
	}
	if err := r.ParseForm(); err != nil {
		fail(w, r, &services.ValidationError{Field: "form", Reason: "invalid"}, "/clients")
		return
	}
	updated := clientFromForm(r)
	if updated.Name == "" {
		fail(w, r, &services.ValidationError{Field: "name", Reason: "required"}, "/clients")
		return
	}
	updated.ID = client.ID
	updated.CreatedAt = client.CreatedAt
	if err := h.DB.Save(&updated).Error; err != nil {
		fail(w, r, err, "/clients")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, updated)
		return
	}
	httpx.Redirect(w, r, "/clients", "success", "Client '"+updated.Name+"' updated.")
}

// Delete: POST, guarded against referencing invoices.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		fail(w, r, services.ErrNotFound, "/clients")
		return
	}
	if err := h.Catalog.DeleteClient(id); err != nil {
		fail(w, r, err, "/clients")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
		return
	}
	httpx.Redirect(w, r, "/clients", "success", "Client deleted.")
}
