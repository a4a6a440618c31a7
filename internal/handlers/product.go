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

type ProductHandler struct {
	DB      *gorm.DB
	Catalog *services.CatalogService
}

func NewProductHandler(db *gorm.DB, catalog *services.CatalogService) *ProductHandler {
	return &ProductHandler{DB: db, Catalog: catalog}
}

// List: GET /products, ordered by name, paginated.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	dbq := h.DB.Model(&models.Product{})
	if q != "" {
		dbq = dbq.Where(`lower(name) LIKE ? ESCAPE '\' OR lower(grade) LIKE ? ESCAPE '\'`, likePattern(q), likePattern(q))
	}
	var total int64
	dbq.Count(&total)
	page, offset := pageOffset(r)
	var products []models.Product
	if err := dbq.Order("name asc").Limit(pageSize).Offset(offset).Find(&products).Error; err != nil {
		fail(w, r, err, "/products")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": products, "total": total, "page": page})
		return
	}
	data := map[string]any{
		"Products": products, "Total": total, "Page": page, "Query": q,
		"Units": models.Units,
		"Flash": httpx.PopFlash(w, r),
	}
	_ = view.Render(w, r, "products.html", data)
}

func (h *ProductHandler) productFromForm(r *http.Request) (models.Product, validation.Violations) {
	p := models.Product{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Grade:       strings.TrimSpace(r.FormValue("grade")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Unit:        strings.TrimSpace(r.FormValue("unit")),
		Stock:       formDecimal(r, "stock", "0.00"),
		UnitPrice:   formDecimal(r, "unit_price", "0.00"),
	}
	if p.Unit == "" {
		p.Unit = models.UnitTon
	}
	v := validation.Violations{}
	validation.Required("name", p.Name, v)
	validation.OneOf("unit", p.Unit, models.Units, v)
	validation.NonNegativeDecimal("stock", p.Stock, v)
	validation.NonNegativeDecimal("unit_price", p.UnitPrice, v)
	return p, v
}

// New: GET shows the form, POST creates.
func (h *ProductHandler) New(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		_ = view.Render(w, r, "product_form.html", map[string]any{"Units": models.Units, "Flash": httpx.PopFlash(w, r)})
		return
	}
	if err := r.ParseForm(); err != nil {
		fail(w, r, &services.ValidationError{Field: "form", Reason: "invalid"}, "/products/new")
		return
	}
	product, v := h.productFromForm(r)
	if !v.Empty() {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		httpx.Redirect(w, r, "/products/new", "error", "Invalid product data.")
		return
	}
	if err := h.DB.Create(&product).Error; err != nil {
		fail(w, r, err, "/products/new")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, product)
		return
	}
	httpx.Redirect(w, r, "/products", "success", "Product '"+product.Name+"' added.")
}

// Edit: GET shows the form, POST saves.
func (h *ProductHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		fail(w, r, services.ErrNotFound, "/products")
		return
	}
	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		fail(w, r, services.ErrNotFound, "/products")
		return
	}
	if r.Method == http.MethodGet {
		_ = view.Render(w, r, "product_form.html", map[string]any{"Product": product, "Units": models.Units, "Flash": httpx.PopFlash(w, r)})
		return
	}
	if err := r.ParseForm(); err != nil {
		fail(w, r, &services.ValidationError{Field: "form", Reason: "invalid"}, "/products")
		return
	}
	updated, v := h.productFromForm(r)
	if !v.Empty() {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		httpx.Redirect(w, r, "/products", "error", "Invalid product data.")
		return
	}
	updated.ID = product.ID
	updated.CreatedAt = product.CreatedAt
	if err := h.DB.Save(&updated).Error; err != nil {
		fail(w, r, err, "/products")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, updated)
		return
	}
	httpx.Redirect(w, r, "/products", "success", "Product '"+updated.Name+"' updated.")
}

// Delete: POST, blocked while line items reference the product.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		fail(w, r, services.ErrNotFound, "/products")
		return
	}
	if err := h.Catalog.DeleteProduct(id); err != nil {
		fail(w, r, err, "/products")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
		return
	}
	httpx.Redirect(w, r, "/products", "success", "Product deleted.")
}
