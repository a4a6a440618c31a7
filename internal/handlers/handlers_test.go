package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/somagec/quarrystock/internal/auth"
	"github.com/somagec/quarrystock/internal/models"
	"github.com/somagec/quarrystock/internal/services"
)

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Client{},
		&models.Invoice{}, &models.InvoiceItem{},
		&models.Waybill{}, &models.WaybillItem{},
		&models.CompanyProfile{}, &models.EmailSettings{}, &models.BackupSettings{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedHandlerFixtures(t *testing.T, db *gorm.DB) (models.User, models.Client, models.Product) {
	t.Helper()
	user := models.User{Email: "h@test", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	client := models.Client{Name: "Cliente Teste", Email: "cliente@test"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	product := models.Product{Name: "Brita", Grade: "8/16", Unit: models.UnitTon}
	product.Stock = decimalFromString(t, "100.00")
	product.UnitPrice = decimalFromString(t, "10.00")
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("product: %v", err)
	}
	return user, client, product
}

func jsonRequest(t *testing.T, method, target, body string, userID uint) *http.Request {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Accept", "application/json")
	if userID != 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	return req
}

func TestInvoiceCreateAndListJSON(t *testing.T) {
	db := setupHandlerDB(t)
	user, client, product := seedHandlerFixtures(t, db)
	h := NewInvoiceHandler(db, services.NewInvoiceService(db), services.NewWaybillService(db), services.NewSettingsService(db), nil)

	body := fmt.Sprintf(`{"client_id":%d,"tax_rate":"17.00","lines":[{"product_id":%d,"quantity":"30","unit_price":"10.00"}]}`, client.ID, product.ID)
	w := httptest.NewRecorder()
	h.New(w, jsonRequest(t, http.MethodPost, "/invoices/new", body, user.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("create expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var created models.Invoice
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasSuffix(created.Number, "-0001") {
		t.Fatalf("number = %s", created.Number)
	}

	listW := httptest.NewRecorder()
	h.List(listW, jsonRequest(t, http.MethodGet, "/invoices", "", user.ID))
	if listW.Code != http.StatusOK {
		t.Fatalf("list expected 200 got %d", listW.Code)
	}
	var list struct {
		Items []models.Invoice `json:"items"`
		Total int64            `json:"total"`
	}
	if err := json.Unmarshal(listW.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || list.Total != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}

	// detail carries the derived financials
	detailW := httptest.NewRecorder()
	detailReq := jsonRequest(t, http.MethodGet, fmt.Sprintf("/invoices/%d", created.ID), "", user.ID)
	detailReq.SetPathValue("id", fmt.Sprint(created.ID))
	h.Detail(detailW, detailReq)
	if detailW.Code != http.StatusOK {
		t.Fatalf("detail expected 200 got %d", detailW.Code)
	}
	var detail map[string]any
	_ = json.Unmarshal(detailW.Body.Bytes(), &detail)
	if detail["total"] != "351" {
		t.Fatalf("total = %v, want 351", detail["total"])
	}
}

func TestInvoiceCreateInsufficientStockConflict(t *testing.T) {
	db := setupHandlerDB(t)
	user, client, product := seedHandlerFixtures(t, db)
	h := NewInvoiceHandler(db, services.NewInvoiceService(db), services.NewWaybillService(db), services.NewSettingsService(db), nil)

	body := fmt.Sprintf(`{"client_id":%d,"lines":[{"product_id":%d,"quantity":"500","unit_price":"10.00"}]}`, client.ID, product.ID)
	w := httptest.NewRecorder()
	h.New(w, jsonRequest(t, http.MethodPost, "/invoices/new", body, user.ID))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "insufficient_stock" {
		t.Fatalf("error code = %v", resp["error"])
	}
	var p models.Product
	db.First(&p, product.ID)
	if !p.Stock.Equal(decimalFromString(t, "100.00")) {
		t.Fatalf("stock changed on rejected issue: %s", p.Stock)
	}
}

func TestProductCreateFormJSON(t *testing.T) {
	db := setupHandlerDB(t)
	_, _, _ = seedHandlerFixtures(t, db)
	h := NewProductHandler(db, services.NewCatalogService(db))

	form := url.Values{
		"name":       {"Areia"},
		"unit":       {models.UnitCubicMeter},
		"stock":      {"40.00"},
		"unit_price": {"7.50"},
	}
	req := httptest.NewRequest(http.MethodPost, "/products/new", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.New(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	// invalid unit is a 400 with violations
	bad := url.Values{"name": {"X"}, "unit": {"kg"}}
	badReq := httptest.NewRequest(http.MethodPost, "/products/new", strings.NewReader(bad.Encode()))
	badReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	badReq.Header.Set("Accept", "application/json")
	badW := httptest.NewRecorder()
	h.New(badW, badReq)
	if badW.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", badW.Code)
	}
}

func TestProductDeleteGuardedJSON(t *testing.T) {
	db := setupHandlerDB(t)
	user, client, product := seedHandlerFixtures(t, db)
	invoices := services.NewInvoiceService(db)
	if _, err := invoices.Issue(user.ID, services.IssueInput{
		ClientID: client.ID,
		Lines:    []services.LineInput{{ProductID: product.ID, Quantity: decimalFromString(t, "1"), UnitPrice: decimalFromString(t, "10.00")}},
	}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	h := NewProductHandler(db, services.NewCatalogService(db))

	req := jsonRequest(t, http.MethodPost, fmt.Sprintf("/products/%d/delete", product.ID), "", user.ID)
	req.SetPathValue("id", fmt.Sprint(product.ID))
	w := httptest.NewRecorder()
	h.Delete(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestClientCRUDJSON(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewClientHandler(db, services.NewCatalogService(db))

	form := url.Values{"name": {"Construtora Sul"}, "phone": {"912345678"}}
	req := httptest.NewRequest(http.MethodPost, "/clients/new", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.New(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var created models.Client
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	listW := httptest.NewRecorder()
	h.List(listW, jsonRequest(t, http.MethodGet, "/clients?q_name=construtora", "", 0))
	if listW.Code != http.StatusOK {
		t.Fatalf("list got %d", listW.Code)
	}
	var list struct {
		Items []models.Client `json:"items"`
	}
	_ = json.Unmarshal(listW.Body.Bytes(), &list)
	if len(list.Items) != 1 || list.Items[0].ID != created.ID {
		t.Fatalf("search missed the client: %+v", list)
	}

	delReq := jsonRequest(t, http.MethodPost, fmt.Sprintf("/clients/%d/delete", created.ID), "", 0)
	delReq.SetPathValue("id", fmt.Sprint(created.ID))
	delW := httptest.NewRecorder()
	h.Delete(delW, delReq)
	if delW.Code != http.StatusOK {
		t.Fatalf("delete got %d", delW.Code)
	}
}

func TestWaybillCreateFromInvoiceJSON(t *testing.T) {
	db := setupHandlerDB(t)
	user, client, product := seedHandlerFixtures(t, db)
	invoices := services.NewInvoiceService(db)
	inv, err := invoices.Issue(user.ID, services.IssueInput{
		ClientID: client.ID,
		Lines:    []services.LineInput{{ProductID: product.ID, Quantity: decimalFromString(t, "15"), UnitPrice: decimalFromString(t, "10.00")}},
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	h := NewInvoiceHandler(db, invoices, services.NewWaybillService(db), services.NewSettingsService(db), nil)

	body := `{"loading_address":"Pedreira","unloading_address":"Obra","vehicle_plate":"AA-00-BB"}`
	req := jsonRequest(t, http.MethodPost, fmt.Sprintf("/invoices/%d/waybill", inv.ID), body, user.ID)
	req.SetPathValue("id", fmt.Sprint(inv.ID))
	w := httptest.NewRecorder()
	h.CreateWaybill(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	// second creation conflicts
	again := jsonRequest(t, http.MethodPost, fmt.Sprintf("/invoices/%d/waybill", inv.ID), body, user.ID)
	again.SetPathValue("id", fmt.Sprint(inv.ID))
	againW := httptest.NewRecorder()
	h.CreateWaybill(againW, again)
	if againW.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", againW.Code)
	}
}

func TestClientSearchKeepsAccentsAndEscapesWildcards(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewClientHandler(db, services.NewCatalogService(db))
	for _, name := range []string{"João & Filhos", "100% Agregados", "1000 Pedras"} {
		if err := db.Create(&models.Client{Name: name}).Error; err != nil {
			t.Fatalf("client %s: %v", name, err)
		}
	}

	search := func(q string) []models.Client {
		t.Helper()
		w := httptest.NewRecorder()
		h.List(w, jsonRequest(t, http.MethodGet, "/clients?q_name="+url.QueryEscape(q), "", 0))
		if w.Code != http.StatusOK {
			t.Fatalf("list %q got %d", q, w.Code)
		}
		var list struct {
			Items []models.Client `json:"items"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &list)
		return list.Items
	}

	if got := search("joão"); len(got) != 1 || got[0].Name != "João & Filhos" {
		t.Fatalf("accented search = %+v, want João & Filhos", got)
	}
	// % matches literally, not as a wildcard
	if got := search("100%"); len(got) != 1 || got[0].Name != "100% Agregados" {
		t.Fatalf("%%-search = %+v, want only 100%% Agregados", got)
	}
	if got := search("pedra_"); len(got) != 0 {
		t.Fatalf("_-search = %+v, want no match", got)
	}
}
