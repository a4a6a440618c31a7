package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/somagec/quarrystock/internal/auth"
	"github.com/somagec/quarrystock/internal/backup"
	"github.com/somagec/quarrystock/internal/handlers"
	"github.com/somagec/quarrystock/internal/httpx"
	"github.com/somagec/quarrystock/internal/mailer"
	"github.com/somagec/quarrystock/internal/models"
	"github.com/somagec/quarrystock/internal/services"
)

// Options carries the wiring the router needs beyond the DB handle.
type Options struct {
	MediaRoot         string
	LowStockThreshold int
	SMTPHost          string
	SMTPPort          int
}

// New constructs the root http.Handler with all routes and middlewares
// applied. Form pages branch on method inside the handler, so they are
// registered by path only; action-only endpoints are method-scoped.
func New(db *gorm.DB, opts Options) http.Handler {
	mux := http.NewServeMux()

	// RequireAuth re-checks the session against a live user row.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	settingsSvc := services.NewSettingsService(db)
	catalogSvc := services.NewCatalogService(db)
	invoiceSvc := services.NewInvoiceService(db)
	waybillSvc := services.NewWaybillService(db)
	dashboardSvc := services.NewDashboardService(db, opts.LowStockThreshold)
	sender := mailer.New(opts.SMTPHost, opts.SMTPPort)
	backupRunner := backup.NewRunner(db, settingsSvc, sender, opts.MediaRoot)

	handlers.NewAuthHandler(db, settingsSvc).Register(mux)

	protect := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(h)
	}

	dh := handlers.NewDashboardHandler(dashboardSvc)
	mux.Handle("GET /{$}", protect(dh.Home))

	ch := handlers.NewClientHandler(db, catalogSvc)
	mux.Handle("GET /clients", protect(ch.List))
	mux.Handle("/clients/new", protect(ch.New))
	mux.Handle("/clients/{id}/edit", protect(ch.Edit))
	mux.Handle("POST /clients/{id}/delete", protect(ch.Delete))

	ph := handlers.NewProductHandler(db, catalogSvc)
	mux.Handle("GET /products", protect(ph.List))
	mux.Handle("/products/new", protect(ph.New))
	mux.Handle("/products/{id}/edit", protect(ph.Edit))
	mux.Handle("POST /products/{id}/delete", protect(ph.Delete))

	ih := handlers.NewInvoiceHandler(db, invoiceSvc, waybillSvc, settingsSvc, sender)
	mux.Handle("GET /invoices", protect(ih.List))
	mux.Handle("/invoices/new", protect(ih.New))
	mux.Handle("GET /invoices/{id}", protect(ih.Detail))
	mux.Handle("/invoices/{id}/edit", protect(ih.Edit))
	mux.Handle("POST /invoices/{id}/toggle-paid", protect(ih.TogglePaid))
	mux.Handle("POST /invoices/{id}/delete", protect(ih.Delete))
	mux.Handle("GET /invoices/{id}/print", protect(ih.Print))
	mux.Handle("GET /invoices/{id}/pdf", protect(ih.PDF))
	mux.Handle("POST /invoices/{id}/email", protect(ih.Email))
	mux.Handle("/invoices/{id}/waybill", protect(ih.CreateWaybill))

	wh := handlers.NewWaybillHandler(db, waybillSvc, settingsSvc, sender)
	mux.Handle("GET /waybills", protect(wh.List))
	mux.Handle("GET /waybills/{id}", protect(wh.Detail))
	mux.Handle("/waybills/{id}/edit", protect(wh.Edit))
	mux.Handle("GET /waybills/{id}/print", protect(wh.Print))
	mux.Handle("GET /waybills/{id}/pdf", protect(wh.PDF))
	mux.Handle("POST /waybills/{id}/email", protect(wh.Email))

	sh := handlers.NewSettingsHandler(settingsSvc, opts.MediaRoot)
	mux.Handle("/settings/company", protect(sh.Company))
	mux.Handle("/settings/email", protect(sh.Email))
	mux.Handle("/settings/backup", protect(sh.Backup))

	ah := handlers.NewAdminHandler(invoiceSvc, backupRunner)
	mux.Handle("POST /admin/invoices/reset-numbering", protect(ah.ResetNumbering))
	mux.Handle("POST /admin/backup/run", protect(ah.RunBackup))

	// Uploaded logos and other media.
	mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(opts.MediaRoot))))

	return auth.Middleware(withRecover(withLogging(mux)))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Any("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
