package handlers

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/somagec/quarrystock/internal/httpx"
	"github.com/somagec/quarrystock/internal/models"
	"github.com/somagec/quarrystock/internal/services"
	"github.com/somagec/quarrystock/internal/view"
)

type SettingsHandler struct {
	Svc       *services.SettingsService
	MediaRoot string
}

func NewSettingsHandler(svc *services.SettingsService, mediaRoot string) *SettingsHandler {
	return &SettingsHandler{Svc: svc, MediaRoot: mediaRoot}
}

// Company: GET shows the profile form, POST saves the singleton row
// (created on first save, updated afterwards).
func (h *SettingsHandler) Company(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		profile, err := h.Svc.CompanyProfile()
		if err != nil {
			fail(w, r, err, "/")
			return
		}
		_ = view.Render(w, r, "settings_company.html", map[string]any{"Company": profile, "Flash": httpx.PopFlash(w, r)})
		return
	}
	// multipart so the logo upload can ride along
	if err := r.ParseMultipartForm(5 << 20); err != nil {
		if err := r.ParseForm(); err != nil {
			fail(w, r, &services.ValidationError{Field: "form", Reason: "invalid"}, "/settings/company")
			return
		}
	}
	p := models.CompanyProfile{
		CompanyName:    strings.TrimSpace(r.FormValue("company_name")),
		Address:        strings.TrimSpace(r.FormValue("address")),
		TaxID:          strings.TrimSpace(r.FormValue("tax_id")),
		Phone:          strings.TrimSpace(r.FormValue("phone")),
		Email:          strings.TrimSpace(r.FormValue("email")),
		PaymentDetails: strings.TrimSpace(r.FormValue("payment_details")),
	}
	if p.CompanyName == "" {
		fail(w, r, &services.ValidationError{Field: "company_name", Reason: "required"}, "/settings/company")
		return
	}
	if existing, _ := h.Svc.CompanyProfile(); existing != nil {
		p.LogoPath = existing.LogoPath
	}
	if path, err := h.saveLogo(r); err == nil && path != "" {
		p.LogoPath = path
	}
	if err := h.Svc.SaveCompanyProfile(&p); err != nil {
		fail(w, r, err, "/settings/company")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, p)
		return
	}
	httpx.Redirect(w, r, "/settings/company", "success", "Company profile saved.")
}

// saveLogo stores an uploaded logo under MEDIA_ROOT/logos.
func (h *SettingsHandler) saveLogo(r *http.Request) (string, error) {
	file, header, err := r.FormFile("logo")
	if err != nil {
		return "", nil // no upload
	}
	defer file.Close()
	dir := filepath.Join(h.MediaRoot, "logos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := filepath.Base(header.Filename)
	dest := filepath.Join(dir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		return "", err
	}
	return filepath.ToSlash(filepath.Join("logos", name)), nil
}

// Email: GET/POST the sender credentials singleton.
func (h *SettingsHandler) Email(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		settings, err := h.Svc.EmailSettings()
		if err != nil {
			fail(w, r, err, "/")
			return
		}
		_ = view.Render(w, r, "settings_email.html", map[string]any{"Settings": settings, "Flash": httpx.PopFlash(w, r)})
		return
	}
	if err := r.ParseForm(); err != nil {
		fail(w, r, &services.ValidationError{Field: "form", Reason: "invalid"}, "/settings/email")
		return
	}
	e := models.EmailSettings{
		SenderEmail:    strings.TrimSpace(r.FormValue("sender_email")),
		SenderPassword: r.FormValue("sender_password"),
	}
	if e.SenderEmail == "" || e.SenderPassword == "" {
		fail(w, r, &services.ValidationError{Field: "sender", Reason: "required"}, "/settings/email")
		return
	}
	if err := h.Svc.SaveEmailSettings(&e); err != nil {
		fail(w, r, err, "/settings/email")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"sender_email": e.SenderEmail})
		return
	}
	httpx.Redirect(w, r, "/settings/email", "success", "Email settings saved.")
}

// Backup: GET/POST the schedule and recipient.
func (h *SettingsHandler) Backup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		settings, err := h.Svc.BackupSettings()
		if err != nil {
			fail(w, r, err, "/")
			return
		}
		data := map[string]any{
			"Settings":  settings,
			"Schedules": []string{models.ScheduleManual, models.ScheduleDaily, models.ScheduleWeekly},
			"Flash":     httpx.PopFlash(w, r),
		}
		_ = view.Render(w, r, "settings_backup.html", data)
		return
	}
	if err := r.ParseForm(); err != nil {
		fail(w, r, &services.ValidationError{Field: "form", Reason: "invalid"}, "/settings/backup")
		return
	}
	settings, err := h.Svc.SaveBackupSettings(strings.TrimSpace(r.FormValue("schedule")), strings.TrimSpace(r.FormValue("recipient_email")))
	if err != nil {
		fail(w, r, err, "/settings/backup")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, settings)
		return
	}
	httpx.Redirect(w, r, "/settings/backup", "success", "Backup settings saved.")
}
