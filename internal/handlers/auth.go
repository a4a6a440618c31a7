package handlers

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/somagec/quarrystock/internal/auth"
	"github.com/somagec/quarrystock/internal/httpx"
	"github.com/somagec/quarrystock/internal/models"
	"github.com/somagec/quarrystock/internal/services"
	"github.com/somagec/quarrystock/internal/view"
)

type AuthHandler struct {
	DB       *gorm.DB
	Settings *services.SettingsService
}

func NewAuthHandler(db *gorm.DB, settings *services.SettingsService) *AuthHandler {
	return &AuthHandler{DB: db, Settings: settings}
}

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /login", h.loginForm)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /logout", h.logout)
}

// loginForm renders the login page with the company profile for
// branding.
func (h *AuthHandler) loginForm(w http.ResponseWriter, r *http.Request) {
	profile, _ := h.Settings.CompanyProfile()
	data := map[string]any{"Company": profile, "Flash": httpx.PopFlash(w, r)}
	if err := view.Render(w, r, "login.html", data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Redirect(w, r, "/login", "error", "Invalid form submission.")
		return
	}
	emailAddr := strings.TrimSpace(r.FormValue("email"))
	pass := r.FormValue("password")
	var user models.User
	if err := h.DB.Where("email = ?", emailAddr).First(&user).Error; err != nil {
		httpx.Redirect(w, r, "/login", "error", "Invalid email or password.")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(pass)) != nil {
		httpx.Redirect(w, r, "/login", "error", "Invalid email or password.")
		return
	}
	auth.CreateSession(w, user.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
