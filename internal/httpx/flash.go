package httpx

import (
	"net/http"
	"net/url"
)

// Flash messages carried across a redirect in a short-lived cookie.
// The next rendered page pops the message and shows it once.

const flashCookieName = "flash"

type Flash struct {
	Kind    string // success | error | info
	Message string
}

// SetFlash stores a one-shot message for the next page load.
func SetFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(kind + "|" + message),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

// PopFlash returns the pending message, if any, and clears the cookie.
func PopFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Value: "", Path: "/", MaxAge: -1})
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	kind, msg := "info", raw
	for i := 0; i < len(raw); i++ {
		if raw[i] == '|' {
			kind, msg = raw[:i], raw[i+1:]
			break
		}
	}
	return &Flash{Kind: kind, Message: msg}
}

// Redirect sets a flash message and redirects (Post/Redirect/Get).
func Redirect(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	SetFlash(w, kind, message)
	http.Redirect(w, r, target, http.StatusSeeOther)
}
