package i18n

import (
	"net/http"
	"time"
)

const (
	// CookieName carries the visitor's locale choice.
	CookieName = "NEXT_LOCALE"
	// CookieMaxAge keeps the choice for a year.
	CookieMaxAge = 365 * 24 * time.Hour
)

// SetLocaleCookie overwrites the locale cookie. Unsupported values store the default locale.
func SetLocaleCookie(w http.ResponseWriter, raw string, secure bool) Locale {
	locale, _ := Parse(raw)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    locale.String(),
		Path:     "/",
		MaxAge:   int(CookieMaxAge / time.Second),
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
	return locale
}

// CookieValue returns the raw locale cookie from the request, or an empty string.
func CookieValue(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
