package session

import (
	"net/http"
	"net/url"
)

// CookieName is the name of the session cookie.
const CookieName = "sessionId"

// WriteCookie sets the session cookie on the response.
func WriteCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
}

// ClearCookie expires the session cookie (Max-Age=0).
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// TokenFromRequest returns the URL-unescaped session cookie value, or "" when
// the cookie is missing or its escaping is invalid.
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	token, err := url.PathUnescape(c.Value)
	if err != nil {
		return ""
	}
	return token
}
