package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/jmcleod/gatehouse/session"
)

type contextKey int

const (
	identityKey contextKey = iota
)

// RequireSession rejects requests without a live session cookie with a
// uniform 401 before any body is read, counting the rejection against flow.
// On success the identity is stored on the request context.
func (a *API) RequireSession(flow string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.auth.Authenticate(session.TokenFromRequest(r))
			if err != nil {
				a.metrics.observe(flow, err)
				a.mapError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
		})
	}
}

// RequirePage redirects browsers without a live session to location.
func (a *API) RequirePage(location string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := a.auth.Authenticate(session.TokenFromRequest(r)); err != nil {
				http.Redirect(w, r, location, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identityFromContext(ctx context.Context) session.Identity {
	id, _ := ctx.Value(identityKey).(session.Identity)
	return id
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
