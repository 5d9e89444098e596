package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jmcleod/gatehouse/auth"
	"github.com/jmcleod/gatehouse/session"
)

// Register handles POST /register.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(w, r)
	if err != nil {
		a.fail(w, r, flowRegister, err)
		return
	}

	user, err := a.auth.Register(r.Context(), auth.RegisterInput{
		Name:     form.Get("name"),
		Email:    form.Get("email"),
		Password: form.Get("password"),
	})
	if err != nil {
		if errors.Is(err, auth.ErrConflict) {
			a.audit.logFailure(AuditRegisterConflict, r, "email already registered")
		}
		a.fail(w, r, flowRegister, err)
		return
	}

	a.metrics.observe(flowRegister, nil)
	a.audit.logEvent(AuditRegister, r, user.ID)
	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "User registered successfully"})
}

// Login handles POST /login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(w, r)
	if err != nil {
		a.fail(w, r, flowLogin, err)
		return
	}

	id, token, err := a.auth.Login(r.Context(), form.Get("email"), form.Get("password"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			a.audit.logFailure(AuditLoginFailure, r, "invalid credentials")
		}
		a.fail(w, r, flowLogin, err)
		return
	}

	session.WriteCookie(w, token)
	a.metrics.observe(flowLogin, nil)
	a.audit.logEvent(AuditLoginSuccess, r, id.ID)
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Login successful", User: &id})
}

// Logout handles POST /logout. It succeeds with or without a session.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	token := session.TokenFromRequest(r)
	if id, err := a.auth.Authenticate(token); err == nil {
		a.audit.logEvent(AuditLogout, r, id.ID)
	} else {
		a.audit.log(AuditLogout, r, slog.Bool("had_session", false))
	}
	a.auth.Logout(token)

	a.metrics.observe(flowLogout, nil)
	session.ClearCookie(w)
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Logged out successfully"})
}

// fail records the failed flow and writes the error response.
func (a *API) fail(w http.ResponseWriter, r *http.Request, flow string, err error) {
	a.metrics.observe(flow, err)
	a.mapError(w, r, err)
}
