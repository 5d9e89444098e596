package api

import (
	"errors"
	"net/http"

	"github.com/jmcleod/gatehouse/auth"
)

// Profile handles GET /profile.
func (a *API) Profile(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	a.metrics.observe(flowProfile, nil)
	writeJSON(w, http.StatusOK, Response{Success: true, User: &id})
}

// UpdateProfile handles POST /update-profile.
func (a *API) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(w, r)
	if err != nil {
		a.fail(w, r, flowUpdateProfile, err)
		return
	}

	id, err := a.auth.UpdateProfile(r.Context(), identityFromContext(r.Context()), form.Get("name"))
	if err != nil {
		a.fail(w, r, flowUpdateProfile, err)
		return
	}

	a.metrics.observe(flowUpdateProfile, nil)
	a.audit.logEvent(AuditProfileUpdated, r, id.ID)
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Profile updated successfully", User: &id})
}

// ChangePassword handles POST /change-password.
func (a *API) ChangePassword(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(w, r)
	if err != nil {
		a.fail(w, r, flowChangePassword, err)
		return
	}

	id := identityFromContext(r.Context())
	err = a.auth.ChangePassword(r.Context(), id, form.Get("currentPassword"), form.Get("newPassword"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			a.audit.logFailure(AuditPasswordChangeFailure, r, "current password mismatch")
		}
		a.fail(w, r, flowChangePassword, err)
		return
	}

	a.metrics.observe(flowChangePassword, nil)
	a.audit.logEvent(AuditPasswordChanged, r, id.ID)
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Password changed successfully"})
}
