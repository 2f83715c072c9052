package server

import (
	"errors"
	"net/http"
)

var errNoAdminSession = errors.New("no valid admin session")

const adminCookieName = "admin_session"

// adminFromRequest reads the admin_session cookie and looks up the admin session.
func adminFromRequest(r *http.Request, admin AdminStore) (adminSession, error) {
	cookie, err := r.Cookie(adminCookieName)
	if err != nil || cookie.Value == "" {
		return adminSession{}, errNoAdminSession
	}
	return admin.AdminFromSession(r.Context(), cookie.Value)
}
