package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/drawcast/internal/drawday"
)

// AdminLoginRequest is the request body for POST /api/admin/login.
type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminMeResponse is the response for GET /api/admin/me.
type AdminMeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func handleAdminLogin(admin AdminStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		adminID, passwordHash, err := admin.AdminByEmail(r.Context(), req.Email)
		if errors.Is(err, drawday.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			logger.Error("admin lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		sessionID, err := admin.CreateAdminSession(r.Context(), adminID)
		if err != nil {
			logger.Error("creating admin session failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     adminCookieName,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   int(7 * 24 * time.Hour / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, AdminMeResponse{
			ID:    adminID,
			Email: req.Email,
		})
	}
}

func handleAdminMe(admin AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := adminFromRequest(r, admin)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		writeJSON(w, http.StatusOK, AdminMeResponse{
			ID:    sess.AdminID,
			Email: sess.Email,
		})
	}
}

func handleAdminLogout(admin AdminStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess, err := adminFromRequest(r, admin); err == nil {
			if err := admin.DeleteAdminSession(r.Context(), sess.SessionID); err != nil {
				logger.Warn("deleting admin session failed", "error", err)
			} else {
				logger.Info("admin logged out", "admin", sess.Email)
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:     adminCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
