package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pista1997/CertReg/internal/auth"
	"github.com/pista1997/CertReg/internal/logging"
	"github.com/pista1997/CertReg/internal/store"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// requireSession gates mutating endpoints behind a valid session cookie.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(s.cfg.Auth.CookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Neautorizovaný prístup. Musíte byť prihlásený.")
			return
		}
		if _, ok := s.sessions.Get(cookie.Value); !ok {
			writeError(w, http.StatusUnauthorized, "Neautorizovaný prístup. Musíte byť prihlásený.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleLogin verifies credentials and opens a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Neplatné telo požiadavky")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Zadajte používateľské meno a heslo")
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !auth.CheckPassword(user.PasswordHash, req.Password)) {
		writeError(w, http.StatusUnauthorized, "Nesprávne používateľské meno alebo heslo")
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	token := s.sessions.Create(user.Username)
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.Auth.SessionTTL.Seconds()),
	})

	logging.FromContext(r.Context()).Info("user logged in", "username", user.Username)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Prihlásenie úspešné"})
}

// handleLogout ends the session, if any.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(s.cfg.Auth.CookieName); err == nil {
		s.sessions.Delete(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Odhlásenie úspešné"})
}

// handleRegister creates a user account. Meant for initial setup; the UI
// does not expose it.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Neplatné telo požiadavky")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Používateľské meno a heslo sú povinné")
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		writeError(w, http.StatusBadRequest, "Heslo musí mať aspoň 6 znakov")
		return
	}

	if _, err := s.store.GetUserByUsername(r.Context(), req.Username); err == nil {
		writeError(w, http.StatusBadRequest, "Používateľské meno už existuje")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		s.respondError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	user, err := s.store.CreateUser(r.Context(), req.Username, hash)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Používateľ bol úspešne vytvorený",
		"username": user.Username,
	})
}
