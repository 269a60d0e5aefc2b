package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/pista1997/CertReg/internal/certificate"
	"github.com/pista1997/CertReg/internal/importer"
	"github.com/pista1997/CertReg/internal/store"
)

// certificateRequest is the JSON body for create and update. Dates accept
// the same textual encodings as the import pipeline.
type certificateRequest struct {
	Name         string `json:"name"`
	ValidFrom    string `json:"validFrom"`
	ExpiryDate   string `json:"expiryDate"`
	EmailAddress string `json:"emailAddress"`
}

// handleListCertificates returns all certificates, soonest expiry first.
func (s *Server) handleListCertificates(w http.ResponseWriter, r *http.Request) {
	certs, err := s.store.ListCertificates(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"certificates": certs})
}

// handleCreateCertificate creates a manually entered certificate. The
// create contract requires name, expiry date and email; validFrom stays
// optional.
func (s *Server) handleCreateCertificate(w http.ResponseWriter, r *http.Request) {
	var req certificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Neplatné telo požiadavky")
		return
	}

	if strings.TrimSpace(req.Name) == "" || req.ExpiryDate == "" || strings.TrimSpace(req.EmailAddress) == "" {
		writeError(w, http.StatusBadRequest, "Všetky polia sú povinné")
		return
	}

	params, ok := s.buildParams(w, req, true)
	if !ok {
		return
	}

	cert, err := s.store.CreateCertificate(r.Context(), params)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Certifikát bol úspešne vytvorený",
		"certificate": cert,
	})
}

// handleUpdateCertificate replaces the mutable fields. The update contract
// requires name and expiry date only; email may be cleared. The store
// resets the notification flag so a pushed-out expiry re-enters
// notification scope.
func (s *Server) handleUpdateCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Neplatné ID certifikátu")
		return
	}

	var req certificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Neplatné telo požiadavky")
		return
	}

	if strings.TrimSpace(req.Name) == "" || req.ExpiryDate == "" {
		writeError(w, http.StatusBadRequest, "Názov a dátum expirácie sú povinné")
		return
	}

	params, ok := s.buildParams(w, req, false)
	if !ok {
		return
	}

	cert, err := s.store.UpdateCertificate(r.Context(), id, params)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Certifikát bol úspešne aktualizovaný",
		"certificate": cert,
	})
}

// handleDeleteCertificate removes one certificate.
func (s *Server) handleDeleteCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Neplatné ID certifikátu")
		return
	}

	if err := s.store.DeleteCertificate(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Certifikát bol úspešne zmazaný"})
}

// buildParams validates the shared field rules and assembles store params.
// emailRequired distinguishes the create contract from the update one.
// It writes the error response itself and reports ok=false on failure.
func (s *Server) buildParams(w http.ResponseWriter, req certificateRequest, emailRequired bool) (store.CertificateParams, bool) {
	fail := func(msg string) (store.CertificateParams, bool) {
		writeError(w, http.StatusBadRequest, msg)
		return store.CertificateParams{}, false
	}

	name := strings.TrimSpace(req.Name)
	if utf8.RuneCountInString(name) > certificate.MaxNameLength {
		return fail("Neplatný názov")
	}

	expiry, ok := importer.ParseDate(req.ExpiryDate)
	if !ok {
		return fail("Neplatný dátum expirácie")
	}

	var validFrom *time.Time
	if strings.TrimSpace(req.ValidFrom) != "" {
		t, ok := importer.ParseDate(req.ValidFrom)
		if !ok {
			return fail("Neplatný dátum začiatku platnosti")
		}
		validFrom = &t
	}
	if !certificate.DatesOrdered(validFrom, expiry) {
		return fail("Dátum začiatku platnosti je po dátume expirácie")
	}

	var email *string
	if e := strings.TrimSpace(req.EmailAddress); e != "" {
		if utf8.RuneCountInString(e) > certificate.MaxEmailLength || !certificate.ValidEmail(e) {
			return fail("Neplatná emailová adresa")
		}
		email = &e
	} else if emailRequired {
		return fail("Neplatná emailová adresa")
	}

	return store.CertificateParams{
		Name:         name,
		ValidFrom:    validFrom,
		ExpiryDate:   expiry,
		EmailAddress: email,
	}, true
}
