package web

// errors.go maps internal errors to HTTP responses. Technical detail is
// logged server-side with the request ID; clients get a short Slovak message
// and never see store internals or stack traces.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pista1997/CertReg/internal/importer"
	"github.com/pista1997/CertReg/internal/logging"
	"github.com/pista1997/CertReg/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// respondError maps an error to its status and client message, logging the
// technical error first.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classifyError(err)

	logger := logging.FromContext(r.Context())
	logger.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
	)

	writeError(w, status, message)
}

// classifyError resolves the error taxonomy to a status code and a safe
// user-facing message.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Certifikát nebol najdený"
	case errors.Is(err, importer.ErrFileTooLarge):
		return http.StatusBadRequest, "Súbor je príliš veľký. Maximum: 5MB"
	case errors.Is(err, importer.ErrUnsupportedFormat):
		return http.StatusBadRequest, "Nepodporovaný formát súboru. Podporované sú: .xlsx, .xls, .csv"
	case errors.Is(err, importer.ErrEmptyFile):
		return http.StatusBadRequest, "Súbor je prázdny alebo neobsahuje dáta"
	case errors.Is(err, importer.ErrTooManyRows):
		return http.StatusBadRequest, "Príliš veľa riadkov. Maximum: 1000"
	case errors.Is(err, importer.ErrParseFailure):
		return http.StatusBadRequest, "Chyba pri parsovaní súboru"
	case errors.Is(err, importer.ErrDecodeTimeout):
		return http.StatusRequestTimeout, "Spracovanie súboru prekročilo časový limit"
	case errors.Is(err, importer.ErrUnsafeContent):
		return http.StatusBadRequest, "Nebezpečný obsah"
	default:
		return http.StatusInternalServerError, "Interná chyba servera"
	}
}
