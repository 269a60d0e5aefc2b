package web

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/pista1997/CertReg/internal/importer"
	"github.com/pista1997/CertReg/internal/logging"
)

// handleImport accepts a multipart upload (field "file") and runs the
// import pipeline. Row failures come back inside the 200 summary; only
// file-level guard violations fail the request.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	// Allow some slack for the multipart framing; the importer enforces the
	// exact byte cap on the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, r, importer.ErrFileTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "Neplatné telo požiadavky")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Súbor nebol nahraný")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	profile := s.defaultProfile()
	if v := r.FormValue("profile"); v != "" {
		profile, err = importer.ParseProfile(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Neznámy profil importu")
			return
		}
	}

	logger := logging.FromContext(r.Context())
	logger.Info("import started",
		"file", header.Filename,
		"size", header.Size,
		"profile", profile.String(),
	)

	summary, err := s.importer.Import(r.Context(), data, header.Header.Get("Content-Type"), header.Filename, profile)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logger.Info("import finished",
		"imported", summary.Imported,
		"errors", summary.Errors,
	)
	writeJSON(w, http.StatusOK, summary)
}

// handleCheckExpiry triggers one notification sweep. The schedule lives
// outside this process; anything that can call the endpoint can drive it.
func (s *Server) handleCheckExpiry(w http.ResponseWriter, r *http.Request) {
	report, err := s.sweeper.Run(r.Context(), time.Now())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) defaultProfile() importer.Profile {
	p, err := importer.ParseProfile(s.cfg.Import.DefaultProfile)
	if err != nil {
		return importer.ProfileManual
	}
	return p
}
