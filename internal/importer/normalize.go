package importer

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pista1997/CertReg/internal/certificate"
)

// Record is one decoded data row, with values keyed by the file's own
// headers. Row is the 1-based row number in the source file, header
// included, so diagnostics match what the user sees in a spreadsheet.
type Record struct {
	Row     int
	Headers []string
	Fields  map[string]string
}

// RowError is a per-row rejection. It is response data, never an exception:
// one bad row must not abort the rows after it.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// Row-level error messages, kept in the operators' language like the rest of
// the user-facing strings in this system.
const (
	msgUnsafeContent = "Nebezpečný obsah"
	msgNameRequired  = "Názov je povinný"
	msgNameInvalid   = "Neplatný názov"
	msgEmailInvalid  = "Neplatný email"
	msgDateInvalid   = "Neplatný dátum"
	msgDateOrder     = "Dátum začiatku platnosti je po dátume expirácie"
	msgThumbRequired = "Thumbprint je povinný"
	msgInsertFailed  = "Chyba pri vytváraní certifikátu"
)

// NormalizeRow runs the full per-row pipeline: column resolution, field
// extraction and sanitization, and the ordered validation checks. The first
// failing check rejects the row; a nil RowError means the returned
// Certificate is fully resolved and ready to persist.
func NormalizeRow(rec Record, profile Profile) (certificate.Certificate, *RowError) {
	reject := func(msg string) (certificate.Certificate, *RowError) {
		return certificate.Certificate{}, &RowError{Row: rec.Row, Error: msg}
	}

	// 1. Required columns present.
	values := make(map[Field]string)
	var missing []string
	for _, spec := range profile.specs() {
		header, ok := ResolveColumn(rec.Headers, spec.candidates)
		if !ok {
			if spec.required {
				missing = append(missing, spec.label)
			}
			continue
		}
		clean, err := SanitizeText(rec.Fields[header])
		if err != nil {
			return reject(msgUnsafeContent)
		}
		values[spec.field] = clean
	}
	if len(missing) > 0 {
		return reject(fmt.Sprintf("Chýbajúce stĺpce (%s)", strings.Join(missing, ", ")))
	}

	// 2. Name.
	name := values[FieldName]
	if name == "" {
		return reject(msgNameRequired)
	}
	if utf8.RuneCountInString(name) > certificate.MaxNameLength {
		return reject(msgNameInvalid)
	}

	// 3. Email (optional; the EMPTY sentinel means "no email").
	var email *string
	if raw := values[FieldEmail]; raw != "" && !isEmailSentinel(raw) {
		if utf8.RuneCountInString(raw) > certificate.MaxEmailLength || !certificate.ValidEmail(raw) {
			return reject(msgEmailInvalid)
		}
		email = &raw
	}

	// 4. Dates.
	expiry, ok := ParseDate(values[FieldExpiry])
	if !ok {
		return reject(msgDateInvalid)
	}
	var validFrom *time.Time
	if raw, present := values[FieldValidFrom]; present && raw != "" {
		t, ok := ParseDate(raw)
		if !ok {
			return reject(msgDateInvalid)
		}
		validFrom = &t
	} else if profile == ProfileAutomated {
		// Column resolved (it is required above) but the cell is empty.
		return reject(msgDateInvalid)
	}

	// 5. Cross-field ordering.
	if !certificate.DatesOrdered(validFrom, expiry) {
		return reject(msgDateOrder)
	}

	// 6. Thumbprint.
	var thumbprint *string
	if raw := values[FieldThumbprint]; raw != "" {
		thumbprint = &raw
	} else if profile == ProfileAutomated {
		return reject(msgThumbRequired)
	}

	return certificate.Certificate{
		Name:         name,
		ValidFrom:    validFrom,
		ExpiryDate:   expiry,
		EmailAddress: email,
		Thumbprint:   thumbprint,
	}, nil
}
