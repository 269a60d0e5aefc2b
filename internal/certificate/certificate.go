// Package certificate defines the certificate registry's domain model and the
// field-level rules shared by manual entry and batch import.
package certificate

import (
	"regexp"
	"time"
)

// Field limits enforced on every path that produces a Certificate.
const (
	MaxNameLength  = 500
	MaxEmailLength = 255
)

// emailPattern is the simple local@domain.tld shape used by the registry.
// It intentionally does not attempt full RFC 5322 validation.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Certificate is a tracked certificate entry. Thumbprint distinguishes rows
// created by automated import (non-nil) from manually entered ones (nil).
type Certificate struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	ValidFrom        *time.Time `json:"validFrom,omitempty"`
	ExpiryDate       time.Time  `json:"expiryDate"`
	EmailAddress     *string    `json:"emailAddress"`
	Thumbprint       *string    `json:"thumbprint,omitempty"`
	NotificationSent bool       `json:"notificationSent"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// ValidEmail reports whether s matches the registry's email shape.
// Length is checked separately against MaxEmailLength.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// DatesOrdered reports whether validFrom <= expiry. A nil validFrom is
// always ordered.
func DatesOrdered(validFrom *time.Time, expiry time.Time) bool {
	if validFrom == nil {
		return true
	}
	return !validFrom.After(expiry)
}
