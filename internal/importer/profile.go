package importer

import (
	"fmt"
	"strings"
)

// Field is a logical certificate field extracted from an imported row.
type Field string

const (
	FieldName       Field = "name"
	FieldValidFrom  Field = "validFrom"
	FieldExpiry     Field = "expiryDate"
	FieldEmail      Field = "emailAddress"
	FieldThumbprint Field = "thumbprint"
)

// Profile selects the column-mapping and required-field rule set for an
// import. The two profiles mirror the two deployment generations: the legacy
// manual spreadsheets with local-language headers, and the automated export
// with fixed CN/Valid_From/Valid_To/thumbprint headers.
type Profile int

const (
	ProfileManual Profile = iota
	ProfileAutomated
)

// ParseProfile converts a request-supplied profile name.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual":
		return ProfileManual, nil
	case "automated":
		return ProfileAutomated, nil
	default:
		return ProfileManual, fmt.Errorf("unknown import profile %q", s)
	}
}

// String returns the profile's wire name.
func (p Profile) String() string {
	if p == ProfileAutomated {
		return "automated"
	}
	return "manual"
}

// fieldSpec binds a logical field to its accepted column headers, in
// priority order, and records whether the column must be present.
type fieldSpec struct {
	field      Field
	candidates []string
	required   bool
	// label is the header name shown in missing-column errors.
	label string
}

// specs returns the ordered field specifications for the profile.
// Name and expiry are required in both profiles; validFrom and thumbprint
// only in the automated one. Email is always optional.
func (p Profile) specs() []fieldSpec {
	if p == ProfileAutomated {
		return []fieldSpec{
			{field: FieldName, candidates: []string{"CN"}, required: true, label: "CN"},
			{field: FieldValidFrom, candidates: []string{"Valid_From"}, required: true, label: "Valid_From"},
			{field: FieldExpiry, candidates: []string{"Valid_To"}, required: true, label: "Valid_To"},
			{field: FieldEmail, candidates: []string{"email", "Email"}, label: "email"},
			{field: FieldThumbprint, candidates: []string{"thumbprint", "Thumbprint"}, required: true, label: "thumbprint"},
		}
	}
	return []fieldSpec{
		{field: FieldName, candidates: []string{"názov", "name", "nazov"}, required: true, label: "názov"},
		{field: FieldValidFrom, candidates: []string{"platné_od", "platne_od", "valid_from", "validFrom"}, label: "platné_od"},
		{field: FieldExpiry, candidates: []string{"dátum_platnosti", "datum_platnosti", "expiry_date", "expiryDate", "dátum platnosti", "datum platnosti"}, required: true, label: "dátum_platnosti"},
		{field: FieldEmail, candidates: []string{"email", "email_address", "emailAddress"}, label: "email"},
		{field: FieldThumbprint, candidates: []string{"thumbprint"}, label: "thumbprint"},
	}
}
