package importer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// spreadsheetEpoch is the day-zero of the legacy spreadsheet date system.
// Serial day-counts convert as epoch + serial days (in milliseconds), which
// reproduces the historical 1900 leap-year quirk. Do not "fix" it: existing
// exports depend on the same mapping.
var spreadsheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxDateSerial is 9999-12-31 in the serial system, the last day the
// spreadsheet formats themselves can represent.
const maxDateSerial = 2958465

var (
	dayFirstPattern  = regexp.MustCompile(`^(\d{1,2})[./](\d{1,2})[./](\d{4})$`)
	yearFirstPattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

// fallbackLayouts are tried last, for values produced by tools that write
// full timestamps or month-name dates.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02 Jan 2006",
	"Jan 2, 2006",
}

// ParseDate converts a raw cell value into a canonical UTC date. Recognized
// forms, in fixed order: spreadsheet serial number, D.M.YYYY (also with
// slashes), YYYY-M-D, then the fallback layouts. Empty input is "no date",
// reported as ok=false; the caller decides whether the field was required.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		// ParseFloat also accepts "NaN", "Inf" and overflowing exponents;
		// only a finite, plausible day count is a serial date.
		if math.IsNaN(serial) || math.IsInf(serial, 0) || serial <= 0 || serial > maxDateSerial {
			return time.Time{}, false
		}
		// Whole days go through AddDate; only the time-of-day fraction is a
		// Duration, so large serials cannot overflow it.
		days := int(serial)
		ms := (serial - float64(days)) * 86_400_000
		return spreadsheetEpoch.AddDate(0, 0, days).Add(time.Duration(ms) * time.Millisecond), true
	}

	if m := dayFirstPattern.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
	}

	if m := yearFirstPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}
