// Package dates normalizes the loosely formatted dates that arrive from
// clients (date pickers, spreadsheets, ISO strings) into calendar dates
// and UTC timestamps.
package dates

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ISODate is the wire layout for calendar dates.
const ISODate = "2006-01-02"

// Parse accepts YYYY-MM-DD, MM/DD/YYYY, RFC 3339 and the other layouts
// understood by cast.ToTimeE, and returns the UTC calendar date.
func Parse(s string) (time.Time, error) {
	t, err := ParseDateTime(s)
	if err != nil {
		return time.Time{}, err
	}
	return truncate(t), nil
}

// ParseDateTime accepts the same layouts as Parse but keeps the time of day.
// The result is in UTC; date-only input lands on midnight.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse("01/02/2006", s); err == nil {
		return t.UTC(), nil
	}
	t, err := cast.ToTimeE(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}

// Normalize re-formats s as YYYY-MM-DD. Empty input stays empty.
func Normalize(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	t, err := Parse(s)
	if err != nil {
		return "", err
	}
	return FormatISO(t), nil
}

// NormalizeDateTime re-formats s as an RFC 3339 UTC timestamp. Empty input
// stays empty.
func NormalizeDateTime(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	t, err := ParseDateTime(s)
	if err != nil {
		return "", err
	}
	return t.Format(time.RFC3339), nil
}

// FormatISO formats t as YYYY-MM-DD.
func FormatISO(t time.Time) string {
	return t.Format(ISODate)
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
