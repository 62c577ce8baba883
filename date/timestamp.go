package date

import (
	"fmt"
	"strings"
	"time"
)

// Exchange exports are inconsistent about timestamp layouts: the same
// download center produces different formats depending on account locale
// and export vintage. All timestamps are taken as UTC.
var timestampLayouts = []string{
	"2006-01-02 15:04:05", // most common Binance layout
	"06-01-02 15:04:05",   // short year
	"02-01-2006 15:04:05", // european
	"02-01-06 15:04:05",
	"01/02/2006 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an export timestamp trying every known layout in
// order. The result is always in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp %q", s)
}
