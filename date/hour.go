package date

import "time"

// Hour represents an instant floored to the start of its UTC hour. It is
// the valuation instant for hourly close prices: the most recent hourly
// candle at or before a transaction time starts at that hour.
type Hour struct {
	t time.Time
}

// HourOf returns the Hour containing the given instant.
func HourOf(t time.Time) Hour {
	return Hour{t.UTC().Truncate(time.Hour)}
}

// Time returns the start of the hour as a time.Time in UTC.
func (h Hour) Time() time.Time { return h.t }

// UnixMilli returns the start of the hour in milliseconds since the epoch.
func (h Hour) UnixMilli() int64 { return h.t.UnixMilli() }

// Date returns the calendar day the hour belongs to.
func (h Hour) Date() Date { return Of(h.t) }

// String formats the hour as "2006-01-02T15Z".
func (h Hour) String() string { return h.t.Format("2006-01-02T15Z") }
