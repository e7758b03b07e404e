package models

import (
	"time"

	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
)

// DateLayout is the calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// Calendar dates are time.Time values at 00:00 UTC holding the local
// year/month/day. Day arithmetic never crosses a DST transition this way.

// Day returns the calendar date of t in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	return Day(now.In(loc))
}

// AddDays moves a calendar date by n days.
func AddDays(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day+n, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns b - a in whole days.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, perrors.Invalid("invalid date %q", s)
	}
	return t, nil
}

// FormatDate formats a calendar date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// EncodeDate converts a calendar date to the epoch-millis value the data
// service expects: local midnight in loc plus the browser's
// getTimezoneOffset, i.e. getTime() + getTimezoneOffset()*60000. Read as UTC
// the value falls on the same calendar day only in zones at or west of UTC;
// east of UTC it falls on the previous day. Use DecodeDate to read it back.
func EncodeDate(d time.Time, loc *time.Location) int64 {
	y, m, day := d.Date()
	local := time.Date(y, m, day, 0, 0, 0, 0, loc)
	_, offset := local.Zone()
	return local.UnixMilli() - int64(offset)*1000
}

// DecodeDate is the inverse of EncodeDate.
func DecodeDate(ms int64, loc *time.Location) time.Time {
	_, offset := time.UnixMilli(ms).In(loc).Zone()
	return Day(time.UnixMilli(ms + int64(offset)*1000).In(loc))
}
