// Package biztime anchors calendar arithmetic to the community's business
// timezone. Instants are stored in UTC; calendar dates (subscription end,
// birth date) are stored as UTC midnight of the business-local day so that
// date-only comparisons never depend on time of day.
package biztime

import (
	"fmt"
	"sync"
	"time"
)

const (
	DefaultTimezone = "Europe/Rome"

	// DisplayDateLayout is the layout members type and read dates in.
	DisplayDateLayout = "02/01/2006"
	ISODateLayout     = "2006-01-02"
)

var (
	bizLocation     *time.Location
	bizLocationOnce sync.Once
	initErr         error
)

// Init loads the business timezone once. An empty tz selects DefaultTimezone.
func Init(tz string) error {
	bizLocationOnce.Do(func() {
		if tz == "" {
			tz = DefaultTimezone
		}
		bizLocation, initErr = time.LoadLocation(tz)
	})
	return initErr
}

func MustInit(tz string) {
	if err := Init(tz); err != nil {
		panic(fmt.Sprintf("failed to initialize business timezone %q: %v", tz, err))
	}
}

func Location() *time.Location {
	if bizLocation == nil {
		if err := Init(""); err != nil {
			panic(fmt.Sprintf("biztime: failed to auto-initialize with default timezone: %v", err))
		}
	}
	return bizLocation
}

func NowUTC() time.Time {
	return time.Now().UTC()
}

// Clock returns the current instant. Services hold one so tests can move time.
type Clock func() time.Time

// DateOf returns the business-local calendar day of t as UTC midnight.
func DateOf(t time.Time) time.Time {
	local := t.In(Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// DayStart returns, in UTC, the instant the business-local day of t begins,
// shifted by days.
func DayStart(t time.Time, days int) time.Time {
	local := t.In(Location())
	return time.Date(local.Year(), local.Month(), local.Day()+days, 0, 0, 0, 0, Location()).UTC()
}

// MonthStart returns, in UTC, the instant the business-local month of t begins.
func MonthStart(t time.Time) time.Time {
	local := t.In(Location())
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, Location()).UTC()
}

// Today is DateOf(now).
func Today() time.Time {
	return DateOf(time.Now())
}

// AddDays shifts a date value by n calendar days.
func AddDays(date time.Time, n int) time.Time {
	return date.AddDate(0, 0, n)
}

// MaxDate returns the later of two date values.
func MaxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// YearsBetween returns full years elapsed from birth to on (both date values).
func YearsBetween(birth, on time.Time) int {
	years := on.Year() - birth.Year()
	if on.Month() < birth.Month() || (on.Month() == birth.Month() && on.Day() < birth.Day()) {
		years--
	}
	return years
}

// ParseDisplayDate parses a DD/MM/YYYY date typed by a member.
func ParseDisplayDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DisplayDateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ParseISODate parses a YYYY-MM-DD date value.
func ParseISODate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(ISODateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format %q: %w", s, err)
	}
	return t, nil
}

func FormatDate(date time.Time) string {
	return date.Format(DisplayDateLayout)
}

// FormatInBizTimezone renders an instant in business-local time.
func FormatInBizTimezone(t time.Time, layout string) string {
	return t.In(Location()).Format(layout)
}

func ToBizTimezone(t time.Time) time.Time {
	return t.In(Location())
}
