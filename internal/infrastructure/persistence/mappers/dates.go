package mappers

import "time"

// asDate strips time of day and location from a date column value. Drivers
// disagree on the location they attach to DATE columns; the calendar fields
// are what was stored.
func asDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func asDatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := asDate(*t)
	return &d
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
