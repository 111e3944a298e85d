package scheduler

import (
	"fmt"
	"time"
)

// Trigger computes firing times for a scheduled job. All calendar math
// is done in UTC.
type Trigger interface {
	// Next returns the first firing time strictly after the given instant.
	Next(after time.Time) time.Time
	fmt.Stringer
}

// Daily fires once a day at Hour:Minute UTC.
type Daily struct {
	Hour   int
	Minute int
}

func (d Daily) Next(after time.Time) time.Time {
	t := after.UTC()
	next := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, time.UTC)
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (d Daily) String() string {
	return fmt.Sprintf("daily at %02d:%02d UTC", d.Hour, d.Minute)
}

// Weekly fires once a week on Weekday at Hour:Minute UTC.
type Weekly struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

func (w Weekly) Next(after time.Time) time.Time {
	t := after.UTC()
	next := time.Date(t.Year(), t.Month(), t.Day(), w.Hour, w.Minute, 0, 0, time.UTC)
	next = next.AddDate(0, 0, (int(w.Weekday)-int(next.Weekday())+7)%7)
	if !next.After(t) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func (w Weekly) String() string {
	return fmt.Sprintf("weekly on %s at %02d:%02d UTC", w.Weekday, w.Hour, w.Minute)
}
