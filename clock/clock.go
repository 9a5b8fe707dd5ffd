// Package clock supplies the calendar time the automation engine needs.
package clock

import (
	"errors"
	"time"
)

// ErrUnavailable is returned while the calendar time cannot be trusted.
var ErrUnavailable = errors.New("clock: calendar time unavailable")

// minSyncedYear is the earliest year a synchronized clock can report.
// Boards without an RTC boot at the epoch until NTP has run.
const minSyncedYear = 2020

// Clock returns the current calendar time.
type Clock interface {
	Now() (time.Time, error)
}

// System reads the host clock in a fixed location.
type System struct {
	loc *time.Location
	now func() time.Time
}

// NewSystem returns a System clock reporting times in loc (UTC if nil).
func NewSystem(loc *time.Location) *System {
	if loc == nil {
		loc = time.UTC
	}
	return &System{loc: loc, now: time.Now}
}

// Now implements Clock. It fails until the host clock has been set.
func (s *System) Now() (time.Time, error) {
	t := s.now().In(s.loc)
	if t.Year() < minSyncedYear {
		return time.Time{}, ErrUnavailable
	}
	return t, nil
}

// Fixed is a Clock that always reports the same instant, or Err if set.
type Fixed struct {
	T   time.Time
	Err error
}

// Now implements Clock.
func (f *Fixed) Now() (time.Time, error) {
	if f.Err != nil {
		return time.Time{}, f.Err
	}
	return f.T, nil
}
