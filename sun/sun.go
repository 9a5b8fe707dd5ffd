// Package sun computes the door's daily opening window from sunrise and
// sunset at a fixed location.
package sun

import (
	"errors"
	"fmt"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// MinutesPerDay bounds every minute-of-day value to [0, MinutesPerDay).
const MinutesPerDay = 24 * 60

// Bias code bands. Codes inside [biasNeutralLow, biasNeutralHigh] leave
// sunrise unchanged; each code step is two minutes.
const (
	biasNeutralLow  = 100
	biasNeutralHigh = 125
	biasStep        = 2
)

// ErrNoSunEvent is returned for a date on which the sun does not rise or set.
var ErrNoSunEvent = errors.New("sun: no sunrise or sunset on this date")

// Config holds the fixed location of the door.
type Config struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Timezone  string  `yaml:"timezone"` // IANA name, e.g. "Europe/London"
}

// Calculator computes schedules for one location.
type Calculator struct {
	lat, lon float64
	loc      *time.Location
}

// New returns a Calculator. A nil loc means UTC.
func New(lat, lon float64, loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{lat: lat, lon: lon, loc: loc}
}

// FromConfig resolves the configured time zone and returns a Calculator.
func FromConfig(cfg Config) (*Calculator, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
	}
	return New(cfg.Latitude, cfg.Longitude, loc), nil
}

// Location returns the time zone minutes-of-day are expressed in.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// Base returns the unadjusted sunrise and sunset minute-of-day for the
// calendar date of t in the calculator's time zone.
func (c *Calculator) Base(t time.Time) (sunriseMin, sunsetMin int, err error) {
	y, m, d := t.In(c.loc).Date()
	rise, set := sunrise.SunriseSunset(c.lat, c.lon, y, m, d)
	if rise.IsZero() || set.IsZero() {
		return 0, 0, fmt.Errorf("%w: %04d-%02d-%02d", ErrNoSunEvent, y, m, d)
	}
	return MinuteOfDay(rise.In(c.loc)), MinuteOfDay(set.In(c.loc)), nil
}

// Schedule returns the biased opening window for the date of t.
func (c *Calculator) Schedule(t time.Time, code byte) (Schedule, error) {
	rise, set, err := c.Base(t)
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{Open: ApplyBias(rise, code), Close: set}, nil
}

// ApplyBias shifts a sunrise minute by the bias code:
// codes above 125 open (code-100)*2 minutes later, codes below 100 open
// code*2 minutes earlier. The result is clamped to the same day.
func ApplyBias(sunriseMin int, code byte) int {
	switch {
	case code > biasNeutralHigh:
		sunriseMin += (int(code) - biasNeutralLow) * biasStep
	case code < biasNeutralLow:
		sunriseMin -= int(code) * biasStep
	}
	return clampMinute(sunriseMin)
}

// MinuteOfDay returns minutes since midnight of t in its own location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func clampMinute(m int) int {
	if m < 0 {
		return 0
	}
	if m >= MinutesPerDay {
		return MinutesPerDay - 1
	}
	return m
}

// Schedule is a same-day opening window in minutes of day.
type Schedule struct {
	Open  int
	Close int
}

// IsDay reports Open <= minute <= Close. Windows are never wrapped past
// midnight.
func (s Schedule) IsDay(minute int) bool {
	return s.Open <= minute && minute <= s.Close
}

// IsNight is the complement of IsDay.
func (s Schedule) IsNight(minute int) bool {
	return !s.IsDay(minute)
}
