// Package automation decides, once per poll, whether the door should move.
package automation

import (
	"errors"
	"time"

	"coopdoor/clock"
	"coopdoor/door"
	"coopdoor/logging"
	"coopdoor/store"
	"coopdoor/sun"
)

// State is the door state reported in status lines.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateMoving
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateMoving:
		return "moving"
	}
	return "unknown"
}

// Clock retry defaults.
const (
	DefaultClockAttempts = 6
	DefaultClockBackoff  = 10 * time.Second
)

// Tracker is the door position the engine acts on.
type Tracker interface {
	IsOpen() bool
	IsClosed() bool
	IsMoving() bool
	Move(dir door.Direction) (bool, error)
}

// LightMeter returns the averaged 8-bit light level.
type LightMeter interface {
	Level() (byte, error)
}

// Scheduler computes the biased open/close minutes for a day.
type Scheduler interface {
	Schedule(t time.Time, code byte) (sun.Schedule, error)
}

// Config holds automation tuning.
type Config struct {
	ClockAttempts  int `yaml:"clock_attempts"`
	ClockBackoffMs int `yaml:"clock_backoff_ms"`
}

// Result describes what a poll did.
type Result struct {
	Moved     bool
	Direction door.Direction

	// Recovered is set when the poll closed a door found between extremes.
	Recovered bool
}

// Engine combines light, schedule and position into move decisions.
type Engine struct {
	settings *store.Config
	tracker  Tracker
	light    LightMeter
	sched    Scheduler
	clock    clock.Clock
	log      *logging.Logger

	attempts int
	backoff  time.Duration
	sleep    func(time.Duration)

	schedule     sun.Schedule
	haveSchedule bool
}

// New creates an Engine reading its settings from settings on every poll.
func New(settings *store.Config, tr Tracker, lm LightMeter, sched Scheduler, clk clock.Clock, cfg Config, log *logging.Logger) *Engine {
	e := &Engine{
		settings: settings,
		tracker:  tr,
		light:    lm,
		sched:    sched,
		clock:    clk,
		log:      logging.OrDiscard(log).With("component", "automation"),
		attempts: cfg.ClockAttempts,
		backoff:  time.Duration(cfg.ClockBackoffMs) * time.Millisecond,
		sleep:    time.Sleep,
	}
	if e.attempts <= 0 {
		e.attempts = DefaultClockAttempts
	}
	if cfg.ClockBackoffMs <= 0 {
		e.backoff = DefaultClockBackoff
	}
	return e
}

// State derives the door state from the tracker.
func (e *Engine) State() State {
	switch {
	case e.tracker.IsClosed():
		return StateClosed
	case e.tracker.IsOpen():
		return StateOpen
	case e.tracker.IsMoving():
		return StateMoving
	}
	return StateUnknown
}

// Schedule returns the schedule from the most recent successful
// calculation.
func (e *Engine) Schedule() sun.Schedule {
	return e.schedule
}

// LightLevel reads the light meter, returning 0 if it fails.
func (e *Engine) LightLevel() byte {
	level, err := e.light.Level()
	if err != nil {
		e.log.Warn("light read failed", "error", err)
		return 0
	}
	return level
}

// Poll runs one automation cycle and moves the door if the conditions
// for the current extreme are met. It blocks for the duration of a move.
func (e *Engine) Poll() (Result, error) {
	if e.tracker.IsMoving() {
		e.log.Warn("door found between extremes, closing")
		_, err := e.tracker.Move(door.Close)
		return Result{Moved: true, Direction: door.Close, Recovered: true}, err
	}

	e.refreshSchedule()

	s := e.settings
	if !s.AutomationEnabled || (!s.LDREnabled && !s.TimeEnabled) {
		return Result{}, nil
	}

	switch {
	case e.tracker.IsOpen():
		dark := !s.LDREnabled || e.lightAtMost(s.LowerThreshold)
		bedtime := !s.TimeEnabled || e.timeIs(false)
		e.log.Debug("open door check", "dark", dark, "bedtime", bedtime)
		if dark && bedtime {
			return e.move(door.Close)
		}
	case e.tracker.IsClosed():
		bright := !s.LDREnabled || e.lightAtLeast(s.UpperThreshold)
		wakeup := !s.TimeEnabled || e.timeIs(true)
		e.log.Debug("closed door check", "bright", bright, "wakeup", wakeup)
		if bright && wakeup {
			return e.move(door.Open)
		}
	}
	return Result{}, nil
}

func (e *Engine) move(dir door.Direction) (Result, error) {
	moved, err := e.tracker.Move(dir)
	return Result{Moved: moved, Direction: dir}, err
}

// refreshSchedule recalculates today's schedule. On failure the last good
// schedule stays in effect.
func (e *Engine) refreshSchedule() {
	now, err := e.clock.Now()
	if err != nil {
		e.log.Debug("schedule not refreshed", "error", err)
		return
	}
	e.computeSchedule(now)
}

func (e *Engine) computeSchedule(now time.Time) {
	sched, err := e.sched.Schedule(now, e.settings.OffsetCode)
	if err != nil {
		if errors.Is(err, sun.ErrNoSunEvent) {
			e.log.Warn("no sunrise or sunset today, keeping last schedule", "date", now.Format(time.DateOnly))
		} else {
			e.log.Error("schedule calculation failed", "error", err)
		}
		return
	}
	e.schedule = sched
	e.haveSchedule = true
}

// timeIs reports whether now falls in the day window (day true) or the
// night window. If the clock stays unavailable, or no schedule has been
// computed yet, the result is LDREnabled.
func (e *Engine) timeIs(day bool) bool {
	now, err := e.now()
	if err != nil {
		e.log.Warn("clock unavailable, time condition follows light setting",
			"attempts", e.attempts, "ldr", e.settings.LDREnabled)
		return e.settings.LDREnabled
	}
	if !e.haveSchedule {
		e.computeSchedule(now)
	}
	if !e.haveSchedule {
		e.log.Warn("no schedule yet, time condition follows light setting", "ldr", e.settings.LDREnabled)
		return e.settings.LDREnabled
	}
	m := sun.MinuteOfDay(now)
	if day {
		return e.schedule.IsDay(m)
	}
	return e.schedule.IsNight(m)
}

func (e *Engine) now() (time.Time, error) {
	t, err := e.clock.Now()
	for attempt := 1; err != nil && attempt < e.attempts; attempt++ {
		e.sleep(e.backoff)
		t, err = e.clock.Now()
	}
	return t, err
}

func (e *Engine) lightAtMost(limit byte) bool {
	level, err := e.light.Level()
	if err != nil {
		e.log.Warn("light read failed, treating as not dark", "error", err)
		return false
	}
	return level <= limit
}

func (e *Engine) lightAtLeast(limit byte) bool {
	level, err := e.light.Level()
	if err != nil {
		e.log.Warn("light read failed, treating as not bright", "error", err)
		return false
	}
	return level >= limit
}
