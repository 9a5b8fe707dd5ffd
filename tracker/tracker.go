// Package tracker knows where the door is. It owns the two tracking
// strategies and runs every move to completion.
package tracker

import (
	"fmt"
	"time"

	"coopdoor/door"
	"coopdoor/logging"
	"coopdoor/store"
)

// CountsPerUnit is the number of encoder counts in one position unit.
const CountsPerUnit = 3000

// Move timing defaults.
const (
	DefaultSettle      = 2500 * time.Millisecond
	DefaultSample      = 10 * time.Millisecond
	DefaultStallWindow = 2 * time.Second
)

// Encoder is a signed position count from the motor shaft.
type Encoder interface {
	Read() int32
	Write(count int32)
}

// Strategy reports the door's extremes and runs one move.
type Strategy interface {
	IsOpen() bool
	IsClosed() bool
	IsMoving() bool

	// run is called with the motor energized toward dir and returns
	// once the move has ended, successfully or not.
	run(dir door.Direction)
}

// Config holds movement tuning.
type Config struct {
	SettleMs      int `yaml:"settle_ms"`
	SampleMs      int `yaml:"sample_ms"`
	StallWindowMs int `yaml:"stall_window_ms"`

	// OptimisticOnStall flips the flag-mode state even when the encoder
	// stopped counting before the door arrived. Defaults to true.
	OptimisticOnStall *bool `yaml:"optimistic_on_stall"`
}

type options struct {
	settle      time.Duration
	sample      time.Duration
	stallWindow time.Duration
	optimistic  bool
}

func (c Config) options() options {
	o := options{
		settle:      DefaultSettle,
		sample:      DefaultSample,
		stallWindow: DefaultStallWindow,
		optimistic:  true,
	}
	if c.SettleMs > 0 {
		o.settle = time.Duration(c.SettleMs) * time.Millisecond
	}
	if c.SampleMs > 0 {
		o.sample = time.Duration(c.SampleMs) * time.Millisecond
	}
	if c.StallWindowMs > 0 {
		o.stallWindow = time.Duration(c.StallWindowMs) * time.Millisecond
	}
	if c.OptimisticOnStall != nil {
		o.optimistic = *c.OptimisticOnStall
	}
	return o
}

// rig is the hardware and configuration shared by both strategies.
type rig struct {
	cfg   *store.Config
	enc   Encoder
	log   *logging.Logger
	opts  options
	sleep func(time.Duration)
	now   func() time.Time
}

func (r *rig) topCount() int32 {
	return int32(r.cfg.TopPosition) * CountsPerUnit
}

// arrived reports whether count is at or beyond the extreme for dir.
func (r *rig) arrived(dir door.Direction, count int32) bool {
	if dir == door.Open {
		return count >= r.topCount()
	}
	return count <= 0
}

// Tracker selects the active strategy from the PositionSaved setting.
type Tracker struct {
	rig
	store   *store.Store
	motor   door.Motor
	sensor  *Sensor
	flag    *Flag
	observe func(dir door.Direction, moving bool)
}

// New creates a Tracker for the configuration held by st and seeds the
// encoder from the persisted position.
func New(st *store.Store, motor door.Motor, enc Encoder, cfg Config, log *logging.Logger) *Tracker {
	t := &Tracker{
		rig: rig{
			cfg:   st.Config(),
			enc:   enc,
			log:   logging.OrDiscard(log).With("component", "tracker"),
			opts:  cfg.options(),
			sleep: time.Sleep,
			now:   time.Now,
		},
		store: st,
		motor: motor,
	}
	t.sensor = &Sensor{rig: &t.rig}
	t.flag = &Flag{rig: &t.rig}
	t.Sync()
	return t
}

// Sync reseeds the encoder and the closed flag from the configuration.
// Call it after the configuration was replaced or the top moved.
func (t *Tracker) Sync() {
	// Without saved positions the last state is unknown unless the door
	// was recorded open; assume closed like a freshly powered board.
	t.flag.closed = t.cfg.Position != t.cfg.TopPosition
	t.enc.Write(int32(t.cfg.Position) * CountsPerUnit)
}

// Observe registers fn to be called when a move starts and when it ends.
func (t *Tracker) Observe(fn func(dir door.Direction, moving bool)) {
	t.observe = fn
}

// Strategy returns the strategy selected by PositionSaved.
func (t *Tracker) Strategy() Strategy {
	if t.cfg.PositionSaved {
		return t.sensor
	}
	return t.flag
}

// IsOpen reports whether the door is fully open.
func (t *Tracker) IsOpen() bool { return t.Strategy().IsOpen() }

// IsClosed reports whether the door is fully closed.
func (t *Tracker) IsClosed() bool { return t.Strategy().IsClosed() }

// IsMoving reports whether the door is between extremes.
func (t *Tracker) IsMoving() bool { return t.Strategy().IsMoving() }

// Move drives the door toward dir. It returns false without touching the
// motor when the door is already there. The call blocks for the travel
// time plus the settle delay.
func (t *Tracker) Move(dir door.Direction) (bool, error) {
	s := t.Strategy()
	if (dir == door.Open && s.IsOpen()) || (dir == door.Close && s.IsClosed()) {
		return false, nil
	}

	t.log.Info("moving door", "direction", dir.String(), "position", t.cfg.Position,
		"position_saved", t.cfg.PositionSaved)
	if t.observe != nil {
		t.observe(dir, true)
		defer t.observe(dir, false)
	}
	if err := t.motor.Drive(dir); err != nil {
		t.stop()
		return false, fmt.Errorf("drive motor %s: %w", dir, err)
	}

	s.run(dir)

	t.stop()
	t.sleep(t.opts.settle)
	if err := t.store.SaveAll(); err != nil {
		t.log.Error("save after move failed", "error", err)
	}
	t.log.Info("move finished", "direction", dir.String(), "position", t.cfg.Position,
		"open", s.IsOpen(), "closed", s.IsClosed())
	return true, nil
}

func (t *Tracker) stop() {
	if err := t.motor.Stop(); err != nil {
		t.log.Error("stop motor failed", "error", err)
	}
}

// SetPositionSaved switches between sensor and flag tracking, carrying
// the current extreme across.
func (t *Tracker) SetPositionSaved(on bool) bool {
	if on == t.cfg.PositionSaved {
		return on
	}
	if on {
		if t.flag.closed {
			t.cfg.Position = 0
		} else {
			t.cfg.Position = t.cfg.TopPosition
		}
		t.enc.Write(int32(t.cfg.Position) * CountsPerUnit)
	} else {
		t.flag.closed = t.sensor.IsClosed()
	}
	t.cfg.PositionSaved = on

	for _, f := range []store.Field{store.FieldPosition, store.FieldPositionSaved} {
		if err := t.store.SaveField(f); err != nil {
			t.log.Error("persist tracking mode failed", "field", f.String(), "error", err)
		}
	}
	return on
}

// ForceOpen records the door as open without moving it.
func (t *Tracker) ForceOpen() {
	t.force(false)
}

// ForceClosed records the door as closed without moving it.
func (t *Tracker) ForceClosed() {
	t.force(true)
}

func (t *Tracker) force(closed bool) {
	t.flag.closed = closed
	if closed {
		t.cfg.Position = 0
	} else {
		t.cfg.Position = t.cfg.TopPosition
	}
	t.enc.Write(int32(t.cfg.Position) * CountsPerUnit)
	if err := t.store.SaveAll(); err != nil {
		t.log.Error("save forced state failed", "error", err)
	}
}

// Release de-energizes the motor.
func (t *Tracker) Release() {
	t.stop()
}
