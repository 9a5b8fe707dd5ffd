package automation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coopdoor/clock"
	"coopdoor/door"
	"coopdoor/logging"
	"coopdoor/store"
	"coopdoor/sun"
)

type fakeTracker struct {
	state State
	moves []door.Direction
}

func (f *fakeTracker) IsOpen() bool   { return f.state == StateOpen }
func (f *fakeTracker) IsClosed() bool { return f.state == StateClosed }
func (f *fakeTracker) IsMoving() bool { return f.state == StateMoving }

func (f *fakeTracker) Move(dir door.Direction) (bool, error) {
	if (dir == door.Open && f.IsOpen()) || (dir == door.Close && f.IsClosed()) {
		return false, nil
	}
	f.moves = append(f.moves, dir)
	if dir == door.Open {
		f.state = StateOpen
	} else {
		f.state = StateClosed
	}
	return true, nil
}

type fakeLight struct {
	level byte
	err   error
	reads int
}

func (f *fakeLight) Level() (byte, error) {
	f.reads++
	return f.level, f.err
}

type fakeSched struct {
	sched sun.Schedule
	err   error
}

func (f *fakeSched) Schedule(time.Time, byte) (sun.Schedule, error) {
	return f.sched, f.err
}

type countingClock struct {
	clock.Fixed
	calls int
}

func (c *countingClock) Now() (time.Time, error) {
	c.calls++
	return c.Fixed.Now()
}

var daySchedule = sun.Schedule{Open: 420, Close: 1080}

func at(hour, minute int) time.Time {
	return time.Date(2024, time.May, 1, hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	engine   *Engine
	settings *store.Config
	tracker  *fakeTracker
	light    *fakeLight
	sched    *fakeSched
	clock    *countingClock
	sleeps   int
}

func newFixture(state State, now time.Time) *fixture {
	cfg := store.Defaults(1)
	f := &fixture{
		settings: &cfg,
		tracker:  &fakeTracker{state: state},
		light:    &fakeLight{},
		sched:    &fakeSched{sched: daySchedule},
		clock:    &countingClock{Fixed: clock.Fixed{T: now}},
	}
	f.engine = New(f.settings, f.tracker, f.light, f.sched, f.clock, Config{}, logging.Discard())
	f.engine.sleep = func(time.Duration) { f.sleeps++ }
	return f
}

func TestPoll_RecoversStuckDoor(t *testing.T) {
	f := newFixture(StateMoving, at(12, 0))
	f.settings.AutomationEnabled = false

	res, err := f.engine.Poll()
	require.NoError(t, err)
	assert.True(t, res.Moved)
	assert.True(t, res.Recovered)
	assert.Equal(t, []door.Direction{door.Close}, f.tracker.moves)
}

func TestPoll_NoActionWhenAutomationOff(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*store.Config)
	}{
		{"automation disabled", func(c *store.Config) { c.AutomationEnabled = false }},
		{"both triggers disabled", func(c *store.Config) { c.LDREnabled, c.TimeEnabled = false, false }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(StateClosed, at(12, 0))
			tt.mutate(f.settings)

			res, err := f.engine.Poll()
			require.NoError(t, err)
			assert.False(t, res.Moved)
			assert.Empty(t, f.tracker.moves)
			assert.Equal(t, daySchedule, f.engine.Schedule())
		})
	}
}

func TestPoll_TimeOnly(t *testing.T) {
	tests := []struct {
		name  string
		state State
		now   time.Time
		want  []door.Direction
	}{
		{"open at night closes", StateOpen, at(20, 0), []door.Direction{door.Close}},
		{"open by day stays", StateOpen, at(12, 0), nil},
		{"closed by day opens", StateClosed, at(7, 0), []door.Direction{door.Open}},
		{"closed at night stays", StateClosed, at(6, 59), nil},
		{"open at close minute stays", StateOpen, at(18, 0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.state, tt.now)

			res, err := f.engine.Poll()
			require.NoError(t, err)
			assert.Equal(t, tt.want != nil, res.Moved)
			assert.Equal(t, tt.want, f.tracker.moves)
			assert.Zero(t, f.light.reads, "light must not be read with LDR disabled")
		})
	}
}

func TestPoll_LightOnly(t *testing.T) {
	tests := []struct {
		name  string
		state State
		level byte
		moved bool
	}{
		{"closed and bright opens", StateClosed, 37, true},
		{"closed and dim stays", StateClosed, 36, false},
		{"open and dark closes", StateOpen, 25, true},
		{"open and dusk stays", StateOpen, 26, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.state, at(3, 0))
			f.settings.LDREnabled = true
			f.settings.TimeEnabled = false
			f.light.level = tt.level

			res, err := f.engine.Poll()
			require.NoError(t, err)
			assert.Equal(t, tt.moved, res.Moved)
			assert.Equal(t, 1, f.light.reads)
		})
	}
}

func TestPoll_LightAndTimeMustAgree(t *testing.T) {
	f := newFixture(StateClosed, at(5, 0))
	f.settings.LDREnabled = true
	f.light.level = 200

	res, err := f.engine.Poll()
	require.NoError(t, err)
	assert.False(t, res.Moved)
}

func TestPoll_LightErrorBlocksMove(t *testing.T) {
	f := newFixture(StateClosed, at(12, 0))
	f.settings.LDREnabled = true
	f.light.err = fmt.Errorf("adc")

	res, err := f.engine.Poll()
	require.NoError(t, err)
	assert.False(t, res.Moved)
}

func TestPoll_ClockUnavailableFollowsLDR(t *testing.T) {
	for _, ldr := range []bool{true, false} {
		t.Run(fmt.Sprintf("ldr=%v", ldr), func(t *testing.T) {
			f := newFixture(StateClosed, time.Time{})
			f.clock.Err = clock.ErrUnavailable
			f.settings.LDREnabled = ldr
			f.light.level = 255

			res, err := f.engine.Poll()
			require.NoError(t, err)
			assert.Equal(t, ldr, res.Moved)

			// one refresh attempt, then the full retry budget
			assert.Equal(t, 1+DefaultClockAttempts, f.clock.calls)
			assert.Equal(t, DefaultClockAttempts-1, f.sleeps)
		})
	}
}

func TestPoll_NoScheduleYetFollowsLDR(t *testing.T) {
	f := newFixture(StateOpen, at(12, 0))
	f.sched.err = sun.ErrNoSunEvent
	f.sched.sched = sun.Schedule{}

	res, err := f.engine.Poll()
	require.NoError(t, err)
	assert.False(t, res.Moved, "midday must not count as night without a schedule")

	f.settings.LDREnabled = true
	f.light.level = 0
	res, err = f.engine.Poll()
	require.NoError(t, err)
	assert.True(t, res.Moved)
	assert.Equal(t, door.Close, res.Direction)
}

// lateClock fails its first fails calls.
type lateClock struct {
	clock.Fixed
	fails int
}

func (c *lateClock) Now() (time.Time, error) {
	if c.fails > 0 {
		c.fails--
		return time.Time{}, clock.ErrUnavailable
	}
	return c.Fixed.Now()
}

func TestPoll_ClockArrivesDuringRetries(t *testing.T) {
	f := newFixture(StateOpen, at(12, 0))
	f.engine.clock = &lateClock{Fixed: clock.Fixed{T: at(12, 0)}, fails: 2}

	res, err := f.engine.Poll()
	require.NoError(t, err)
	assert.False(t, res.Moved)
	assert.Equal(t, daySchedule, f.engine.Schedule())
}

func TestPoll_KeepsScheduleOnPolarDay(t *testing.T) {
	f := newFixture(StateOpen, at(12, 0))
	_, err := f.engine.Poll()
	require.NoError(t, err)

	f.sched.err = sun.ErrNoSunEvent
	f.sched.sched = sun.Schedule{}
	_, err = f.engine.Poll()
	require.NoError(t, err)
	assert.Equal(t, daySchedule, f.engine.Schedule())
}

func TestState(t *testing.T) {
	for _, s := range []State{StateClosed, StateOpen, StateMoving, StateUnknown} {
		f := newFixture(s, at(12, 0))
		assert.Equal(t, s, f.engine.State())
	}
	assert.Equal(t, 2, int(StateMoving))
	assert.Equal(t, "unknown", StateUnknown.String())
}

func TestLightLevel(t *testing.T) {
	f := newFixture(StateClosed, at(12, 0))
	f.light.level = 99
	assert.Equal(t, byte(99), f.engine.LightLevel())

	f.light.err = fmt.Errorf("adc")
	assert.Equal(t, byte(0), f.engine.LightLevel())
}
