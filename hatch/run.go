package hatch

import (
	"context"
	"time"

	"coopdoor/door"
)

// Scheduler defaults, in ticks.
const (
	DefaultTick            = time.Second
	DefaultPollEvery       = 5
	DefaultHeartbeatEvery  = 15
	DefaultAutomationDelay = 900

	// counterWrap is where the tick counter returns to 1.
	counterWrap = 65535
)

// Config holds scheduler timing.
type Config struct {
	TickMs          int `yaml:"tick_ms"`
	PollEvery       int `yaml:"poll_every"`       // ticks between automation polls
	HeartbeatEvery  int `yaml:"heartbeat_every"`  // ticks between status pushes
	AutomationDelay int `yaml:"automation_delay"` // ticks automation stays off after a manual move
}

type schedule struct {
	tick           time.Duration
	pollEvery      int
	heartbeatEvery int
	delay          int
}

func (c Config) schedule() schedule {
	s := schedule{
		tick:           DefaultTick,
		pollEvery:      DefaultPollEvery,
		heartbeatEvery: DefaultHeartbeatEvery,
		delay:          DefaultAutomationDelay,
	}
	if c.TickMs > 0 {
		s.tick = time.Duration(c.TickMs) * time.Millisecond
	}
	if c.PollEvery > 0 {
		s.pollEvery = c.PollEvery
	}
	if c.HeartbeatEvery > 0 {
		s.heartbeatEvery = c.HeartbeatEvery
	}
	if c.AutomationDelay > 0 {
		s.delay = c.AutomationDelay
	}
	return s
}

// Run drives the scheduler until ctx is done. In degraded mode it only
// shows the fault signal.
func (h *Hatch) Run(ctx context.Context) error {
	if h.degraded {
		h.signal.Fault()
		<-ctx.Done()
		return ctx.Err()
	}

	h.mu.Lock()
	h.push("Initialised - Door Controller starting.")
	h.mu.Unlock()
	h.signal.Idle()

	ticker := time.NewTicker(h.sched.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Tick()
		}
	}
}

// Tick advances the scheduler by one tick, polling the door and pushing
// a heartbeat when due.
func (h *Hatch) Tick() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.degraded {
		return
	}

	if h.counter%h.sched.pollEvery == 0 {
		h.poll()
	}
	if h.counter%h.sched.heartbeatEvery == 0 {
		h.heartbeat()
	}

	h.counter++
	if h.counter >= counterWrap {
		h.counter = 1
	}
}

func (h *Hatch) poll() {
	if h.delayed && h.counter%h.sched.delay != 0 {
		h.log.Debug("automation delayed", "ticks_left", h.sched.delay-h.counter%h.sched.delay)
		return
	}
	h.delayed = false

	res, err := h.engine.Poll()
	if err != nil {
		h.log.Error("automation poll failed", "error", err)
	}
	if !res.Moved {
		return
	}

	cfg := h.store.Config()
	switch {
	case h.tracker.IsClosed():
		h.push("DM:0")
	case h.tracker.IsOpen():
		h.push("DM:1")
	}
	h.record.RecordMove(byte(cfg.ID), res.Direction, true)
	h.log.Info("automatic move", "direction", res.Direction.String(), "recovered", res.Recovered)

	// light alone can flap around a threshold
	if cfg.LDREnabled && !cfg.TimeEnabled {
		h.suppress()
	}
}

func (h *Hatch) heartbeat() {
	s := h.status()
	h.push(s.String())
	h.record.RecordStatus(s)
}

// moving reports the signal for a tracker move event.
func (h *Hatch) moving(dir door.Direction, on bool) {
	if on {
		h.signal.Moving(dir)
	} else {
		h.signal.Idle()
	}
}
