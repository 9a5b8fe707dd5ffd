// Package hatch binds the door's configuration, position tracking and
// automation into one aggregate. Every command, poll and move runs under
// its mutex.
package hatch

import (
	"errors"
	"fmt"
	"sync"

	"coopdoor/automation"
	"coopdoor/door"
	"coopdoor/logging"
	"coopdoor/protocol"
	"coopdoor/store"
	"coopdoor/tracker"
)

// ErrDegraded is returned for commands received while the configuration
// medium is unusable.
var ErrDegraded = errors.New("hatch: degraded, commands ignored")

// Notifier pushes a text message to the remote side.
type Notifier interface {
	Notify(msg string)
}

// Notifiers fans a message out to several transports.
type Notifiers []Notifier

// Notify implements Notifier.
func (ns Notifiers) Notify(msg string) {
	for _, n := range ns {
		n.Notify(msg)
	}
}

// Restarter restarts the controller process.
type Restarter interface {
	Restart()
}

// RestartFunc adapts a function to Restarter.
type RestartFunc func()

// Restart implements Restarter.
func (f RestartFunc) Restart() { f() }

// Recorder receives telemetry.
type Recorder interface {
	RecordStatus(s protocol.Status)
	RecordMove(id byte, dir door.Direction, automatic bool)
}

// Signal is the visual state output.
type Signal interface {
	Idle()
	Moving(dir door.Direction)
	Fault()
}

// Deps are the optional collaborators of a Hatch. Nil members do nothing.
type Deps struct {
	Notifier  Notifier
	Restarter Restarter
	Recorder  Recorder
	Signal    Signal
}

// Hatch is the door aggregate.
type Hatch struct {
	mu sync.Mutex

	store   *store.Store
	tracker *tracker.Tracker
	engine  *automation.Engine

	notify  Notifier
	restart Restarter
	record  Recorder
	signal  Signal
	log     *logging.Logger

	sched    schedule
	counter  int
	delayed  bool
	degraded bool
}

// New creates a Hatch over a loaded store. Automation is suppressed until
// the first automation-delay boundary.
func New(st *store.Store, tr *tracker.Tracker, eng *automation.Engine, deps Deps, cfg Config, log *logging.Logger) *Hatch {
	h := newHatch(deps, cfg, log)
	h.store = st
	h.tracker = tr
	h.engine = eng

	tr.Observe(h.moving)
	return h
}

// NewDegraded creates a Hatch for a controller whose configuration medium
// failed. It never moves the door and ignores every command.
func NewDegraded(cause error, deps Deps, log *logging.Logger) *Hatch {
	h := newHatch(deps, Config{}, log)
	h.degraded = true
	h.log.Error("configuration medium failed, entering degraded mode", "error", cause)
	return h
}

func newHatch(deps Deps, cfg Config, log *logging.Logger) *Hatch {
	h := &Hatch{
		notify:  deps.Notifier,
		restart: deps.Restarter,
		record:  deps.Recorder,
		signal:  deps.Signal,
		log:     logging.OrDiscard(log).With("component", "hatch"),
		sched:   cfg.schedule(),
		counter: 1,
		delayed: true,
	}
	if h.notify == nil {
		h.notify = Notifiers(nil)
	}
	if h.restart == nil {
		h.restart = RestartFunc(func() {})
	}
	if h.record == nil {
		h.record = nopRecorder{}
	}
	if h.signal == nil {
		h.signal = nopSignal{}
	}
	return h
}

// Degraded reports whether the hatch is in degraded mode.
func (h *Hatch) Degraded() bool {
	return h.degraded
}

// Response is the outcome of one command packet.
type Response struct {
	Command protocol.Command

	// Reply is the text answer of commands that have one.
	Reply string

	// Status is the status line taken after the command ran.
	Status string
}

// Handle parses and applies one command packet. The status line is
// returned even when the command was rejected.
func (h *Hatch) Handle(pkt []byte) (Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.degraded {
		return Response{}, ErrDegraded
	}

	var reply string
	cmd, err := protocol.Parse(pkt)
	if err == nil {
		reply, err = protocol.Dispatch((*target)(h), cmd)
	}
	if err != nil {
		h.log.Warn("command not applied", "command", cmd.String(), "error", err)
	} else {
		h.log.Info("command applied", "command", cmd.String())
	}

	if reply != "" {
		h.push(reply)
	}
	return Response{Command: cmd, Reply: reply, Status: h.status().String()}, err
}

// Status returns the current status snapshot.
func (h *Hatch) Status() (protocol.Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.degraded {
		return protocol.Status{}, ErrDegraded
	}
	return h.status(), nil
}

func (h *Hatch) status() protocol.Status {
	return protocol.NewStatus(h.store.Config(), h.engine.State(), h.engine.LightLevel(), h.engine.Schedule())
}

// push sends msg to every notifier, tagged with the device id.
func (h *Hatch) push(msg string) {
	h.notify.Notify(fmt.Sprintf("(ID:%d)-%s", h.store.Config().ID, msg))
}

// suppress restarts the automation delay.
func (h *Hatch) suppress() {
	h.counter = 1
	h.delayed = true
}

type nopRecorder struct{}

func (nopRecorder) RecordStatus(protocol.Status) {}
func (nopRecorder) RecordMove(byte, door.Direction, bool) {}

type nopSignal struct{}

func (nopSignal) Idle() {}
func (nopSignal) Moving(door.Direction) {}
func (nopSignal) Fault() {}

// ensure the aggregate keeps satisfying the command table
var _ protocol.Target = (*target)(nil)
