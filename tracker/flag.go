package tracker

import (
	"time"

	"coopdoor/door"
)

// Flag tracks the door by a single closed flag. The encoder only detects
// a stalled motor; the move is bounded by MoveTime.
type Flag struct {
	*rig
	closed bool
}

// IsOpen implements Strategy.IsOpen.
func (f *Flag) IsOpen() bool {
	return !f.closed
}

// IsClosed implements Strategy.IsClosed.
func (f *Flag) IsClosed() bool {
	return f.closed
}

// IsMoving implements Strategy.IsMoving. A flag-tracked door is always
// at one extreme.
func (f *Flag) IsMoving() bool {
	return false
}

// run drives until the encoder reaches the extreme, stops counting or
// MoveTime runs out, then flips the flag.
func (f *Flag) run(dir door.Direction) {
	deadline := f.now().Add(time.Duration(f.cfg.MoveTime) * 100 * time.Millisecond)
	prev := f.enc.Read()

	stalled := false
	for !f.arrived(dir, prev) {
		if !f.now().Before(deadline) {
			f.log.Info("move time elapsed", "direction", dir.String(), "count", prev)
			break
		}
		f.sleep(f.opts.sample)
		count := f.enc.Read()
		if count == prev {
			stalled = true
			break
		}
		prev = count
	}

	if stalled {
		if !f.opts.optimistic {
			f.log.Warn("motor stalled, door state unchanged", "direction", dir.String(), "count", prev)
			return
		}
		f.log.Warn("motor stalled, assuming door arrived", "direction", dir.String(), "count", prev)
	}

	f.closed = !f.closed
	if f.closed {
		f.cfg.Position = 0
	} else {
		f.cfg.Position = f.cfg.TopPosition
	}
}
