package tracker

import (
	"coopdoor/door"
)

// Sensor tracks the door by encoder count. Position is kept in units of
// CountsPerUnit and the extremes are Position 0 and TopPosition.
type Sensor struct {
	*rig
}

// IsOpen implements Strategy.IsOpen.
func (s *Sensor) IsOpen() bool {
	return s.cfg.Position == s.cfg.TopPosition
}

// IsClosed implements Strategy.IsClosed.
func (s *Sensor) IsClosed() bool {
	return s.cfg.Position == 0
}

// IsMoving implements Strategy.IsMoving.
func (s *Sensor) IsMoving() bool {
	return !s.IsOpen() && !s.IsClosed()
}

// run follows the encoder until it reaches the extreme for dir. A count
// that does not change for the stall window ends the move early and
// leaves Position at the last reading.
func (s *Sensor) run(dir door.Direction) {
	last := s.enc.Read()
	changed := s.now()

	for {
		count := s.enc.Read()
		if s.arrived(dir, count) {
			if dir == door.Open {
				s.cfg.Position = s.cfg.TopPosition
			} else {
				s.cfg.Position = 0
			}
			return
		}
		s.cfg.Position = s.units(count)

		if count != last {
			last = count
			changed = s.now()
		} else if s.now().Sub(changed) >= s.opts.stallWindow {
			s.log.Warn("encoder stalled, aborting move", "direction", dir.String(),
				"count", count, "position", s.cfg.Position)
			return
		}
		s.sleep(s.opts.sample)
	}
}

// units converts a count to a position clamped to [0, TopPosition].
func (s *Sensor) units(count int32) byte {
	if count <= 0 {
		return 0
	}
	u := count / CountsPerUnit
	if u > int32(s.cfg.TopPosition) {
		return s.cfg.TopPosition
	}
	return byte(u)
}
