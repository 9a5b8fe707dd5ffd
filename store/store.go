// Package store persists the door configuration field by field on a
// byte-addressable medium and owns the first-boot bootstrap.
package store

import (
	"fmt"
	"math/rand/v2"

	"coopdoor/logging"
)

// Store holds the live configuration and writes it through to a Medium.
//
// Store is not safe for concurrent use; the hatch aggregate serializes
// every caller.
type Store struct {
	medium Medium
	cfg    Config
	log    *logging.Logger
	newID  func() DeviceID
}

// New creates a Store over medium. Call Load before use.
func New(medium Medium, log *logging.Logger) *Store {
	return &Store{
		medium: medium,
		log:    logging.OrDiscard(log).With("component", "store"),
		newID:  randomID,
	}
}

// randomID returns an id in [1,254]; 255 is reserved for an erased medium.
func randomID() DeviceID {
	return DeviceID(rand.IntN(254) + 1)
}

// Config returns the live configuration. Mutations made through the
// pointer are persisted only by SaveField or SaveAll.
func (s *Store) Config() *Config {
	return &s.cfg
}

// Load reads the configuration from the medium. An uninitialized medium
// is bootstrapped with defaults and a fresh id; bootstrapped reports it.
func (s *Store) Load() (bootstrapped bool, err error) {
	raw, err := s.medium.Get(int(FieldID))
	if err != nil {
		return false, fmt.Errorf("read id: %w", err)
	}
	if _, ok := deviceIDFromRaw(raw); !ok {
		s.log.Info("medium uninitialized, writing defaults")
		return true, s.bootstrap()
	}

	var cfg Config
	for f := FieldID; f < fieldCount; f++ {
		b, err := s.medium.Get(int(f))
		if err != nil {
			return false, fmt.Errorf("read %s: %w", f, err)
		}
		cfg.setRaw(f, b)
	}
	cfg.normalize()
	s.cfg = cfg

	s.log.Info("configuration loaded", "id", s.cfg.ID, "position", s.cfg.Position,
		"top", s.cfg.TopPosition, "position_saved", s.cfg.PositionSaved)
	return false, nil
}

// FactoryReset rewrites every field with its default and a fresh id.
func (s *Store) FactoryReset() error {
	s.log.Info("factory reset")
	return s.bootstrap()
}

func (s *Store) bootstrap() error {
	s.cfg = Defaults(s.newID())
	return s.SaveAll()
}

// SaveField writes a single field and commits.
func (s *Store) SaveField(f Field) error {
	if f < 0 || f >= fieldCount {
		return fmt.Errorf("save field %d: %w", f, ErrOffset)
	}
	if err := s.medium.Put(int(f), s.cfg.raw(f)); err != nil {
		return fmt.Errorf("write %s: %w", f, err)
	}
	if err := s.medium.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", f, err)
	}
	return nil
}

// SaveAll writes all eleven fields, then commits once.
func (s *Store) SaveAll() error {
	for f := FieldID; f < fieldCount; f++ {
		if err := s.medium.Put(int(f), s.cfg.raw(f)); err != nil {
			return fmt.Errorf("write %s: %w", f, err)
		}
	}
	if err := s.medium.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// persist saves f and logs a failure. Setter writes are fire-and-forget.
func (s *Store) persist(f Field) {
	if err := s.SaveField(f); err != nil {
		s.log.Error("persist setting failed", "field", f.String(), "error", err)
	}
}

// SetUpperThreshold accepts v iff 0 < v < 255 and v - lower >= MinLightGap.
// It returns the threshold in effect afterwards.
func (s *Store) SetUpperThreshold(v byte) byte {
	if v == 0 || v == 255 || v <= s.cfg.LowerThreshold {
		return s.cfg.UpperThreshold
	}
	if int(v)-int(s.cfg.LowerThreshold) >= MinLightGap {
		s.cfg.UpperThreshold = v
		s.persist(FieldUpperThreshold)
	}
	return s.cfg.UpperThreshold
}

// SetLowerThreshold accepts v iff v < upper and upper - v >= MinLightGap.
// It returns the threshold in effect afterwards.
func (s *Store) SetLowerThreshold(v byte) byte {
	if v >= s.cfg.UpperThreshold {
		return s.cfg.LowerThreshold
	}
	if int(s.cfg.UpperThreshold)-int(v) >= MinLightGap {
		s.cfg.LowerThreshold = v
		s.persist(FieldLowerThreshold)
	}
	return s.cfg.LowerThreshold
}

// SetTopPosition accepts v in [1,254]. A door at the old top, or beyond
// the new one, is moved to the new top so position never exceeds it.
func (s *Store) SetTopPosition(v byte) byte {
	if v == 0 || v == 255 {
		return s.cfg.TopPosition
	}
	if s.cfg.Position == s.cfg.TopPosition || s.cfg.Position > v {
		s.cfg.Position = v
		s.persist(FieldPosition)
	}
	s.cfg.TopPosition = v
	s.persist(FieldTopPosition)
	return s.cfg.TopPosition
}

// SetDeviceID accepts v in [1,254].
func (s *Store) SetDeviceID(v byte) DeviceID {
	if v == 0 || v == rawUnset {
		return s.cfg.ID
	}
	s.cfg.ID = DeviceID(v)
	s.persist(FieldID)
	return s.cfg.ID
}

// SetMoveTime sets the fallback move duration unit; 0 becomes 1.
func (s *Store) SetMoveTime(v byte) byte {
	if v == 0 {
		v = 1
	}
	s.cfg.MoveTime = v
	s.persist(FieldMoveTime)
	return s.cfg.MoveTime
}

// SetOffsetCode sets the sunrise bias code. Every byte is meaningful.
func (s *Store) SetOffsetCode(v byte) byte {
	s.cfg.OffsetCode = v
	s.persist(FieldOffsetCode)
	return s.cfg.OffsetCode
}

// SetAutomation enables or disables automation.
func (s *Store) SetAutomation(on bool) bool {
	if s.cfg.AutomationEnabled != on {
		s.cfg.AutomationEnabled = on
		s.persist(FieldAutomation)
	}
	return s.cfg.AutomationEnabled
}

// SetLDR enables or disables light triggering.
func (s *Store) SetLDR(on bool) bool {
	if s.cfg.LDREnabled != on {
		s.cfg.LDREnabled = on
		s.persist(FieldLDR)
	}
	return s.cfg.LDREnabled
}

// SetTimeEnabled enables or disables time triggering.
func (s *Store) SetTimeEnabled(on bool) bool {
	if s.cfg.TimeEnabled != on {
		s.cfg.TimeEnabled = on
		s.persist(FieldTimeEnabled)
	}
	return s.cfg.TimeEnabled
}
