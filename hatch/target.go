package hatch

import (
	"coopdoor/door"
	"coopdoor/store"
)

// target applies commands. Its methods run with the Hatch mutex held.
type target Hatch

func (t *target) h() *Hatch { return (*Hatch)(t) }

func (t *target) SetAutomation(on bool) bool { return t.store.SetAutomation(on) }

func (t *target) MoveDoor(dir door.Direction) (bool, error) {
	moved, err := t.tracker.Move(dir)
	if moved {
		// keep automation from undoing a remote move
		t.h().suppress()
		t.record.RecordMove(byte(t.store.Config().ID), dir, false)
	}
	return moved, err
}

func (t *target) SetTopPosition(v byte) byte {
	top := t.store.SetTopPosition(v)
	t.tracker.Sync()
	return top
}

func (t *target) SetLowerThreshold(v byte) byte { return t.store.SetLowerThreshold(v) }

func (t *target) SetUpperThreshold(v byte) byte { return t.store.SetUpperThreshold(v) }

func (t *target) SetDeviceID(v byte) store.DeviceID { return t.store.SetDeviceID(v) }

func (t *target) SetOffsetCode(v byte) byte { return t.store.SetOffsetCode(v) }

func (t *target) ClearAutomationDelay() {
	t.delayed = false
}

func (t *target) SetPositionSaved(on bool) bool { return t.tracker.SetPositionSaved(on) }

func (t *target) SetMoveTime(v byte) byte { return t.store.SetMoveTime(v) }

func (t *target) FactoryReset() error {
	if err := t.store.FactoryReset(); err != nil {
		return err
	}
	t.tracker.Sync()
	return nil
}

func (t *target) ForceOpen() {
	t.tracker.ForceOpen()
	t.h().suppress()
}

func (t *target) ForceClosed() {
	t.tracker.ForceClosed()
	t.h().suppress()
}

func (t *target) SetLDR(on bool) bool { return t.store.SetLDR(on) }

func (t *target) SetTimeEnabled(on bool) bool { return t.store.SetTimeEnabled(on) }

func (t *target) Restart() {
	t.log.Warn("restart requested")
	t.restart.Restart()
}
