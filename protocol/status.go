package protocol

import (
	"fmt"

	"coopdoor/automation"
	"coopdoor/store"
	"coopdoor/sun"
)

// Status is the snapshot reported after every command and on heartbeat.
type Status struct {
	ID             store.DeviceID
	State          automation.State
	Position       byte
	TopPosition    byte
	UpperThreshold byte
	LowerThreshold byte
	Light          byte
	Automation     bool
	LDR            bool
	Time           bool
	PositionSaved  bool
	MoveTime       byte
	CloseMinute    int
	OpenMinute     int
	OffsetCode     byte
}

// NewStatus fills a Status from the live configuration and runtime values.
func NewStatus(cfg *store.Config, state automation.State, light byte, sched sun.Schedule) Status {
	return Status{
		ID:             cfg.ID,
		State:          state,
		Position:       cfg.Position,
		TopPosition:    cfg.TopPosition,
		UpperThreshold: cfg.UpperThreshold,
		LowerThreshold: cfg.LowerThreshold,
		Light:          light,
		Automation:     cfg.AutomationEnabled,
		LDR:            cfg.LDREnabled,
		Time:           cfg.TimeEnabled,
		PositionSaved:  cfg.PositionSaved,
		MoveTime:       cfg.MoveTime,
		CloseMinute:    sched.Close,
		OpenMinute:     sched.Open,
		OffsetCode:     cfg.OffsetCode,
	}
}

// String renders the status line.
func (s Status) String() string {
	return fmt.Sprintf("!ID=%d,STATE=%d,MTR_POS=%d,TOPPOS=%d,UL=%d,LL=%d,LIT=%d,AUTO=%d,LDR=%d,TIME=%d,MTRSAVE=%d,MTRTIME=%d,CLOSE=%d,OPEN=%d,MOFF=%d",
		s.ID, int(s.State), s.Position, s.TopPosition, s.UpperThreshold, s.LowerThreshold, s.Light,
		flag(s.Automation), flag(s.LDR), flag(s.Time), flag(s.PositionSaved), s.MoveTime,
		s.CloseMinute, s.OpenMinute, int(s.OffsetCode)*2)
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
