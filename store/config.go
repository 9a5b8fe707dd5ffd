package store

// Field identifies one persisted setting by its fixed offset in the medium.
type Field int

// Persistent layout. Each field is a single byte at its offset.
const (
	FieldID Field = iota
	FieldPosition
	FieldTopPosition
	FieldUpperThreshold
	FieldLowerThreshold
	FieldOffsetCode
	FieldAutomation
	FieldLDR
	FieldPositionSaved
	FieldMoveTime
	FieldTimeEnabled

	fieldCount
)

// Setting bounds.
const (
	// MinLightGap is the minimum hysteresis band between the two light thresholds.
	MinLightGap = 5

	// rawUnset marks an erased or never-flashed medium at offset 0.
	rawUnset = 255
)

// Documented defaults written on bootstrap and factory reset.
const (
	DefaultTopPosition    = 10
	DefaultUpperThreshold = 37 // ~200k LDR with a 10k divider resistor
	DefaultLowerThreshold = 25
	DefaultOffsetCode     = 0
	DefaultAutomation     = true
	DefaultLDR            = false
	DefaultPositionSaved  = true
	DefaultMoveTime       = 75 // n * 100ms
	DefaultTimeEnabled    = true
)

var fieldNames = [...]string{
	FieldID:             "id",
	FieldPosition:       "position",
	FieldTopPosition:    "top_position",
	FieldUpperThreshold: "upper_threshold",
	FieldLowerThreshold: "lower_threshold",
	FieldOffsetCode:     "offset_code",
	FieldAutomation:     "automation",
	FieldLDR:            "ldr",
	FieldPositionSaved:  "position_saved",
	FieldMoveTime:       "move_time",
	FieldTimeEnabled:    "time_enabled",
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return "unknown"
	}
	return fieldNames[f]
}

// DeviceID is the door's identity tag, always in [1,254] once loaded.
type DeviceID byte

// deviceIDFromRaw decodes offset 0. ok is false for a medium that was
// never initialized.
func deviceIDFromRaw(raw byte) (id DeviceID, ok bool) {
	if raw == rawUnset {
		return 0, false
	}
	return DeviceID(raw), true
}

// Config is the persisted door configuration.
type Config struct {
	ID                DeviceID
	Position          byte
	TopPosition       byte
	UpperThreshold    byte
	LowerThreshold    byte
	OffsetCode        byte
	AutomationEnabled bool
	LDREnabled        bool
	PositionSaved     bool
	MoveTime          byte
	TimeEnabled       bool
}

// Defaults returns the bootstrap configuration with the given id.
func Defaults(id DeviceID) Config {
	return Config{
		ID:                id,
		Position:          0,
		TopPosition:       DefaultTopPosition,
		UpperThreshold:    DefaultUpperThreshold,
		LowerThreshold:    DefaultLowerThreshold,
		OffsetCode:        DefaultOffsetCode,
		AutomationEnabled: DefaultAutomation,
		LDREnabled:        DefaultLDR,
		PositionSaved:     DefaultPositionSaved,
		MoveTime:          DefaultMoveTime,
		TimeEnabled:       DefaultTimeEnabled,
	}
}

// raw returns the byte stored for field f.
func (c *Config) raw(f Field) byte {
	switch f {
	case FieldID:
		return byte(c.ID)
	case FieldPosition:
		return c.Position
	case FieldTopPosition:
		return c.TopPosition
	case FieldUpperThreshold:
		return c.UpperThreshold
	case FieldLowerThreshold:
		return c.LowerThreshold
	case FieldOffsetCode:
		return c.OffsetCode
	case FieldAutomation:
		return boolByte(c.AutomationEnabled)
	case FieldLDR:
		return boolByte(c.LDREnabled)
	case FieldPositionSaved:
		return boolByte(c.PositionSaved)
	case FieldMoveTime:
		return c.MoveTime
	case FieldTimeEnabled:
		return boolByte(c.TimeEnabled)
	}
	return 0
}

// setRaw decodes a stored byte into field f.
func (c *Config) setRaw(f Field, b byte) {
	switch f {
	case FieldID:
		c.ID = DeviceID(b)
	case FieldPosition:
		c.Position = b
	case FieldTopPosition:
		c.TopPosition = b
	case FieldUpperThreshold:
		c.UpperThreshold = b
	case FieldLowerThreshold:
		c.LowerThreshold = b
	case FieldOffsetCode:
		c.OffsetCode = b
	case FieldAutomation:
		c.AutomationEnabled = b != 0
	case FieldLDR:
		c.LDREnabled = b != 0
	case FieldPositionSaved:
		c.PositionSaved = b != 0
	case FieldMoveTime:
		c.MoveTime = b
	case FieldTimeEnabled:
		c.TimeEnabled = b != 0
	}
}

// normalize repairs values a partially written medium can leave behind.
func (c *Config) normalize() {
	if c.MoveTime == 0 {
		c.MoveTime = 1
	}
	if c.TopPosition == 0 || c.TopPosition == rawUnset {
		c.TopPosition = DefaultTopPosition
	}
	if c.Position > c.TopPosition {
		c.Position = c.TopPosition
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
