package protocol

import (
	"fmt"
	"strings"

	"coopdoor/door"
	"coopdoor/store"
)

// Target is the door aggregate a command acts on.
type Target interface {
	SetAutomation(on bool) bool
	MoveDoor(dir door.Direction) (bool, error)
	SetTopPosition(v byte) byte
	SetLowerThreshold(v byte) byte
	SetUpperThreshold(v byte) byte
	SetDeviceID(v byte) store.DeviceID
	SetOffsetCode(v byte) byte
	ClearAutomationDelay()
	SetPositionSaved(on bool) bool
	SetMoveTime(v byte) byte
	FactoryReset() error
	ForceOpen()
	ForceClosed()
	SetLDR(on bool) bool
	SetTimeEnabled(on bool) bool
	Restart()
}

type handler struct {
	code  byte
	args  string // argument hint for help, empty when none is taken
	usage string
	run   func(t Target, arg byte) (string, error)
}

var handlers = []handler{
	{'0', "[1:0]", "Automation on", func(t Target, a byte) (string, error) {
		t.SetAutomation(a != 0)
		return "", nil
	}},
	{'2', "[1:0]", "MV Door", func(t Target, a byte) (string, error) {
		dir := door.Close
		if a != 0 {
			dir = door.Open
		}
		_, err := t.MoveDoor(dir)
		return "", err
	}},
	{'4', "[1-254]", "MTR Top", func(t Target, a byte) (string, error) {
		t.SetTopPosition(a)
		return "", nil
	}},
	{'5', "[0-255]", "LWR Light", func(t Target, a byte) (string, error) {
		t.SetLowerThreshold(a)
		return "", nil
	}},
	{'6', "[0-255]", "UPR Light", func(t Target, a byte) (string, error) {
		t.SetUpperThreshold(a)
		return "", nil
	}},
	{'7', "[1-254]", "ID", func(t Target, a byte) (string, error) {
		t.SetDeviceID(a)
		return "", nil
	}},
	{'8', "[0-255]", "Open Time", func(t Target, a byte) (string, error) {
		t.SetOffsetCode(a)
		return "", nil
	}},
	{'a', "", "Disable Automation delay", func(t Target, _ byte) (string, error) {
		t.ClearAutomationDelay()
		return "", nil
	}},
	{'m', "[1:0]", "SaveMTRPos", func(t Target, a byte) (string, error) {
		t.SetPositionSaved(a != 0)
		return "", nil
	}},
	{'n', "[0-255]", "MTR Time", func(t Target, a byte) (string, error) {
		t.SetMoveTime(a)
		return "", nil
	}},
	{'f', "", "Reset", func(t Target, _ byte) (string, error) {
		return "", t.FactoryReset()
	}},
	{'o', "", "Open", func(t Target, _ byte) (string, error) {
		t.ForceOpen()
		return "", nil
	}},
	{'c', "", "Close", func(t Target, _ byte) (string, error) {
		t.ForceClosed()
		return "", nil
	}},
	{'l', "[1:0]", "LDR on", func(t Target, a byte) (string, error) {
		t.SetLDR(a != 0)
		return "", nil
	}},
	{'t', "[1:0]", "Time on", func(t Target, a byte) (string, error) {
		t.SetTimeEnabled(a != 0)
		return "", nil
	}},
	{'r', "", "Restart", func(t Target, _ byte) (string, error) {
		t.Restart()
		return "", nil
	}},
	{'h', "", "Help", nil},
}

var byCode = func() map[byte]*handler {
	m := make(map[byte]*handler, len(handlers))
	for i := range handlers {
		m[handlers[i].code] = &handlers[i]
	}
	return m
}()

// HelpText lists every command, one per line.
var HelpText = func() string {
	var b strings.Builder
	for _, h := range handlers {
		b.WriteByte(h.code)
		if h.args != "" {
			b.WriteByte(' ')
			b.WriteString(h.args)
		}
		b.WriteByte('=')
		b.WriteString(h.usage)
		b.WriteByte('\n')
	}
	return b.String()
}()

// TakesArg reports whether code is a known command that needs an argument.
func TakesArg(code byte) bool {
	h, ok := byCode[code]
	return ok && h.args != ""
}

// Dispatch applies cmd to t. The returned reply is non-empty only for
// commands that answer with text. Unknown codes, a missing code and a
// missing argument are rejected without touching t.
func Dispatch(t Target, cmd Command) (reply string, err error) {
	if cmd.Code == 0 {
		return "", fmt.Errorf("%w: no command code", ErrRejected)
	}
	h, ok := byCode[cmd.Code]
	if !ok {
		return "", fmt.Errorf("%w: unknown code %q", ErrRejected, cmd.Code)
	}
	if h.args != "" && !cmd.HasArg {
		return "", fmt.Errorf("%w: %q needs an argument", ErrRejected, cmd.Code)
	}
	if h.run == nil {
		return HelpText, nil
	}
	return h.run(t, cmd.Arg)
}
