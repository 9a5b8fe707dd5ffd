package indicator

import (
	"fmt"
	"io"
	"os"

	"coopdoor/door"
)

// Neopixel command strings for the external neopixel tool.
const (
	neoConnectionLost = "@2 !150000 001010"
	neoNormalIdle     = "@3 !150000 400000"
	neoOpening        = "@1 !50000 8000"
	neoClosing        = "@1 !50000 804000"
	neoFaultOn        = "@0 ff"
	neoFaultOff       = "@0 00"
	neoTerminated     = "@0 010101"
)

// Neopixel implements Indicator using an external neopixel tool via named pipe.
type Neopixel struct {
	pipe       io.WriteCloser
	idleString string
	blink      blinker
}

// NewNeopixel creates a new Neopixel indicator.
func NewNeopixel(pipePath string) (*Neopixel, error) {
	f, err := os.OpenFile(pipePath, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open neopixel pipe %s: %w", pipePath, err)
	}

	n := &Neopixel{
		pipe:       f,
		idleString: neoConnectionLost, // Start with connection lost until connected
	}
	return n, nil
}

// Idle implements Indicator.Idle.
func (n *Neopixel) Idle() {
	n.blink.halt()
	n.write(n.idleString)
}

// Moving implements Indicator.Moving.
func (n *Neopixel) Moving(dir door.Direction) {
	n.blink.halt()
	if dir == door.Open {
		n.write(neoOpening)
	} else {
		n.write(neoClosing)
	}
}

// Fault implements Indicator.Fault.
func (n *Neopixel) Fault() {
	n.blink.start(FaultPattern, func(on bool) {
		if on {
			n.write(neoFaultOn)
		} else {
			n.write(neoFaultOff)
		}
	})
}

// ConnectionLost implements Indicator.ConnectionLost.
func (n *Neopixel) ConnectionLost() {
	n.blink.halt()
	n.idleString = neoConnectionLost
	n.write(neoConnectionLost)
}

// Shutdown implements Indicator.Shutdown.
func (n *Neopixel) Shutdown() {
	n.blink.halt()
	n.write(neoTerminated)
}

// Release implements Indicator.Release.
func (n *Neopixel) Release() error {
	n.blink.halt()
	if n.pipe == nil {
		return nil
	}
	return n.pipe.Close()
}

// Connected implements Indicator.Connected.
func (n *Neopixel) Connected() {
	n.idleString = neoNormalIdle
	n.Idle()
}

func (n *Neopixel) write(s string) {
	if n.pipe != nil {
		n.pipe.Write([]byte(s))
	}
}
