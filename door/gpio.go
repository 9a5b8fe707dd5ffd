package door

import (
	"github.com/hjkoskel/govattu"
)

// GPIO implements Motor with two GPIO pins feeding an H-bridge.
type GPIO struct {
	hw   govattu.Vattu
	pin1 uint8
	pin2 uint8
}

// NewGPIO creates a new GPIO-based motor drive, initially stopped.
func NewGPIO(hw govattu.Vattu, pin1, pin2 uint8) (*GPIO, error) {
	hw.PinMode(pin1, govattu.ALToutput)
	hw.PinMode(pin2, govattu.ALToutput)

	g := &GPIO{
		hw:   hw,
		pin1: pin1,
		pin2: pin2,
	}

	g.Stop()
	return g, nil
}

// Drive implements Motor.Drive.
func (g *GPIO) Drive(dir Direction) error {
	if dir == Open {
		g.hw.PinClear(g.pin2)
		g.hw.PinSet(g.pin1)
	} else {
		g.hw.PinClear(g.pin1)
		g.hw.PinSet(g.pin2)
	}
	return nil
}

// Stop implements Motor.Stop.
func (g *GPIO) Stop() error {
	g.hw.PinClear(g.pin1)
	g.hw.PinClear(g.pin2)
	return nil
}

// Release implements Motor.Release.
func (g *GPIO) Release() error {
	g.Stop()
	return g.hw.Close()
}
