package indicator

import (
	"fmt"

	"github.com/hjkoskel/govattu"

	"coopdoor/door"
)

// GPIO implements Indicator using discrete GPIO LED pins.
type GPIO struct {
	hw        govattu.Vattu
	greenPin  *uint8
	yellowPin *uint8
	redPin    *uint8
	blink     blinker
}

// NewGPIO creates a new GPIO-based indicator.
func NewGPIO(greenPin, yellowPin, redPin *uint8) (*GPIO, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	g := &GPIO{
		hw:        hw,
		greenPin:  greenPin,
		yellowPin: yellowPin,
		redPin:    redPin,
	}

	// Initialize all pins as outputs, start off
	for _, pin := range []*uint8{greenPin, yellowPin, redPin} {
		if pin != nil {
			hw.PinMode(*pin, govattu.ALToutput)
			hw.PinClear(*pin)
		}
	}

	return g, nil
}

// Idle implements Indicator.Idle.
func (g *GPIO) Idle() {
	g.allOff()
	g.set(g.greenPin, true)
}

// Moving implements Indicator.Moving.
func (g *GPIO) Moving(dir door.Direction) {
	g.allOff()
	g.set(g.yellowPin, true)
}

// Fault implements Indicator.Fault. The pattern plays on the red LED.
func (g *GPIO) Fault() {
	g.allOff()
	g.blink.start(FaultPattern, func(on bool) { g.set(g.redPin, on) })
}

// ConnectionLost implements Indicator.ConnectionLost.
func (g *GPIO) ConnectionLost() {
	g.allOff()
	g.set(g.yellowPin, true)
	g.set(g.redPin, true)
}

// Connected implements Indicator.Connected.
func (g *GPIO) Connected() {
	g.Idle()
}

// Shutdown implements Indicator.Shutdown.
func (g *GPIO) Shutdown() {
	g.allOff()
}

// Release implements Indicator.Release.
func (g *GPIO) Release() error {
	g.allOff()
	return g.hw.Close()
}

func (g *GPIO) set(pin *uint8, on bool) {
	if pin == nil {
		return
	}
	if on {
		g.hw.PinSet(*pin)
	} else {
		g.hw.PinClear(*pin)
	}
}

func (g *GPIO) allOff() {
	g.blink.halt()
	g.set(g.greenPin, false)
	g.set(g.yellowPin, false)
	g.set(g.redPin, false)
}
