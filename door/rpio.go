package door

import (
	"fmt"

	rpio "github.com/stianeikeland/go-rpio/v4"
)

// RPIO implements Motor through /dev/gpiomem using go-rpio.
type RPIO struct {
	pin1 rpio.Pin
	pin2 rpio.Pin
}

// NewRPIO maps GPIO memory and configures both H-bridge pins as outputs.
func NewRPIO(pin1, pin2 int) (*RPIO, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open rpio: %w", err)
	}

	r := &RPIO{
		pin1: rpio.Pin(pin1),
		pin2: rpio.Pin(pin2),
	}
	r.pin1.Mode(rpio.Output)
	r.pin2.Mode(rpio.Output)

	r.Stop()
	return r, nil
}

// Drive implements Motor.Drive.
func (r *RPIO) Drive(dir Direction) error {
	if dir == Open {
		r.pin2.Low()
		r.pin1.High()
	} else {
		r.pin1.Low()
		r.pin2.High()
	}
	return nil
}

// Stop implements Motor.Stop.
func (r *RPIO) Stop() error {
	r.pin1.Low()
	r.pin2.Low()
	return nil
}

// Release implements Motor.Release.
func (r *RPIO) Release() error {
	r.Stop()
	return rpio.Close()
}
