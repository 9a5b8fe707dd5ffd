// Package door drives the hatch motor through an H-bridge.
package door

import (
	"errors"
	"fmt"

	"github.com/hjkoskel/govattu"
)

// ErrUnknownDriver is returned for an unsupported motor driver type.
var ErrUnknownDriver = errors.New("door: unknown motor driver")

// Direction is the direction of travel.
type Direction int

const (
	Close Direction = iota
	Open
)

func (d Direction) String() string {
	if d == Open {
		return "open"
	}
	return "close"
}

// Motor is the interface for all motor drive implementations.
type Motor interface {
	// Drive energizes the motor in the given direction until Stop.
	Drive(dir Direction) error

	// Stop de-energizes the motor.
	Stop() error

	// Release releases any hardware resources.
	Release() error
}

// Config holds configuration for motor drive implementations.
type Config struct {
	Type string `yaml:"type"` // "gpio", "rpio", "none"
	Pin1 *int   `yaml:"pin1"` // H-bridge input driven high to open
	Pin2 *int   `yaml:"pin2"` // H-bridge input driven high to close
}

// New creates a Motor based on the provided configuration.
func New(cfg Config) (Motor, error) {
	if cfg.Type == "" || cfg.Type == "none" {
		return &Noop{}, nil
	}
	if cfg.Pin1 == nil || cfg.Pin2 == nil {
		return nil, fmt.Errorf("motor %s: pin1 and pin2 required", cfg.Type)
	}

	switch cfg.Type {
	case "gpio":
		hw, err := govattu.Open()
		if err != nil {
			return nil, fmt.Errorf("open gpio: %w", err)
		}
		return NewGPIO(hw, uint8(*cfg.Pin1), uint8(*cfg.Pin2))
	case "rpio":
		return NewRPIO(*cfg.Pin1, *cfg.Pin2)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Type)
	}
}
