// Package light reads the ambient light level from the door's LDR.
package light

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Averaging defaults for one level reading.
const (
	DefaultSamples  = 3
	DefaultInterval = 10 * time.Millisecond

	// rawShift scales a 12-bit conversion down to 8 bits.
	rawShift = 4
	rawMax   = 1<<12 - 1
)

// Sensor returns a raw 12-bit analog conversion of the LDR divider.
type Sensor interface {
	Sample() (uint16, error)
}

// Config holds light sensor settings.
type Config struct {
	Type       string `yaml:"type"` // "iio", "none"
	Path       string `yaml:"path"` // e.g. /sys/bus/iio/devices/iio:device0/in_voltage0_raw
	Samples    int    `yaml:"samples"`
	IntervalMs int    `yaml:"interval_ms"`
}

// New creates a Sensor based on the provided configuration.
func New(cfg Config) (Sensor, error) {
	switch cfg.Type {
	case "iio":
		return NewIIO(cfg.Path)
	default:
		return &Static{}, nil
	}
}

// Meter averages consecutive samples into an 8-bit level.
type Meter struct {
	sensor   Sensor
	samples  int
	interval time.Duration
	sleep    func(time.Duration)
}

// NewMeter wraps sensor with the averaging settings from cfg.
func NewMeter(sensor Sensor, cfg Config) *Meter {
	m := &Meter{
		sensor:   sensor,
		samples:  cfg.Samples,
		interval: time.Duration(cfg.IntervalMs) * time.Millisecond,
		sleep:    time.Sleep,
	}
	if m.samples <= 0 {
		m.samples = DefaultSamples
	}
	if cfg.IntervalMs <= 0 {
		m.interval = DefaultInterval
	}
	return m
}

// Level returns the average of the configured number of samples scaled
// to 0-255.
func (m *Meter) Level() (byte, error) {
	var sum uint32
	for i := 0; i < m.samples; i++ {
		v, err := m.sensor.Sample()
		if err != nil {
			return 0, fmt.Errorf("sample light: %w", err)
		}
		if v > rawMax {
			v = rawMax
		}
		sum += uint32(v)
		m.sleep(m.interval)
	}
	return byte((sum / uint32(m.samples)) >> rawShift), nil
}

// IIO reads an ADC channel exposed by the Linux industrial I/O subsystem.
type IIO struct {
	path string
}

// NewIIO returns an IIO sensor after checking the channel is readable.
func NewIIO(path string) (*IIO, error) {
	s := &IIO{path: path}
	if _, err := s.Sample(); err != nil {
		return nil, err
	}
	return s, nil
}

// Sample implements Sensor.Sample.
func (s *IIO) Sample() (uint16, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", s.path, err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return uint16(v), nil
}

// Static is a Sensor that always returns Raw. Used when no LDR is fitted.
type Static struct {
	Raw uint16
}

// Sample implements Sensor.Sample.
func (s *Static) Sample() (uint16, error) {
	return s.Raw, nil
}
