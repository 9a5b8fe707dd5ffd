// Package rotary counts quadrature pulses from the encoder on the motor
// shaft.
package rotary

import "sync/atomic"

// Config holds configuration for the shaft encoder.
type Config struct {
	Type    string `yaml:"type"` // "gpio", "none"
	Chip    string `yaml:"chip"`
	APin    int    `yaml:"a_pin"`
	BPin    int    `yaml:"b_pin"`
	Reverse bool   `yaml:"reverse"` // swap direction when opening counts down
}

// transitions maps prev<<2|cur of the two channel levels to a count step.
// Invalid double transitions count as zero.
var transitions = [16]int32{
	0, -1, 1, 0,
	1, 0, 0, -1,
	-1, 0, 0, 1,
	0, 1, -1, 0,
}

// Counter is a signed count safe for concurrent use by the edge handler
// and the reader.
type Counter struct {
	n atomic.Int32
}

// Read returns the current count.
func (c *Counter) Read() int32 {
	return c.n.Load()
}

// Write replaces the current count.
func (c *Counter) Write(count int32) {
	c.n.Store(count)
}

// Decoder turns channel level changes into counts on a Counter.
type Decoder struct {
	Counter
	state   uint8
	reverse bool
}

// NewDecoder returns a Decoder starting from the given channel levels.
func NewDecoder(a, b int, reverse bool) *Decoder {
	return &Decoder{state: levels(a, b), reverse: reverse}
}

// Update records new channel levels and adjusts the count.
func (d *Decoder) Update(a, b int) {
	cur := levels(a, b)
	step := transitions[d.state<<2|cur]
	d.state = cur
	if step == 0 {
		return
	}
	if d.reverse {
		step = -step
	}
	d.n.Add(step)
}

func levels(a, b int) uint8 {
	return uint8(a&1)<<1 | uint8(b&1)
}

// Encoder is the position encoder interface consumed by the tracker.
type Encoder interface {
	Read() int32
	Write(count int32)
	Release() error
}

// Static is an Encoder with no hardware behind it. Its count changes only
// through Write.
type Static struct {
	Counter
}

// Release implements Encoder.Release.
func (s *Static) Release() error { return nil }
