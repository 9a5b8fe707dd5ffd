//go:build linux

package rotary

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const debounce = 50 * time.Microsecond

// GPIO decodes a quadrature encoder wired to two GPIO lines.
type GPIO struct {
	*Decoder
	aLine *gpiocdev.Line
	bLine *gpiocdev.Line

	mu sync.Mutex
	a  int
	b  int
}

// New creates an Encoder based on the provided configuration.
func New(cfg Config) (Encoder, error) {
	if cfg.Type == "" || cfg.Type == "none" {
		return &Static{}, nil
	}
	if cfg.Type != "gpio" {
		return nil, fmt.Errorf("unknown encoder type %q", cfg.Type)
	}
	if cfg.APin == 0 && cfg.BPin == 0 {
		return nil, fmt.Errorf("encoder: a_pin and b_pin required")
	}

	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}

	g := &GPIO{}

	var err error

	g.aLine, err = gpiocdev.RequestLine(cfg.Chip, cfg.APin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(debounce),
		gpiocdev.WithEventHandler(g.handleEvent))
	if err != nil {
		return nil, fmt.Errorf("request encoder line %d: %w", cfg.APin, err)
	}

	g.bLine, err = gpiocdev.RequestLine(cfg.Chip, cfg.BPin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(debounce),
		gpiocdev.WithEventHandler(g.handleEvent))
	if err != nil {
		g.aLine.Close()
		return nil, fmt.Errorf("request encoder line %d: %w", cfg.BPin, err)
	}

	g.mu.Lock()
	g.a, _ = g.aLine.Value()
	g.b, _ = g.bLine.Value()
	g.Decoder = NewDecoder(g.a, g.b, cfg.Reverse)
	g.mu.Unlock()

	return g, nil
}

func (g *GPIO) handleEvent(evt gpiocdev.LineEvent) {
	var level int
	switch evt.Type {
	case gpiocdev.LineEventRisingEdge:
		level = 1
	case gpiocdev.LineEventFallingEdge:
		level = 0
	default:
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Decoder == nil {
		return
	}
	switch evt.Offset {
	case g.aLine.Offset():
		g.a = level
	case g.bLine.Offset():
		g.b = level
	default:
		return
	}
	g.Update(g.a, g.b)
}

// Release releases GPIO resources.
func (g *GPIO) Release() error {
	if g.aLine != nil {
		g.aLine.Close()
	}
	if g.bLine != nil {
		g.bLine.Close()
	}
	return nil
}
