// Package buttons turns the manual open and close push buttons on the
// coop into door commands.
package buttons

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/warthog618/gpio"

	"coopdoor/logging"
)

const defaultDebounce = 250 * time.Millisecond

// Packets sent for each button.
var (
	openPacket  = []byte("21")
	closePacket = []byte("20")
)

// Config holds push button settings. Buttons pull the pin low when pressed.
type Config struct {
	OpenPin    *uint8 `yaml:"open_pin"`
	ClosePin   *uint8 `yaml:"close_pin"`
	DebounceMs int    `yaml:"debounce_ms"`
}

// Handler is called with the command packet for every press.
type Handler func(pkt []byte)

// Panel watches the button pins.
type Panel struct {
	pins     []*gpio.Pin
	events   chan []byte
	log      *logging.Logger
	debounce time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// New opens the GPIO pins in cfg. Returns nil if no pin is configured.
func New(cfg Config, log *logging.Logger) (*Panel, error) {
	if cfg.OpenPin == nil && cfg.ClosePin == nil {
		return nil, nil
	}

	if err := gpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	p := newPanel(cfg, log)
	for _, b := range []struct {
		pin *uint8
		pkt []byte
	}{{cfg.OpenPin, openPacket}, {cfg.ClosePin, closePacket}} {
		if b.pin == nil {
			continue
		}
		pkt := b.pkt
		pin, err := watch(*b.pin, func(*gpio.Pin) { p.press(pkt) })
		if err != nil {
			p.Close()
			return nil, err
		}
		p.pins = append(p.pins, pin)
	}
	return p, nil
}

func newPanel(cfg Config, log *logging.Logger) *Panel {
	p := &Panel{
		events:   make(chan []byte, 10),
		log:      logging.OrDiscard(log).With("component", "buttons"),
		debounce: time.Duration(cfg.DebounceMs) * time.Millisecond,
		now:      time.Now,
		last:     make(map[string]time.Time),
	}
	if cfg.DebounceMs <= 0 {
		p.debounce = defaultDebounce
	}
	return p
}

func watch(n uint8, fn func(*gpio.Pin)) (*gpio.Pin, error) {
	// A pin left exported by an earlier run cannot be watched again
	if f, err := os.OpenFile("/sys/class/gpio/unexport", os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(f, "%d\n", n)
		f.Close()
	}

	pin := gpio.NewPin(int(n))
	pin.Input()
	pin.PullUp()
	if err := pin.Watch(gpio.EdgeFalling, fn); err != nil {
		return nil, fmt.Errorf("watch pin %d: %w", n, err)
	}
	return pin, nil
}

// press queues pkt unless the same button fired within the debounce time.
func (p *Panel) press(pkt []byte) {
	p.mu.Lock()
	now := p.now()
	key := string(pkt)
	if last, ok := p.last[key]; ok && now.Sub(last) < p.debounce {
		p.mu.Unlock()
		return
	}
	p.last[key] = now
	p.mu.Unlock()

	select {
	case p.events <- pkt:
	default:
		p.log.Warn("button press dropped", "packet", key)
	}
}

// Serve passes each press to handle until ctx is done.
func (p *Panel) Serve(ctx context.Context, handle Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pkt := <-p.events:
			p.log.Info("button pressed", "packet", string(pkt))
			handle(pkt)
		}
	}
}

// Close stops watching the pins.
func (p *Panel) Close() error {
	for _, pin := range p.pins {
		pin.Unwatch()
	}
	p.pins = nil
	return gpio.Close()
}
