// Package keypad reads command packets typed on a USB keypad or keyboard
// attached to the controller. A packet is submitted with Enter.
package keypad

import (
	"context"
	"fmt"
	"strings"

	"github.com/kenshaw/evdev"

	"coopdoor/logging"
)

// maxLine bounds a typed packet; longer input is discarded.
const maxLine = 16

// Config holds keypad settings.
type Config struct {
	Device string `yaml:"device"` // e.g. "/dev/input/event0", empty disables
}

// Handler is called with every submitted packet.
type Handler func(pkt []byte)

// Keypad reads key events from an input device.
type Keypad struct {
	device *evdev.Evdev
	log    *logging.Logger
}

// Open opens the input device in cfg. Returns nil if no device is set.
func Open(cfg Config, log *logging.Logger) (*Keypad, error) {
	if cfg.Device == "" {
		return nil, nil
	}

	dev, err := evdev.OpenFile(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open evdev %s: %w", cfg.Device, err)
	}

	k := &Keypad{
		device: dev,
		log:    logging.OrDiscard(log).With("component", "keypad"),
	}
	k.log.Info("opened keypad", "device", dev.Name(),
		"vendor", fmt.Sprintf("0x%04x", dev.ID().Vendor),
		"product", fmt.Sprintf("0x%04x", dev.ID().Product))
	return k, nil
}

// Serve collects key presses into packets until ctx is done.
func (k *Keypad) Serve(ctx context.Context, handle Handler) error {
	ch := k.device.Poll(ctx)
	var line lineBuffer

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-ch:
			if event == nil {
				return fmt.Errorf("keypad device closed")
			}

			if _, ok := event.Type.(evdev.KeyType); !ok || event.Value != 1 {
				continue
			}

			var pkt string
			var done bool
			if event.Type == evdev.KeyEnter {
				pkt, done = line.submit()
			} else {
				line.key(evdev.KeyType(event.Code).String())
			}
			if done {
				k.log.Debug("packet typed", "packet", pkt)
				handle([]byte(pkt))
			}
		}
	}
}

// Close closes the input device.
func (k *Keypad) Close() error {
	if k.device == nil {
		return nil
	}
	return k.device.Close()
}

// lineBuffer accumulates key names into a packet.
type lineBuffer struct {
	buf      strings.Builder
	overflow bool
}

// key adds a key by name. Only single letters and digits are kept.
func (l *lineBuffer) key(name string) {
	if len(name) != 1 {
		return
	}
	c := strings.ToLower(name)[0]
	if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z') {
		return
	}
	if l.buf.Len() >= maxLine {
		l.overflow = true
		return
	}
	l.buf.WriteByte(c)
}

// submit returns the buffered packet and resets the buffer.
func (l *lineBuffer) submit() (string, bool) {
	pkt, overflow := l.buf.String(), l.overflow
	l.buf.Reset()
	l.overflow = false
	return pkt, pkt != "" && !overflow
}
