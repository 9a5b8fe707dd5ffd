//go:build !linux

package rotary

import (
	"errors"
	"fmt"
)

var ErrNotSupported = errors.New("gpio encoder not supported on this platform")

// New returns a Static encoder, or ErrNotSupported for gpio on non-linux
// platforms.
func New(cfg Config) (Encoder, error) {
	switch cfg.Type {
	case "", "none":
		return &Static{}, nil
	case "gpio":
		return nil, ErrNotSupported
	default:
		return nil, fmt.Errorf("unknown encoder type %q", cfg.Type)
	}
}
