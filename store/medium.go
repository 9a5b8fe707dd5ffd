package store

import (
	"errors"
	"fmt"
)

// MediumSize is the number of addressable bytes every medium exposes.
const MediumSize = 64

// erased is the value of a byte that has never been written.
const erased = 0xFF

var (
	// ErrMedium wraps every failure of the underlying persistent medium.
	ErrMedium = errors.New("store: medium failure")

	// ErrOffset is returned for an address outside the medium.
	ErrOffset = errors.New("store: offset out of range")
)

// Medium is a byte-addressable persistent store in the style of an EEPROM:
// writes are staged by Put and become durable on Commit.
type Medium interface {
	// Get returns the byte at offset. Unwritten bytes read as 0xFF.
	Get(offset int) (byte, error)

	// Put stages a byte at offset.
	Put(offset int, v byte) error

	// Commit makes all staged writes durable.
	Commit() error

	// Close releases the medium.
	Close() error
}

// MediumConfig selects and configures the persistent medium.
type MediumConfig struct {
	Type string `yaml:"type"` // "file", "sqlite", "memory"
	Path string `yaml:"path"`
}

// OpenMedium creates the Medium described by cfg.
func OpenMedium(cfg MediumConfig) (Medium, error) {
	switch cfg.Type {
	case "sqlite":
		return OpenSQLite(cfg.Path)
	case "memory":
		return NewMemory(), nil
	case "file", "":
		return OpenFile(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: unknown medium type %q", ErrMedium, cfg.Type)
	}
}

// Memory is a volatile Medium. Commit is a no-op; it counts commits so
// tests can observe persistence.
type Memory struct {
	data    [MediumSize]byte
	Commits int
}

// NewMemory returns an erased in-memory medium.
func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.data {
		m.data[i] = erased
	}
	return m
}

// Get implements Medium.Get.
func (m *Memory) Get(offset int) (byte, error) {
	if err := checkOffset(offset); err != nil {
		return 0, err
	}
	return m.data[offset], nil
}

// Put implements Medium.Put.
func (m *Memory) Put(offset int, v byte) error {
	if err := checkOffset(offset); err != nil {
		return err
	}
	m.data[offset] = v
	return nil
}

// Commit implements Medium.Commit.
func (m *Memory) Commit() error {
	m.Commits++
	return nil
}

// Close implements Medium.Close.
func (m *Memory) Close() error {
	return nil
}

func checkOffset(offset int) error {
	if offset < 0 || offset >= MediumSize {
		return fmt.Errorf("%w: %d", ErrOffset, offset)
	}
	return nil
}
