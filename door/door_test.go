package door

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NoneIsNoop(t *testing.T) {
	m, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Noop{}, m)
	assert.NoError(t, m.Drive(Open))
	assert.NoError(t, m.Stop())
	assert.NoError(t, m.Release())
}

func TestNew_RequiresPins(t *testing.T) {
	_, err := New(Config{Type: "gpio"})
	assert.Error(t, err)
}

func TestNew_UnknownDriver(t *testing.T) {
	p1, p2 := 25, 32
	_, err := New(Config{Type: "stepper", Pin1: &p1, Pin2: &p2})
	assert.True(t, errors.Is(err, ErrUnknownDriver))
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "close", Close.String())
}
