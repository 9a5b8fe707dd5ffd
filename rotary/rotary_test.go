package rotary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// one full cycle of the quadrature sequence in the counting-up direction
var forward = [][2]int{{1, 0}, {1, 1}, {0, 1}, {0, 0}}

func TestDecoder_CountsBothDirections(t *testing.T) {
	d := NewDecoder(0, 0, false)

	for i := 0; i < 3; i++ {
		for _, s := range forward {
			d.Update(s[0], s[1])
		}
	}
	assert.Equal(t, int32(12), d.Read())

	for i := len(forward) - 2; i >= 0; i-- {
		d.Update(forward[i][0], forward[i][1])
	}
	d.Update(0, 0)
	assert.Equal(t, int32(8), d.Read())
}

func TestDecoder_Reverse(t *testing.T) {
	d := NewDecoder(0, 0, true)
	for _, s := range forward {
		d.Update(s[0], s[1])
	}
	assert.Equal(t, int32(-4), d.Read())
}

func TestDecoder_IgnoresBounceAndSkips(t *testing.T) {
	d := NewDecoder(0, 0, false)
	d.Update(0, 0)
	d.Update(1, 1)
	assert.Equal(t, int32(0), d.Read())
}

func TestCounter_Write(t *testing.T) {
	var c Counter
	c.Write(30000)
	assert.Equal(t, int32(30000), c.Read())
}

func TestNew_None(t *testing.T) {
	e, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Static{}, e)
	e.Write(7)
	assert.Equal(t, int32(7), e.Read())
	assert.NoError(t, e.Release())
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(Config{Type: "optical"})
	assert.Error(t, err)
}
