package clock

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystem_UnsyncedClock(t *testing.T) {
	c := NewSystem(nil)
	c.now = func() time.Time { return time.Unix(0, 0) }

	_, err := c.Now()
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestSystem_ReportsInLocation(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	c := NewSystem(loc)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	got, err := c.Now()
	require.NoError(t, err)
	assert.Equal(t, 12, got.Hour())
	assert.Equal(t, loc, got.Location())
}

func TestFixed(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	got, err := (&Fixed{T: want}).Now()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = (&Fixed{Err: ErrUnavailable}).Now()
	assert.ErrorIs(t, err, ErrUnavailable)
}
