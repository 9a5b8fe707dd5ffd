package sun

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyBias(t *testing.T) {
	const base = 400

	tests := []struct {
		name string
		code byte
		want int
	}{
		{"later opening", 150, base + 100},
		{"earlier opening", 40, base - 80},
		{"neutral middle", 110, base},
		{"neutral low edge", 100, base},
		{"neutral high edge", 125, base},
		{"first later code", 126, base + 52},
		{"last earlier code", 99, base - 198},
		{"zero code", 0, base},
		{"max code", 255, base + 310},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyBias(base, tt.code))
		})
	}
}

func TestApplyBias_ClampsToDay(t *testing.T) {
	assert.Equal(t, 0, ApplyBias(60, 99))
	assert.Equal(t, MinutesPerDay-1, ApplyBias(1300, 255))
}

func TestScheduleDayNight(t *testing.T) {
	s := Schedule{Open: 420, Close: 1080}

	tests := []struct {
		minute int
		day    bool
	}{
		{500, true},
		{1200, false},
		{420, true},
		{1080, true},
		{419, false},
		{1081, false},
		{0, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.day, s.IsDay(tt.minute), "minute %d", tt.minute)
		assert.Equal(t, !tt.day, s.IsNight(tt.minute), "minute %d", tt.minute)
	}
}

func TestBase_MidsummerSouthernEngland(t *testing.T) {
	bst := time.FixedZone("BST", 3600)
	c := New(51.1497923, -0.23745, bst)

	rise, set, err := c.Base(time.Date(2024, time.June, 21, 12, 0, 0, 0, bst))
	require.NoError(t, err)

	// ~04:45 and ~21:20 local
	assert.InDelta(t, 4*60+45, rise, 15)
	assert.InDelta(t, 21*60+20, set, 15)
}

func TestSchedule_AppliesBiasToSunriseOnly(t *testing.T) {
	c := New(51.1497923, -0.23745, time.UTC)
	day := time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC)

	rise, set, err := c.Base(day)
	require.NoError(t, err)

	s, err := c.Schedule(day, 150)
	require.NoError(t, err)
	assert.Equal(t, rise+100, s.Open)
	assert.Equal(t, set, s.Close)

	s, err = c.Schedule(day, 110)
	require.NoError(t, err)
	assert.Equal(t, rise, s.Open)
}

func TestBase_PolarNight(t *testing.T) {
	c := New(78.22, 15.65, time.UTC)
	_, _, err := c.Base(time.Date(2024, time.December, 21, 12, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, ErrNoSunEvent))
}

func TestFromConfig_BadTimezone(t *testing.T) {
	_, err := FromConfig(Config{Timezone: "Mars/Olympus"})
	assert.Error(t, err)

	c, err := FromConfig(Config{Latitude: 1, Longitude: 2})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, c.Location())
}

func TestMinuteOfDay(t *testing.T) {
	assert.Equal(t, 7*60+5, MinuteOfDay(time.Date(2024, 1, 1, 7, 5, 59, 0, time.UTC)))
}
