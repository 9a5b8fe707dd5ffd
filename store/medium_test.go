package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ErasedAndBounds(t *testing.T) {
	m := NewMemory()

	b, err := m.Get(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), b)

	_, err = m.Get(MediumSize)
	assert.True(t, errors.Is(err, ErrOffset))
	assert.True(t, errors.Is(m.Put(-1, 0), ErrOffset))
}

func TestFile_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "door.img")

	f, err := OpenFile(path)
	require.NoError(t, err)

	b, err := f.Get(3)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), b)

	require.NoError(t, f.Put(3, 42))
	require.NoError(t, f.Commit())
	require.NoError(t, f.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, MediumSize, info.Size())

	again, err := OpenFile(path)
	require.NoError(t, err)
	b, err = again.Get(3)
	require.NoError(t, err)
	assert.Equal(t, byte(42), b)
}

func TestFile_UncommittedWritesAreLost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "door.img")

	f, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Put(1, 5))

	again, err := OpenFile(path)
	require.NoError(t, err)
	b, _ := again.Get(1)
	assert.Equal(t, byte(0xFF), b)
}

func TestFile_EmptyPath(t *testing.T) {
	_, err := OpenFile("")
	assert.True(t, errors.Is(err, ErrMedium))
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "door.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)

	b, err := s.Get(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), b)

	require.NoError(t, s.Put(0, 17))
	require.NoError(t, s.Put(9, 75))
	require.NoError(t, s.Commit())
	require.NoError(t, s.Put(9, 80))
	require.NoError(t, s.Commit())
	require.NoError(t, s.Close())

	again, err := OpenSQLite(path)
	require.NoError(t, err)
	defer again.Close()

	b, _ = again.Get(0)
	assert.Equal(t, byte(17), b)
	b, _ = again.Get(9)
	assert.Equal(t, byte(80), b)
}

func TestStore_OverSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "door.db")

	m, err := OpenMedium(MediumConfig{Type: "sqlite", Path: path})
	require.NoError(t, err)
	s := New(m, nil)
	bootstrapped, err := s.Load()
	require.NoError(t, err)
	require.True(t, bootstrapped)
	s.SetUpperThreshold(80)
	id := s.Config().ID
	require.NoError(t, m.Close())

	m, err = OpenMedium(MediumConfig{Type: "sqlite", Path: path})
	require.NoError(t, err)
	defer m.Close()
	s = New(m, nil)
	bootstrapped, err = s.Load()
	require.NoError(t, err)
	assert.False(t, bootstrapped)
	assert.Equal(t, id, s.Config().ID)
	assert.Equal(t, byte(80), s.Config().UpperThreshold)
}

func TestOpenMedium_UnknownType(t *testing.T) {
	_, err := OpenMedium(MediumConfig{Type: "eeprom"})
	assert.True(t, errors.Is(err, ErrMedium))
}
