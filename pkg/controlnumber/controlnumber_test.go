package controlnumber

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextFormat(t *testing.T) {
	g := New("4ps")
	g.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	g.suffix = func() (int, error) { return 42, nil }

	value, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, "4PS-2024-0042", value)
	assert.True(t, Valid(value))
}

func TestStemMatchesNext(t *testing.T) {
	g := New("sch")
	g.now = func() time.Time { return time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC) }
	g.suffix = func() (int, error) { return 7, nil }

	value, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, "SCH-2025-", g.Stem())
	assert.Equal(t, g.Stem()+"0007", value)
}

func TestNextRandomShape(t *testing.T) {
	g := New("SCH")
	for i := 0; i < 50; i++ {
		value, err := g.Next()
		require.NoError(t, err)
		assert.True(t, Valid(value), value)
	}
}

func TestNextPropagatesEntropyFailure(t *testing.T) {
	g := New("SCH")
	g.suffix = func() (int, error) { return 0, errors.New("no entropy") }

	_, err := g.Next()
	require.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.False(t, Valid("4PS-24-0001"))
	assert.False(t, Valid("4ps-2024-0001"))
	assert.False(t, Valid("4PS-2024-001"))
}
