package pyindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/livetable/pkg/tableerr"
)

func TestNegativeIndexing(t *testing.T) {
	i, err := Resolve(5, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	_, err = Resolve(5, -6)
	require.Error(t, err)
	assert.True(t, tableerr.Is(err, tableerr.OutOfRange))
}

func TestSliceStartGEStopEmpty(t *testing.T) {
	start, stop, err := Slice(10, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, start, stop)

	start, stop, err = Slice(10, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, start, stop)
}

func TestSliceNegativeBounds(t *testing.T) {
	start, stop, err := Slice(10, -3, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, start)
	assert.Equal(t, 10, stop)
}
