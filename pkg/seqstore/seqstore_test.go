package seqstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kasuganosora/livetable/pkg/value"
)

func runSequenceContract(t *testing.T, s Sequence) {
	t.Helper()
	for i := 0; i < 20; i++ {
		s.Append(value.Int32(int32(i)))
	}
	assert.Equal(t, 20, s.Len())
	assert.Equal(t, int64(0), s.Get(0).Int())
	assert.Equal(t, int64(19), s.Get(19).Int())

	s.Insert(5, value.Int32(100))
	assert.Equal(t, 21, s.Len())
	assert.Equal(t, int64(100), s.Get(5).Int())
	assert.Equal(t, int64(4), s.Get(4).Int())
	assert.Equal(t, int64(5), s.Get(6).Int())

	s.Remove(5)
	assert.Equal(t, 20, s.Len())
	assert.Equal(t, int64(5), s.Get(5).Int())

	s.Set(0, value.Int32(999))
	assert.Equal(t, int64(999), s.Get(0).Int())
}

func TestArraySequenceContract(t *testing.T) {
	runSequenceContract(t, NewArraySequence())
}

func TestTieredSequenceContract(t *testing.T) {
	runSequenceContract(t, NewTieredSequence())
}

func TestTieredSequenceManyInsertsAndRemoves(t *testing.T) {
	s := NewTieredSequence()
	for i := 0; i < 500; i++ {
		s.Insert(s.Len(), value.Int64(int64(i)))
	}
	for i := 0; i < 500; i++ {
		assert.Equal(t, int64(i), s.Get(i).Int())
	}
	for s.Len() > 0 {
		s.Remove(s.Len() / 2)
	}
	assert.Equal(t, 0, s.Len())
}
