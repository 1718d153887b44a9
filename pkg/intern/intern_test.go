package intern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternReusesID(t *testing.T) {
	in := New()
	id1 := in.Intern("hello")
	id2 := in.Intern("hello")
	assert.Equal(t, id1, id2)

	stat := in.Stat()
	assert.Equal(t, 1, stat.UniqueStrings)
	assert.Equal(t, 2, stat.TotalReferences)
}

func TestReleaseUnmapsAtZero(t *testing.T) {
	in := New()
	id := in.Intern("x")
	in.Intern("x")
	in.Release(id)
	_, ok := in.Resolve(id)
	assert.True(t, ok)

	in.Release(id)
	_, ok = in.Resolve(id)
	assert.False(t, ok)
	assert.Equal(t, 0, in.Stat().UniqueStrings)
}

func TestIDsStableAcrossDistinctStrings(t *testing.T) {
	in := New()
	a := in.Intern("a")
	b := in.Intern("b")
	assert.NotEqual(t, a, b)
}
