package column

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/livetable/pkg/intern"
	"github.com/kasuganosora/livetable/pkg/seqstore"
	"github.com/kasuganosora/livetable/pkg/tableerr"
	"github.com/kasuganosora/livetable/pkg/value"
)

func TestColumnRejectsNullWhenNotNullable(t *testing.T) {
	c := New("age", value.KindInt32, false, seqstore.New(false), nil)
	err := c.Append(value.Null)
	require.Error(t, err)
	assert.True(t, tableerr.Is(err, tableerr.NullViolation))
}

func TestColumnTypeMismatch(t *testing.T) {
	c := New("age", value.KindInt32, true, seqstore.New(false), nil)
	err := c.Append(value.String("nope"))
	require.Error(t, err)
	assert.True(t, tableerr.Is(err, tableerr.TypeMismatch))
}

func TestColumnInterningSelfAssignIsRefcountNoop(t *testing.T) {
	in := intern.New()
	c := New("name", value.KindString, true, seqstore.New(false), in)
	require.NoError(t, c.Append(value.String("west")))

	before := in.Stat().TotalReferences
	got := c.Get(0)
	require.NoError(t, c.Set(0, value.String(mustResolve(t, in, got))))
	after := in.Stat().TotalReferences
	assert.Equal(t, before, after)
}

func mustResolve(t *testing.T, in *intern.Interner, v value.Value) string {
	t.Helper()
	s, ok := in.Resolve(v.InternID())
	require.True(t, ok)
	return s
}

func TestColumnRemoveReleasesInternedRef(t *testing.T) {
	in := intern.New()
	c := New("name", value.KindString, true, seqstore.New(false), in)
	require.NoError(t, c.Append(value.String("west")))
	assert.Equal(t, 1, in.Stat().UniqueStrings)

	c.Remove(0)
	assert.Equal(t, 0, in.Stat().UniqueStrings)
}
