package changelog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kasuganosora/livetable/pkg/value"
)

func TestNewCursorSeesOnlyFutureChanges(t *testing.T) {
	l := New()
	l.Append(Insert, 0, "", value.Null, value.Null)

	cur := l.RegisterCursor()
	assert.Empty(t, l.IterFrom(cur))

	l.Append(Insert, 1, "", value.Null, value.Null)
	changes := l.IterFrom(cur)
	assert.Len(t, changes, 1)
	assert.Equal(t, 1, changes[0].Row)
}

func TestCompactionRespectsSlowestCursor(t *testing.T) {
	l := New()
	a := l.RegisterCursor()
	b := l.RegisterCursor()

	for i := 0; i < 5; i++ {
		l.Append(Insert, i, "", value.Null, value.Null)
	}

	l.Advance(a, l.Tail())
	l.Compact()
	assert.Equal(t, 5, l.Len(), "cursor b has not consumed anything yet")

	l.Advance(b, l.Tail())
	l.Compact()
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, l.Tail(), l.BaseSeq())
}

func TestDropCursorUnblocksCompaction(t *testing.T) {
	l := New()
	a := l.RegisterCursor()
	b := l.RegisterCursor()
	l.Append(Insert, 0, "", value.Null, value.Null)
	l.Advance(a, l.Tail())
	l.DropCursor(b)
	l.Compact()
	assert.Equal(t, 0, l.Len())
}

func TestInvariantBaseLEQNextSeqLEQBasePlusLen(t *testing.T) {
	l := New()
	cur := l.RegisterCursor()
	for i := 0; i < 1000; i++ {
		l.Append(Insert, i, "", value.Null, value.Null)
	}
	l.Advance(cur, Seq(500))
	assert.GreaterOrEqual(t, int64(l.CursorNextSeq(cur)), int64(l.BaseSeq()))
	assert.LessOrEqual(t, int64(l.CursorNextSeq(cur)), int64(l.BaseSeq())+int64(l.Len()))
}
