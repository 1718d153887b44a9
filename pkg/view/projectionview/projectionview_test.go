package projectionview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/livetable/pkg/schema"
	"github.com/kasuganosora/livetable/pkg/table"
	"github.com/kasuganosora/livetable/pkg/value"
)

func newSrc(t *testing.T) *table.Table {
	t.Helper()
	sch := schema.New(
		schema.ColumnDef{Name: "region", Type: value.KindString, Nullable: false},
		schema.ColumnDef{Name: "amount", Type: value.KindInt32, Nullable: false},
	)
	tb, err := table.New(table.Options{Name: "t", Schema: sch})
	require.NoError(t, err)
	return tb
}

func TestProjectionPassesThroughDeclaredColumns(t *testing.T) {
	tb := newSrc(t)
	_, _ = tb.AppendRow(map[string]value.Value{"region": value.String("West"), "amount": value.Int32(100)})

	v := New(tb, []string{"region"}, nil)
	row, err := v.GetRow(0)
	require.NoError(t, err)
	assert.Equal(t, value.String("West"), row["region"])
	_, hasAmount := row["amount"]
	assert.False(t, hasAmount)
}

func TestProjectionComputedColumnRecomputesOnEveryRead(t *testing.T) {
	tb := newSrc(t)
	_, _ = tb.AppendRow(map[string]value.Value{"region": value.String("West"), "amount": value.Int32(100)})

	doubled := Computed{Name: "doubled", Fn: func(row map[string]value.Value) value.Value {
		f, _ := row["amount"].AsF64()
		return value.Float64(f * 2)
	}}
	v := New(tb, []string{"region", "amount"}, []Computed{doubled})

	row, err := v.GetRow(0)
	require.NoError(t, err)
	assert.Equal(t, value.Float64(200), row["doubled"])

	require.NoError(t, tb.SetValue(0, "amount", value.Int32(300)))
	row2, err := v.GetRow(0)
	require.NoError(t, err)
	assert.Equal(t, value.Float64(600), row2["doubled"], "computed column must reflect the latest underlying value, not a cached one")
}

func TestProjectionTracksParentRowCount(t *testing.T) {
	tb := newSrc(t)
	v := New(tb, []string{"region"}, nil)
	assert.Equal(t, 0, v.Len())

	_, _ = tb.AppendRow(map[string]value.Value{"region": value.String("A"), "amount": value.Int32(1)})
	_, _ = tb.AppendRow(map[string]value.Value{"region": value.String("B"), "amount": value.Int32(2)})
	v.Sync()
	assert.Equal(t, 2, v.Len())

	require.NoError(t, tb.DeleteRow(0))
	v.Sync()
	assert.Equal(t, 1, v.Len())
}
