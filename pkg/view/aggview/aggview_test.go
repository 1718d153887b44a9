package aggview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/livetable/pkg/schema"
	"github.com/kasuganosora/livetable/pkg/table"
	"github.com/kasuganosora/livetable/pkg/tableerr"
	"github.com/kasuganosora/livetable/pkg/value"
)

func newSales(t *testing.T) *table.Table {
	t.Helper()
	sch := schema.New(
		schema.ColumnDef{Name: "region", Type: value.KindString, Nullable: false},
		schema.ColumnDef{Name: "amount", Type: value.KindInt32, Nullable: false},
	)
	tb, err := table.New(table.Options{Name: "sales", Schema: sch})
	require.NoError(t, err)
	return tb
}

func findGroup(t *testing.T, v *View, region string) map[string]value.Value {
	t.Helper()
	for i := 0; i < v.Len(); i++ {
		row, err := v.GetRow(i)
		require.NoError(t, err)
		if row["region"].Str() == region {
			return row
		}
	}
	t.Fatalf("no group for region %q", region)
	return nil
}

func TestAggregateViewSumAvgCountPerGroup(t *testing.T) {
	tb := newSales(t)
	_, _ = tb.AppendRow(map[string]value.Value{"region": value.String("West"), "amount": value.Int32(100)})
	_, _ = tb.AppendRow(map[string]value.Value{"region": value.String("West"), "amount": value.Int32(200)})
	_, _ = tb.AppendRow(map[string]value.Value{"region": value.String("East"), "amount": value.Int32(50)})

	v, err := New(tb, []string{"region"}, []Aggregate{
		{Name: "total", Column: "amount", Func: Sum},
		{Name: "avg_amount", Column: "amount", Func: Avg},
		{Name: "n", Column: "amount", Func: Count},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, v.Len())
	west := findGroup(t, v, "West")
	assert.Equal(t, value.Float64(300), west["total"])
	assert.Equal(t, value.Float64(150), west["avg_amount"])
	assert.Equal(t, value.Int64(2), west["n"])
}

func TestAggregateViewCountAndAvgIgnoreNulls(t *testing.T) {
	sch := schema.New(
		schema.ColumnDef{Name: "region", Type: value.KindString, Nullable: false},
		schema.ColumnDef{Name: "amount", Type: value.KindInt32, Nullable: true},
	)
	tb, err := table.New(table.Options{Name: "sales", Schema: sch})
	require.NoError(t, err)

	_, _ = tb.AppendRow(map[string]value.Value{"region": value.String("West"), "amount": value.Int32(10)})
	_, _ = tb.AppendRow(map[string]value.Value{"region": value.String("West"), "amount": value.Null})
	_, _ = tb.AppendRow(map[string]value.Value{"region": value.String("West"), "amount": value.Int32(30)})

	v, err := New(tb, []string{"region"}, []Aggregate{
		{Name: "n", Column: "amount", Func: Count},
		{Name: "avg_amount", Column: "amount", Func: Avg},
	})
	require.NoError(t, err)

	west := findGroup(t, v, "West")
	assert.Equal(t, value.Int64(2), west["n"], "Count must count non-null source values, not group membership")
	assert.Equal(t, value.Float64(20), west["avg_amount"], "Avg must divide by the non-null count, not the group's row count")
}

func TestAggregateViewMedianAndPercentile(t *testing.T) {
	tb := newSales(t)
	for _, a := range []int32{10, 20, 30, 40} {
		_, _ = tb.AppendRow(map[string]value.Value{"region": value.String("West"), "amount": value.Int32(a)})
	}

	fn, q, err := ParseFunc("p50")
	require.NoError(t, err)
	v, err := New(tb, []string{"region"}, []Aggregate{{Name: "p50", Column: "amount", Func: fn, Percentile: q}})
	require.NoError(t, err)

	row := findGroup(t, v, "West")
	assert.InDelta(t, 25.0, row["p50"].Float(), 0.0001)
}

func TestAggregateViewGroupLifecycleOnDelete(t *testing.T) {
	tb := newSales(t)
	_, _ = tb.AppendRow(map[string]value.Value{"region": value.String("East"), "amount": value.Int32(50)})

	v, err := New(tb, []string{"region"}, []Aggregate{{Name: "total", Column: "amount", Func: Sum}})
	require.NoError(t, err)
	assert.Equal(t, 1, v.Len())

	require.NoError(t, tb.DeleteRow(0))
	v.Sync()
	assert.Equal(t, 0, v.Len(), "group must be removed once its last member row is deleted")
}

func TestAggregateViewMaintainsOnInsertAndUpdate(t *testing.T) {
	tb := newSales(t)
	v, err := New(tb, []string{"region"}, []Aggregate{{Name: "total", Column: "amount", Func: Sum}})
	require.NoError(t, err)

	_, _ = tb.AppendRow(map[string]value.Value{"region": value.String("North"), "amount": value.Int32(10)})
	v.Sync()
	row := findGroup(t, v, "North")
	assert.Equal(t, value.Float64(10), row["total"])

	require.NoError(t, tb.SetValue(0, "amount", value.Int32(40)))
	v.Sync()
	row = findGroup(t, v, "North")
	assert.Equal(t, value.Float64(40), row["total"])
}

func TestParseFuncRejectsUnknown(t *testing.T) {
	_, _, err := ParseFunc("bogus")
	require.Error(t, err)
}

func TestParseFuncRejectsPercentileOutOfRange(t *testing.T) {
	_, _, err := ParseFunc("percentile(-0.5)")
	require.Error(t, err)
	assert.True(t, tableerr.Is(err, tableerr.UnknownAggregate))

	_, _, err = ParseFunc("p150")
	require.Error(t, err)
	assert.True(t, tableerr.Is(err, tableerr.UnknownAggregate))
}

func TestNewRejectsDirectlyConstructedPercentileOutOfRange(t *testing.T) {
	tb := newSales(t)
	_, err := New(tb, []string{"region"}, []Aggregate{{Name: "bad", Column: "amount", Func: Percentile, Percentile: -0.5}})
	require.Error(t, err)
	assert.True(t, tableerr.Is(err, tableerr.UnknownAggregate))
}
