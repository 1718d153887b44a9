package table_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/livetable/pkg/filterexpr"
	"github.com/kasuganosora/livetable/pkg/schema"
	"github.com/kasuganosora/livetable/pkg/table"
	"github.com/kasuganosora/livetable/pkg/value"
	"github.com/kasuganosora/livetable/pkg/view/aggview"
	"github.com/kasuganosora/livetable/pkg/view/filterview"
	"github.com/kasuganosora/livetable/pkg/view/joinview"
	"github.com/kasuganosora/livetable/pkg/view/sortedview"
)

// S1 — Filter + Sort + Aggregate cascade.
func TestScenarioFilterSortAggregateCascade(t *testing.T) {
	sch := schema.New(
		schema.ColumnDef{Name: "region", Type: value.KindString},
		schema.ColumnDef{Name: "amount", Type: value.KindInt32},
	)
	tb, err := table.New(table.Options{Name: "sales", Schema: sch})
	require.NoError(t, err)

	rows := []map[string]value.Value{
		{"region": value.String("West"), "amount": value.Int32(100)},
		{"region": value.String("East"), "amount": value.Int32(200)},
		{"region": value.String("West"), "amount": value.Int32(150)},
		{"region": value.String("North"), "amount": value.Int32(150)},
	}
	for _, r := range rows {
		_, err := tb.AppendRow(r)
		require.NoError(t, err)
	}

	expr, err := filterexpr.Parse("amount >= 150")
	require.NoError(t, err)
	f := filterview.NewFromExpr(tb, expr, nil)
	defer f.Close()

	o := sortedview.New(tb, []sortedview.Key{{Column: "amount", Descending: true}})
	defer o.Close()

	g, err := aggview.New(tb, []string{"region"}, []aggview.Aggregate{{Name: "total", Column: "amount", Func: aggview.Sum}})
	require.NoError(t, err)
	defer g.Close()

	_, err = tb.AppendRow(map[string]value.Value{"region": value.String("West"), "amount": value.Int32(300)})
	require.NoError(t, err)
	tb.Tick()

	assert.Equal(t, []int{1, 2, 3, 4}, f.Indices())

	firstParent, err := o.GetParentIndex(0)
	require.NoError(t, err)
	firstRow, err := tb.GetRow(firstParent)
	require.NoError(t, err)
	assert.Equal(t, value.Int32(300), firstRow["amount"])

	totals := map[string]value.Value{}
	for i := 0; i < g.Len(); i++ {
		r, err := g.GetRow(i)
		require.NoError(t, err)
		totals[r["region"].Str()] = r["total"]
	}
	assert.Equal(t, value.Float64(550), totals["West"])
	assert.Equal(t, value.Float64(200), totals["East"])
	assert.Equal(t, value.Float64(150), totals["North"])
}

// S2 — Percentile.
func TestScenarioPercentile(t *testing.T) {
	sch := schema.New(
		schema.ColumnDef{Name: "grp", Type: value.KindString},
		schema.ColumnDef{Name: "v", Type: value.KindFloat64},
	)
	tb, err := table.New(table.Options{Name: "measurements", Schema: sch})
	require.NoError(t, err)

	for _, v := range []float64{10, 20, 30, 40, 50} {
		_, err := tb.AppendRow(map[string]value.Value{"grp": value.String("A"), "v": value.Float64(v)})
		require.NoError(t, err)
	}

	g, err := aggview.New(tb, []string{"grp"}, []aggview.Aggregate{
		{Name: "p25", Column: "v", Func: aggview.Percentile, Percentile: 0.25},
		{Name: "median", Column: "v", Func: aggview.Median},
	})
	require.NoError(t, err)
	defer g.Close()

	require.Equal(t, 1, g.Len())
	row, err := g.GetRow(0)
	require.NoError(t, err)
	assert.Equal(t, "A", row["grp"].Str())
	assert.Equal(t, value.Float64(20), row["p25"])
	assert.Equal(t, value.Float64(30), row["median"])

	_, err = tb.AppendRow(map[string]value.Value{"grp": value.String("A"), "v": value.Float64(60)})
	require.NoError(t, err)
	tb.Tick()

	row, err = g.GetRow(0)
	require.NoError(t, err)
	assert.Equal(t, value.Float64(35), row["median"])
}

// S3 — LEFT join with unmatched.
func TestScenarioLeftJoinWithUnmatched(t *testing.T) {
	usersSchema := schema.New(
		schema.ColumnDef{Name: "id", Type: value.KindInt32},
		schema.ColumnDef{Name: "name", Type: value.KindString},
	)
	users, err := table.New(table.Options{Name: "users", Schema: usersSchema})
	require.NoError(t, err)

	ordersSchema := schema.New(
		schema.ColumnDef{Name: "user_id", Type: value.KindInt32},
		schema.ColumnDef{Name: "amount", Type: value.KindFloat64},
	)
	orders, err := table.New(table.Options{Name: "orders", Schema: ordersSchema})
	require.NoError(t, err)

	for _, r := range []map[string]value.Value{
		{"id": value.Int32(1), "name": value.String("Alice")},
		{"id": value.Int32(2), "name": value.String("Bob")},
		{"id": value.Int32(3), "name": value.String("Carol")},
	} {
		_, err := users.AppendRow(r)
		require.NoError(t, err)
	}
	var aliceOrderRow int
	for _, r := range []map[string]value.Value{
		{"user_id": value.Int32(1), "amount": value.Float64(10)},
		{"user_id": value.Int32(2), "amount": value.Float64(20)},
	} {
		idx, err := orders.AppendRow(r)
		require.NoError(t, err)
		if r["user_id"] == value.Int32(1) {
			aliceOrderRow = idx
		}
	}

	j, err := joinview.New(users, orders, joinview.Left, []joinview.KeyPair{{LeftCol: "id", RightCol: "user_id"}})
	require.NoError(t, err)
	defer j.Close()

	require.Equal(t, 3, j.Len())
	byName := map[string]map[string]value.Value{}
	for i := 0; i < j.Len(); i++ {
		r, err := j.GetRow(i)
		require.NoError(t, err)
		byName[r["name"].Str()] = r
	}
	assert.True(t, byName["Carol"]["right_amount"].IsNull())
	assert.Equal(t, value.Float64(10), byName["Alice"]["right_amount"])

	require.NoError(t, orders.DeleteRow(aliceOrderRow))
	users.Tick()
	orders.Tick()

	byName = map[string]map[string]value.Value{}
	for i := 0; i < j.Len(); i++ {
		r, err := j.GetRow(i)
		require.NoError(t, err)
		byName[r["name"].Str()] = r
	}
	assert.True(t, byName["Alice"]["right_amount"].IsNull())
}

// S4 — Multi-column INNER join.
func TestScenarioMultiColumnInnerJoin(t *testing.T) {
	leftSchema := schema.New(
		schema.ColumnDef{Name: "a", Type: value.KindInt32},
		schema.ColumnDef{Name: "b", Type: value.KindInt32},
	)
	left, err := table.New(table.Options{Name: "left", Schema: leftSchema})
	require.NoError(t, err)

	rightSchema := schema.New(
		schema.ColumnDef{Name: "x", Type: value.KindInt32},
		schema.ColumnDef{Name: "y", Type: value.KindInt32},
	)
	right, err := table.New(table.Options{Name: "right", Schema: rightSchema})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := left.AppendRow(map[string]value.Value{"a": value.Int32(1), "b": value.Int32(2)})
		require.NoError(t, err)
		_, err = right.AppendRow(map[string]value.Value{"x": value.Int32(1), "y": value.Int32(2)})
		require.NoError(t, err)
	}

	j, err := joinview.New(left, right, joinview.Inner,
		[]joinview.KeyPair{{LeftCol: "a", RightCol: "x"}, {LeftCol: "b", RightCol: "y"}})
	require.NoError(t, err)
	defer j.Close()

	assert.Equal(t, 4, j.Len())
}

// S5 — Filter-expression parse + three-valued logic.
func TestScenarioFilterExprThreeValuedLogic(t *testing.T) {
	sch := schema.New(
		schema.ColumnDef{Name: "id", Type: value.KindInt32},
		schema.ColumnDef{Name: "age", Type: value.KindInt32, Nullable: true},
		schema.ColumnDef{Name: "active", Type: value.KindBool},
	)
	tb, err := table.New(table.Options{Name: "people", Schema: sch})
	require.NoError(t, err)

	for _, r := range []map[string]value.Value{
		{"id": value.Int32(1), "age": value.Int32(25), "active": value.Bool(true)},
		{"id": value.Int32(2), "age": value.Null, "active": value.Bool(true)},
		{"id": value.Int32(3), "age": value.Int32(30), "active": value.Bool(false)},
	} {
		_, err := tb.AppendRow(r)
		require.NoError(t, err)
	}

	rowsMatched, err := tb.FilterExpr("age > 20 AND active = true")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, rowsMatched)
}

// S6 — Compaction safety.
func TestScenarioCompactionSafety(t *testing.T) {
	sch := schema.New(schema.ColumnDef{Name: "n", Type: value.KindInt32})
	tb, err := table.New(table.Options{Name: "stream", Schema: sch})
	require.NoError(t, err)

	expr, err := filterexpr.Parse("n >= 0")
	require.NoError(t, err)
	f1 := filterview.NewFromExpr(tb, expr, nil)
	defer f1.Close()
	f2 := filterview.NewFromExpr(tb, expr, nil)
	defer f2.Close()

	for i := 0; i < 1000; i++ {
		_, err := tb.AppendRow(map[string]value.Value{"n": value.Int32(int32(i))})
		require.NoError(t, err)
	}
	f1.Sync()

	for i := 1000; i < 2000; i++ {
		_, err := tb.AppendRow(map[string]value.Value{"n": value.Int32(int32(i))})
		require.NoError(t, err)
	}
	tb.Tick()

	assert.Equal(t, 2000, f1.Len())
	assert.Equal(t, 2000, f2.Len())
	assert.Equal(t, 0, tb.Log().Len())
}
