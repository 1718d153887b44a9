package joinview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/livetable/pkg/schema"
	"github.com/kasuganosora/livetable/pkg/table"
	"github.com/kasuganosora/livetable/pkg/value"
)

func newOrders(t *testing.T) *table.Table {
	t.Helper()
	sch := schema.New(
		schema.ColumnDef{Name: "customer_id", Type: value.KindInt32, Nullable: true},
		schema.ColumnDef{Name: "total", Type: value.KindInt32, Nullable: false},
	)
	tb, err := table.New(table.Options{Name: "orders", Schema: sch})
	require.NoError(t, err)
	return tb
}

func newCustomers(t *testing.T) *table.Table {
	t.Helper()
	sch := schema.New(
		schema.ColumnDef{Name: "id", Type: value.KindInt32, Nullable: false},
		schema.ColumnDef{Name: "name", Type: value.KindString, Nullable: false},
	)
	tb, err := table.New(table.Options{Name: "customers", Schema: sch})
	require.NoError(t, err)
	return tb
}

func TestInnerJoinMatchesSingleEqualityKey(t *testing.T) {
	orders := newOrders(t)
	customers := newCustomers(t)

	_, _ = customers.AppendRow(map[string]value.Value{"id": value.Int32(1), "name": value.String("Ada")})
	_, _ = customers.AppendRow(map[string]value.Value{"id": value.Int32(2), "name": value.String("Bob")})

	_, _ = orders.AppendRow(map[string]value.Value{"customer_id": value.Int32(1), "total": value.Int32(100)})
	_, _ = orders.AppendRow(map[string]value.Value{"customer_id": value.Int32(3), "total": value.Int32(200)})

	v, err := New(orders, customers, Inner, []KeyPair{{LeftCol: "customer_id", RightCol: "id"}})
	require.NoError(t, err)
	assert.Equal(t, 1, v.Len())

	row, err := v.GetRow(0)
	require.NoError(t, err)
	assert.Equal(t, value.Int32(100), row["total"])
	assert.Equal(t, value.String("Ada"), row["right_name"])
}

func TestLeftJoinPadsUnmatchedRowsWithNull(t *testing.T) {
	orders := newOrders(t)
	customers := newCustomers(t)

	_, _ = customers.AppendRow(map[string]value.Value{"id": value.Int32(1), "name": value.String("Ada")})

	_, _ = orders.AppendRow(map[string]value.Value{"customer_id": value.Int32(1), "total": value.Int32(100)})
	_, _ = orders.AppendRow(map[string]value.Value{"customer_id": value.Int32(99), "total": value.Int32(50)})

	v, err := New(orders, customers, Left, []KeyPair{{LeftCol: "customer_id", RightCol: "id"}})
	require.NoError(t, err)
	require.Equal(t, 2, v.Len())

	row1, err := v.GetRow(1)
	require.NoError(t, err)
	assert.True(t, row1["right_name"].IsNull())
}

func TestNullKeyExcludedFromEitherSide(t *testing.T) {
	orders := newOrders(t)
	customers := newCustomers(t)

	_, _ = customers.AppendRow(map[string]value.Value{"id": value.Int32(1), "name": value.String("Ada")})
	_, _ = orders.AppendRow(map[string]value.Value{"customer_id": value.Null, "total": value.Int32(100)})

	v, err := New(orders, customers, Left, []KeyPair{{LeftCol: "customer_id", RightCol: "id"}})
	require.NoError(t, err)
	require.Equal(t, 1, v.Len())
	row, err := v.GetRow(0)
	require.NoError(t, err)
	assert.True(t, row["right_name"].IsNull())
}

func TestJoinMaintainsOnInsertAndDelete(t *testing.T) {
	orders := newOrders(t)
	customers := newCustomers(t)
	_, _ = customers.AppendRow(map[string]value.Value{"id": value.Int32(1), "name": value.String("Ada")})

	v, err := New(orders, customers, Inner, []KeyPair{{LeftCol: "customer_id", RightCol: "id"}})
	require.NoError(t, err)
	assert.Equal(t, 0, v.Len())

	_, _ = orders.AppendRow(map[string]value.Value{"customer_id": value.Int32(1), "total": value.Int32(10)})
	orders.Tick()
	assert.Equal(t, 1, v.Len())

	require.NoError(t, orders.DeleteRow(0))
	orders.Tick()
	assert.Equal(t, 0, v.Len())
}

func TestNewRejectsEmptyKeys(t *testing.T) {
	orders := newOrders(t)
	customers := newCustomers(t)

	_, err := New(orders, customers, Inner, nil)
	require.Error(t, err)
}
