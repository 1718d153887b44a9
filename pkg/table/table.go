// Package table implements the base table from spec §4.G: schema plus
// columns plus change log plus registered-view set and row operations.
package table

import (
	"github.com/google/uuid"

	"github.com/kasuganosora/livetable/pkg/changelog"
	"github.com/kasuganosora/livetable/pkg/column"
	"github.com/kasuganosora/livetable/pkg/filterexpr"
	"github.com/kasuganosora/livetable/pkg/intern"
	"github.com/kasuganosora/livetable/pkg/pyindex"
	"github.com/kasuganosora/livetable/pkg/schema"
	"github.com/kasuganosora/livetable/pkg/seqstore"
	"github.com/kasuganosora/livetable/pkg/tableerr"
	"github.com/kasuganosora/livetable/pkg/value"
)

// View is the contract every registered view implements so Table.Tick can
// drive it generically. Sync consumes whatever changes are pending on the
// view's own cursor and applies them to the view's derived state.
type View = interface {
	Sync()
}

// Options are the table construction options enumerated in spec §6.
type Options struct {
	Name               string
	Schema             *schema.Schema
	UseTieredVector    bool
	UseStringInterning bool
}

type registeredView struct {
	cursor changelog.CursorID
	view   View
}

// Table owns its schema, columns, change log, and the registered-view
// cursor set, plus a shared interner when string interning is enabled.
type Table struct {
	id       uuid.UUID
	name     string
	schema   *schema.Schema
	cols     []*column.Column
	byName   map[string]int
	log      *changelog.Log
	interner *intern.Interner
	rows     int
	views    []registeredView
	onTick   []func()
}

// New constructs a Table from the given options.
func New(opts Options) (*Table, error) {
	if opts.Schema == nil {
		return nil, tableerr.New(tableerr.SchemaViolation, "schema is required")
	}

	var interner *intern.Interner
	if opts.UseStringInterning {
		interner = intern.New()
	}

	t := &Table{
		id:     uuid.New(),
		name:   opts.Name,
		schema: opts.Schema,
		byName: make(map[string]int, opts.Schema.Len()),
		log:    changelog.New(),
		interner: interner,
	}

	for i, def := range opts.Schema.Columns() {
		seq := seqstore.New(opts.UseTieredVector)
		var colInterner *intern.Interner
		if def.Type == value.KindString {
			colInterner = interner
		}
		t.cols = append(t.cols, column.New(def.Name, def.Type, def.Nullable, seq, colInterner))
		t.byName[def.Name] = i
	}
	return t, nil
}

func (t *Table) ID() uuid.UUID       { return t.id }
func (t *Table) Name() string        { return t.name }
func (t *Table) Schema() *schema.Schema { return t.schema }
func (t *Table) Len() int            { return t.rows }
func (t *Table) ColumnNames() []string { return t.schema.Names() }
func (t *Table) Log() *changelog.Log { return t.log }
func (t *Table) Interner() *intern.Interner { return t.interner }

// RegisterCursor registers a new view's change-log cursor at the current
// tail and adds it to the tick() rotation in registration order.
func (t *Table) RegisterCursor(v View) changelog.CursorID {
	id := t.log.RegisterCursor()
	t.views = append(t.views, registeredView{cursor: id, view: v})
	return id
}

// DropCursor deregisters a view's cursor; the host must call this when a
// view is released.
func (t *Table) DropCursor(id changelog.CursorID) {
	t.log.DropCursor(id)
	for i, rv := range t.views {
		if rv.cursor == id {
			t.views = append(t.views[:i], t.views[i+1:]...)
			break
		}
	}
}

// OnTick registers a host callback invoked once per Tick() call, after
// every view has synced (SPEC_FULL §3.10). Purely additive; it never
// participates in change-log or view-maintenance semantics.
func (t *Table) OnTick(fn func()) {
	t.onTick = append(t.onTick, fn)
}

// Tick asks every registered view to consume pending changes, in
// registration order, then compacts the log. It returns the number of
// views synced, including any with nothing pending (spec §9).
func (t *Table) Tick() int {
	for _, rv := range t.views {
		rv.view.Sync()
	}
	t.log.Compact()
	for _, fn := range t.onTick {
		fn()
	}
	return len(t.views)
}

// ClearChangeset advances every registered cursor to the current tail and
// compacts. Used by tests.
func (t *Table) ClearChangeset() {
	tail := t.log.Tail()
	for _, rv := range t.views {
		t.log.Advance(rv.cursor, tail)
	}
	t.log.Compact()
}

func (t *Table) colIndex(name string) (int, error) {
	i, ok := t.byName[name]
	if !ok {
		return 0, tableerr.New(tableerr.SchemaViolation, "unknown column %q", name)
	}
	return i, nil
}

// AppendRow validates row against the schema and appends it to every
// column, emitting an Insert change.
func (t *Table) AppendRow(row map[string]value.Value) (int, error) {
	if err := t.validateRow(row); err != nil {
		return 0, err
	}
	for i, def := range t.schema.Columns() {
		v, ok := row[def.Name]
		if !ok {
			v = value.Null
		}
		if err := t.cols[i].Append(v); err != nil {
			return 0, err
		}
	}
	newRow := t.rows
	t.rows++
	t.log.Append(changelog.Insert, newRow, "", value.Null, value.Null)
	return newRow, nil
}

// validateRow checks that row carries every non-nullable column and no
// unknown column names, and that every present value type-checks.
func (t *Table) validateRow(row map[string]value.Value) error {
	for name := range row {
		idx, ok := t.byName[name]
		if !ok {
			return tableerr.New(tableerr.SchemaViolation, "unknown column %q in row", name)
		}
		v := row[name]
		def := t.schema.Column(idx)
		if v.IsNull() {
			if !def.Nullable {
				return tableerr.New(tableerr.NullViolation, "column %q is not nullable", name)
			}
			continue
		}
		if v.Kind() != def.Type {
			return tableerr.New(tableerr.TypeMismatch, "column %q expects %s, got %s", name, def.Type, v.Kind())
		}
	}
	for _, def := range t.schema.Columns() {
		if !def.Nullable {
			if v, ok := row[def.Name]; !ok || v.IsNull() {
				return tableerr.New(tableerr.SchemaViolation, "missing non-nullable column %q", def.Name)
			}
		}
	}
	return nil
}

// AppendRows validates every row before mutating any column: on any
// failure no column is mutated and no change is emitted. It emits one
// Insert change per row.
func (t *Table) AppendRows(rows []map[string]value.Value) ([]int, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	for _, row := range rows {
		if err := t.validateRow(row); err != nil {
			return nil, err
		}
	}
	out := make([]int, 0, len(rows))
	for _, row := range rows {
		idx, err := t.AppendRow(row)
		if err != nil {
			// Unreachable given the pre-validation pass above; treat as a
			// programming-bug assertion rather than a user-facing path.
			panic("table: row failed to append after passing validation: " + err.Error())
		}
		out = append(out, idx)
	}
	return out, nil
}

// AppendRowsFrom is a bulk-columnar convenience wrapper over AppendRows
// (SPEC_FULL §3.10): cols maps column name to a same-length value slice.
func (t *Table) AppendRowsFrom(cols map[string][]value.Value) ([]int, error) {
	n := -1
	for _, vs := range cols {
		if n == -1 {
			n = len(vs)
		} else if len(vs) != n {
			return nil, tableerr.New(tableerr.ShapeMismatch, "columnar bulk load has mismatched column lengths")
		}
	}
	if n <= 0 {
		return nil, nil
	}
	rows := make([]map[string]value.Value, n)
	for i := 0; i < n; i++ {
		row := make(map[string]value.Value, len(cols))
		for name, vs := range cols {
			row[name] = vs[i]
		}
		rows[i] = row
	}
	return t.AppendRows(rows)
}

// SetValue validates and assigns v to (row, col), emitting an Update
// change. No change is emitted if before == after.
func (t *Table) SetValue(row int, col string, v value.Value) error {
	ri, err := pyindex.Resolve(t.rows, row)
	if err != nil {
		return err
	}
	ci, err := t.colIndex(col)
	if err != nil {
		return err
	}
	before := t.cols[ci].Get(ri)
	if err := t.cols[ci].Set(ri, v); err != nil {
		return err
	}
	after := t.cols[ci].Get(ri)
	if valuesEqual(before, after) {
		return nil
	}
	t.log.Append(changelog.Update, ri, col, before, after)
	return nil
}

func valuesEqual(a, b value.Value) bool {
	if a.IsNull() != b.IsNull() {
		return false
	}
	if a.IsNull() {
		return true
	}
	if a.Interned() && b.Interned() {
		return a.InternID() == b.InternID()
	}
	return value.Compare(a, b, value.NullsLast, nil) == 0 && a.Kind() == b.Kind()
}

// DeleteRow removes a row from every column, emitting a Delete change
// with the pre-image captured per column.
func (t *Table) DeleteRow(row int) error {
	ri, err := pyindex.Resolve(t.rows, row)
	if err != nil {
		return err
	}
	snapshot, err := t.GetRow(ri)
	if err != nil {
		return err
	}
	for _, c := range t.cols {
		c.Remove(ri)
	}
	t.rows--
	t.log.AppendDelete(ri, snapshot)
	return nil
}

// GetRow returns every column's value at row as a name->Value map.
func (t *Table) GetRow(row int) (map[string]value.Value, error) {
	ri, err := pyindex.Resolve(t.rows, row)
	if err != nil {
		return nil, err
	}
	out := make(map[string]value.Value, len(t.cols))
	for _, def := range t.schema.Columns() {
		ci := t.byName[def.Name]
		out[def.Name] = t.cols[ci].Get(ri)
	}
	return out, nil
}

// GetValue returns the value at (row, col).
func (t *Table) GetValue(row int, col string) (value.Value, error) {
	ri, err := pyindex.Resolve(t.rows, row)
	if err != nil {
		return value.Null, err
	}
	ci, err := t.colIndex(col)
	if err != nil {
		return value.Null, err
	}
	return t.cols[ci].Get(ri), nil
}

// --- filterexpr.ColumnSource implementation ---

// ValueAt returns the value at (row, name); unknown column names return
// Null per spec §4.H.
func (t *Table) ValueAt(name string, row int) value.Value {
	ci, ok := t.byName[name]
	if !ok {
		return value.Null
	}
	return t.cols[ci].Get(row)
}

// Resolver returns the string-interner resolver for name's column, or nil
// if the column is unknown or does not intern.
func (t *Table) Resolver(name string) value.Resolver {
	ci, ok := t.byName[name]
	if !ok {
		return nil
	}
	return t.cols[ci].Resolver()
}

// FilterExpr parses and evaluates a predicate against columns, without
// creating a registered view.
func (t *Table) FilterExpr(expr string) ([]int, error) {
	compiled, err := filterexpr.Parse(expr)
	if err != nil {
		return nil, err
	}
	return compiled.EvalAll(t), nil
}

// --- column aggregates (spec §4.G), using the AsF64 fast path ---

func (t *Table) aggregateColumn(col string) (*column.Column, error) {
	ci, err := t.colIndex(col)
	if err != nil {
		return nil, err
	}
	return t.cols[ci], nil
}

// Sum returns the sum of non-null numeric values in col.
func (t *Table) Sum(col string) (float64, error) {
	c, err := t.aggregateColumn(col)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < c.Len(); i++ {
		if f, ok := c.Get(i).AsF64(); ok {
			sum += f
		}
	}
	return sum, nil
}

// Avg returns the mean of non-null numeric values in col, or 0 if empty.
func (t *Table) Avg(col string) (float64, error) {
	c, err := t.aggregateColumn(col)
	if err != nil {
		return 0, err
	}
	var sum float64
	var count int
	for i := 0; i < c.Len(); i++ {
		if f, ok := c.Get(i).AsF64(); ok {
			sum += f
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}

// Min returns the minimum non-null numeric value in col.
func (t *Table) Min(col string) (float64, bool, error) {
	return t.extremum(col, true)
}

// Max returns the maximum non-null numeric value in col.
func (t *Table) Max(col string) (float64, bool, error) {
	return t.extremum(col, false)
}

func (t *Table) extremum(col string, wantMin bool) (float64, bool, error) {
	c, err := t.aggregateColumn(col)
	if err != nil {
		return 0, false, err
	}
	var best float64
	found := false
	for i := 0; i < c.Len(); i++ {
		f, ok := c.Get(i).AsF64()
		if !ok {
			continue
		}
		if !found || (wantMin && f < best) || (!wantMin && f > best) {
			best = f
			found = true
		}
	}
	return best, found, nil
}

// CountNonNull returns the number of non-null values in col.
func (t *Table) CountNonNull(col string) (int, error) {
	c, err := t.aggregateColumn(col)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := 0; i < c.Len(); i++ {
		if !c.Get(i).IsNull() {
			count++
		}
	}
	return count, nil
}

// Column exposes the raw *column.Column for view packages that need
// direct, type-checked access (e.g. extracting key tuples in bulk).
func (t *Table) Column(name string) (*column.Column, error) {
	return t.aggregateColumn(name)
}
