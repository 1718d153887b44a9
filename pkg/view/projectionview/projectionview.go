// Package projectionview implements the ProjectionView/ComputedView
// maintainer from spec §4.J: a column subset of the parent table, plus
// zero or more computed columns whose values are derived on every read
// rather than cached (Open Question decision: recompute-on-read).
package projectionview

import (
	"github.com/kasuganosora/livetable/pkg/changelog"
	"github.com/kasuganosora/livetable/pkg/pyindex"
	"github.com/kasuganosora/livetable/pkg/tableerr"
	"github.com/kasuganosora/livetable/pkg/value"
)

// Source is the subset of *table.Table a ProjectionView needs.
type Source interface {
	Len() int
	ValueAt(name string, row int) value.Value
	RegisterCursor(v interface{ Sync() }) changelog.CursorID
	DropCursor(id changelog.CursorID)
	Log() *changelog.Log
}

// ComputeFunc derives a computed column's value from the row's pass-through
// (projected) columns; parent columns that are not projected are not in the
// map it receives. It is invoked on every read, never cached, so it must be pure and
// cheap.
type ComputeFunc func(row map[string]value.Value) value.Value

// Computed names one computed column and the function deriving it.
type Computed struct {
	Name string
	Fn   ComputeFunc
}

// View passes a subset of parent columns straight through and appends
// computed columns recomputed on every access.
type View struct {
	src      Source
	columns  []string
	computed []Computed
	rowCount int
	cursor   changelog.CursorID
}

// New builds a ProjectionView over columns (pass-through) plus computed
// (derived). The row count mirrors the parent 1:1, since projection never
// filters rows.
func New(src Source, columns []string, computed []Computed) *View {
	v := &View{src: src, columns: columns, computed: computed, rowCount: src.Len()}
	v.cursor = src.RegisterCursor(v)
	return v
}

// Close deregisters the view's cursor.
func (v *View) Close() {
	v.src.DropCursor(v.cursor)
}

// Len returns the number of rows, always equal to the parent's.
func (v *View) Len() int { return v.rowCount }

// ColumnNames returns the pass-through column names followed by computed
// column names, in declaration order.
func (v *View) ColumnNames() []string {
	out := make([]string, 0, len(v.columns)+len(v.computed))
	out = append(out, v.columns...)
	for _, c := range v.computed {
		out = append(out, c.Name)
	}
	return out
}

func (v *View) underlyingRow(ri int) map[string]value.Value {
	row := make(map[string]value.Value, len(v.columns)+len(v.computed))
	for _, name := range v.columns {
		row[name] = v.src.ValueAt(name, ri)
	}
	return row
}

// GetRow returns row i projected to the declared columns, with computed
// columns recomputed from the projected columns plus the computed columns
// declared before them. GetValue passes only the projected columns.
func (v *View) GetRow(i int) (map[string]value.Value, error) {
	ri, err := pyindex.Resolve(v.rowCount, i)
	if err != nil {
		return nil, err
	}
	row := v.underlyingRow(ri)
	for _, c := range v.computed {
		full := make(map[string]value.Value, len(v.columns))
		for name, val := range row {
			full[name] = val
		}
		row[c.Name] = c.Fn(full)
	}
	return row, nil
}

// GetValue returns a single projected or computed column's value at row i.
func (v *View) GetValue(i int, col string) (value.Value, error) {
	ri, err := pyindex.Resolve(v.rowCount, i)
	if err != nil {
		return value.Null, err
	}
	for _, name := range v.columns {
		if name == col {
			return v.src.ValueAt(col, ri), nil
		}
	}
	for _, c := range v.computed {
		if c.Name == col {
			return c.Fn(v.underlyingRow(ri)), nil
		}
	}
	return value.Null, tableerr.New(tableerr.SchemaViolation, "unknown projected column %q", col)
}

// Sync implements table.View: projection never filters, so it only needs
// to track the parent's row count through Insert/Delete changes.
func (v *View) Sync() {
	changes := v.src.Log().IterFrom(v.cursor)
	for _, ch := range changes {
		switch ch.Kind {
		case changelog.Insert:
			v.rowCount++
		case changelog.Delete:
			v.rowCount--
		}
	}
	v.src.Log().Advance(v.cursor, v.src.Log().Tail())
}
