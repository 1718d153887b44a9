// Package filterview implements the FilterView maintainer from spec §4.I:
// a sorted set of parent row indices maintained incrementally from the
// change log.
package filterview

import (
	"sort"

	"github.com/kasuganosora/livetable/pkg/changelog"
	"github.com/kasuganosora/livetable/pkg/filterexpr"
	"github.com/kasuganosora/livetable/pkg/pyindex"
	"github.com/kasuganosora/livetable/pkg/value"
)

// Source is the subset of *table.Table a FilterView needs.
type Source interface {
	filterexpr.ColumnSource
	RegisterCursor(v interface{ Sync() }) changelog.CursorID
	DropCursor(id changelog.CursorID)
	Log() *changelog.Log
	GetRow(row int) (map[string]value.Value, error)
}

// Predicate is an opaque host callback alternative to a compiled
// filterexpr.Expr, with the semantics of returning true/false/null (spec
// §4.I "State").
type Predicate interface {
	Eval(row map[string]value.Value) (pass bool, isNull bool)
}

// View is the FilterView itself: a sorted kept set of parent row indices.
type View struct {
	src       Source
	expr      *filterexpr.Expr
	callback  Predicate
	refColumn func(name string) bool // columns referenced by expr, for Update short-circuiting
	kept      []int
	cursor    changelog.CursorID
}

// NewFromExpr builds a FilterView from a parsed expression, doing a
// one-time full scan of the current table state.
func NewFromExpr(src Source, expr *filterexpr.Expr, referencedCols func(string) bool) *View {
	v := &View{src: src, expr: expr, refColumn: referencedCols}
	v.scan()
	v.cursor = src.RegisterCursor(v)
	return v
}

// NewFromCallback builds a FilterView from an opaque host predicate.
func NewFromCallback(src Source, cb Predicate) *View {
	v := &View{src: src, callback: cb}
	v.scan()
	v.cursor = src.RegisterCursor(v)
	return v
}

func (v *View) evalRow(row int) bool {
	if v.expr != nil {
		return v.expr.EvalRow(v.src, row) == filterexpr.TriTrue
	}
	r, err := v.src.GetRow(row)
	if err != nil {
		return false
	}
	pass, isNull := v.callback.Eval(r)
	return pass && !isNull
}

func (v *View) scan() {
	v.kept = v.kept[:0]
	n := v.src.Len()
	for i := 0; i < n; i++ {
		if v.evalRow(i) {
			v.kept = append(v.kept, i)
		}
	}
}

// Close deregisters the view's cursor.
func (v *View) Close() {
	v.src.DropCursor(v.cursor)
}

// Len returns the number of kept parent row indices.
func (v *View) Len() int { return len(v.kept) }

// GetParentIndex returns the parent row index at view position i,
// supporting Python-style negative indexing.
func (v *View) GetParentIndex(i int) (int, error) {
	ri, err := pyindex.Resolve(len(v.kept), i)
	if err != nil {
		return 0, err
	}
	return v.kept[ri], nil
}

// GetRow returns the parent row at view position i.
func (v *View) GetRow(i int) (map[string]value.Value, error) {
	pi, err := v.GetParentIndex(i)
	if err != nil {
		return nil, err
	}
	return v.src.GetRow(pi)
}

// Indices returns a copy of the current kept set, in ascending order.
func (v *View) Indices() []int {
	return append([]int(nil), v.kept...)
}

// Slice returns the kept parent indices in [start:stop) with Python
// slice semantics.
func (v *View) Slice(start, stop int) ([]int, error) {
	s, e, err := pyindex.Slice(len(v.kept), start, stop)
	if err != nil {
		return nil, err
	}
	return append([]int(nil), v.kept[s:e]...), nil
}

func (v *View) insertKeptIfAbsent(row int) {
	pos := sort.SearchInts(v.kept, row)
	if pos < len(v.kept) && v.kept[pos] == row {
		return
	}
	v.kept = append(v.kept, 0)
	copy(v.kept[pos+1:], v.kept[pos:])
	v.kept[pos] = row
}

func (v *View) removeKeptIfPresent(row int) {
	pos := sort.SearchInts(v.kept, row)
	if pos < len(v.kept) && v.kept[pos] == row {
		v.kept = append(v.kept[:pos], v.kept[pos+1:]...)
	}
}

func (v *View) shiftUpFrom(threshold int) {
	for i, r := range v.kept {
		if r >= threshold {
			v.kept[i] = r + 1
		}
	}
}

func (v *View) shiftDownAfter(threshold int) {
	for i, r := range v.kept {
		if r > threshold {
			v.kept[i] = r - 1
		}
	}
}

func (v *View) columnReferenced(col string) bool {
	if v.refColumn == nil {
		return true // callback predicates can't be introspected; assume every column matters
	}
	return v.refColumn(col)
}

// Sync implements table.View: it consumes every change pending on this
// view's cursor and applies the incremental update rules of spec §4.I.
func (v *View) Sync() {
	cur := v.src.Log().CursorNextSeq(v.cursor)
	changes := v.src.Log().IterFrom(v.cursor)
	for _, ch := range changes {
		switch ch.Kind {
		case changelog.Insert:
			v.shiftUpFrom(ch.Row)
			if v.evalRow(ch.Row) {
				v.insertKeptIfAbsent(ch.Row)
			}
		case changelog.Delete:
			v.removeKeptIfPresent(ch.Row)
			v.shiftDownAfter(ch.Row)
		case changelog.Update:
			if !v.columnReferenced(ch.Column) {
				continue
			}
			pass := v.evalRow(ch.Row)
			if pass {
				v.insertKeptIfAbsent(ch.Row)
			} else {
				v.removeKeptIfPresent(ch.Row)
			}
		}
	}
	if len(changes) > 0 {
		cur = changes[len(changes)-1].Seq + 1
	}
	v.src.Log().Advance(v.cursor, cur)
}
