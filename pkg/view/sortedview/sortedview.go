// Package sortedview implements the SortedView maintainer from spec
// §4.K: an ordered sequence of parent row indices under a multi-column
// sort key, incrementally repositioned on Insert/Delete/Update.
package sortedview

import (
	"sort"

	"github.com/kasuganosora/livetable/pkg/changelog"
	"github.com/kasuganosora/livetable/pkg/pyindex"
	"github.com/kasuganosora/livetable/pkg/value"
)

// Source is the subset of *table.Table a SortedView needs.
type Source interface {
	Len() int
	ValueAt(name string, row int) value.Value
	Resolver(name string) value.Resolver
	RegisterCursor(v interface{ Sync() }) changelog.CursorID
	DropCursor(id changelog.CursorID)
	Log() *changelog.Log
}

// NullsPlacement controls where a Key's null values sort. The zero value,
// NullsDefault, resolves against the key's own Descending per spec
// §4.K/§6: nulls first for a descending key, nulls last for an ascending
// one, rather than always defaulting to value.NullsLast regardless of
// direction.
type NullsPlacement int

const (
	NullsDefault NullsPlacement = iota
	NullsFirst
	NullsLast
)

// Key names one sort key column, its direction, and its null placement.
type Key struct {
	Column     string
	Descending bool
	Nulls      NullsPlacement
}

func (k Key) effectiveNulls() value.NullsOrder {
	switch k.Nulls {
	case NullsFirst:
		return value.NullsFirst
	case NullsLast:
		return value.NullsLast
	default:
		if k.Descending {
			return value.NullsFirst
		}
		return value.NullsLast
	}
}

// View maintains parent row indices in ascending order of a composite
// key, stable across ties.
type View struct {
	src    Source
	keys   []Key
	order  []int // parent row indices, in sorted order
	cursor changelog.CursorID
}

// New builds a SortedView over keys, doing a one-time stable full sort
// of the current table state.
func New(src Source, keys []Key) *View {
	v := &View{src: src, keys: keys}
	v.fullSort()
	v.cursor = src.RegisterCursor(v)
	return v
}

// Close deregisters the view's cursor.
func (v *View) Close() {
	v.src.DropCursor(v.cursor)
}

// Len returns the number of ordered parent row indices.
func (v *View) Len() int { return len(v.order) }

func (v *View) less(a, b int) bool {
	for _, k := range v.keys {
		av := v.src.ValueAt(k.Column, a)
		bv := v.src.ValueAt(k.Column, b)
		c := value.Compare(av, bv, k.effectiveNulls(), v.src.Resolver(k.Column))
		if k.Descending && !av.IsNull() && !bv.IsNull() {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
	}
	return false
}

func (v *View) fullSort() {
	n := v.src.Len()
	v.order = make([]int, n)
	for i := range v.order {
		v.order[i] = i
	}
	sort.SliceStable(v.order, func(i, j int) bool { return v.less(v.order[i], v.order[j]) })
}

// findPosition returns the slot in v.order holding row, or -1.
func (v *View) findPosition(row int) int {
	for i, r := range v.order {
		if r == row {
			return i
		}
	}
	return -1
}

func (v *View) removeAt(pos int) {
	v.order = append(v.order[:pos], v.order[pos+1:]...)
}

// insertSorted inserts row into v.order at its correctly ordered
// position using binary search against the key predicate.
func (v *View) insertSorted(row int) {
	pos := sort.Search(len(v.order), func(i int) bool { return v.less(row, v.order[i]) })
	v.order = append(v.order, 0)
	copy(v.order[pos+1:], v.order[pos:])
	v.order[pos] = row
}

func (v *View) shiftUpFrom(threshold int) {
	for i, r := range v.order {
		if r >= threshold {
			v.order[i] = r + 1
		}
	}
}

func (v *View) shiftDownAfter(threshold int) {
	for i, r := range v.order {
		if r > threshold {
			v.order[i] = r - 1
		}
	}
}

func (v *View) columnReferenced(col string) bool {
	for _, k := range v.keys {
		if k.Column == col {
			return true
		}
	}
	return false
}

// Sync implements table.View.
func (v *View) Sync() {
	changes := v.src.Log().IterFrom(v.cursor)
	for _, ch := range changes {
		switch ch.Kind {
		case changelog.Insert:
			v.shiftUpFrom(ch.Row)
			v.insertSorted(ch.Row)
		case changelog.Delete:
			if pos := v.findPosition(ch.Row); pos >= 0 {
				v.removeAt(pos)
			}
			v.shiftDownAfter(ch.Row)
		case changelog.Update:
			if !v.columnReferenced(ch.Column) {
				continue
			}
			if pos := v.findPosition(ch.Row); pos >= 0 {
				v.removeAt(pos)
			}
			v.insertSorted(ch.Row)
		}
	}
	v.src.Log().Advance(v.cursor, v.src.Log().Tail())
}

// GetParentIndex returns the parent row index at ordered position i,
// with Python-style negative indexing.
func (v *View) GetParentIndex(i int) (int, error) {
	ri, err := pyindex.Resolve(len(v.order), i)
	if err != nil {
		return 0, err
	}
	return v.order[ri], nil
}

// Order returns a copy of the current sorted parent-index sequence.
func (v *View) Order() []int {
	return append([]int(nil), v.order...)
}

// Slice returns the sorted parent indices in [start:stop) with Python
// slice semantics.
func (v *View) Slice(start, stop int) ([]int, error) {
	s, e, err := pyindex.Slice(len(v.order), start, stop)
	if err != nil {
		return nil, err
	}
	return append([]int(nil), v.order[s:e]...), nil
}
