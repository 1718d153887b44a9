// Package joinview implements the HashJoinView maintainer from spec
// §4.L: an INNER or LEFT hash join on composite equality keys, with the
// right side as the fixed build side.
package joinview

import (
	"github.com/kasuganosora/livetable/pkg/changelog"
	"github.com/kasuganosora/livetable/pkg/pyindex"
	"github.com/kasuganosora/livetable/pkg/tableerr"
	"github.com/kasuganosora/livetable/pkg/value"
)

// Side is the subset of *table.Table one side of a join needs.
type Side interface {
	Len() int
	ValueAt(name string, row int) value.Value
	Resolver(name string) value.Resolver
	ColumnNames() []string
	RegisterCursor(v interface{ Sync() }) changelog.CursorID
	DropCursor(id changelog.CursorID)
	Log() *changelog.Log
}

// Kind selects INNER or LEFT join semantics.
type Kind int

const (
	Inner Kind = iota
	Left
)

// KeyPair names one equality condition: left.LeftCol = right.RightCol.
type KeyPair struct {
	LeftCol  string
	RightCol string
}

// pair is one output row: a left parent index and, for matches, a right
// parent index (-1 for an unmatched LEFT row).
type pair struct {
	left  int
	right int
}

// View maintains the output row set of a hash join, with the right side
// always the build side (spec §4.L).
type View struct {
	left, right Side
	kind        Kind
	keys        []KeyPair

	rightIndex map[uint64][]int // hash(key) -> right row indices sharing it
	rows       []pair

	leftCursor, rightCursor changelog.CursorID
}

// New builds a HashJoinView, indexing the right side and then probing it
// once per left row. An empty keys slice is rejected rather than silently
// producing a full cross product (spec §4.L/§7).
func New(left, right Side, kind Kind, keys []KeyPair) (*View, error) {
	if len(keys) == 0 {
		return nil, tableerr.New(tableerr.ShapeMismatch, "join requires at least one key pair")
	}
	v := &View{left: left, right: right, kind: kind, keys: keys, rightIndex: make(map[uint64][]int)}
	for ri := 0; ri < right.Len(); ri++ {
		v.indexRight(ri)
	}
	for li := 0; li < left.Len(); li++ {
		v.probeLeft(li)
	}
	v.leftCursor = left.RegisterCursor(leftSync{v})
	v.rightCursor = right.RegisterCursor(rightSync{v})
	return v, nil
}

// Close deregisters both cursors.
func (v *View) Close() {
	v.left.DropCursor(v.leftCursor)
	v.right.DropCursor(v.rightCursor)
}

// Len returns the number of output rows.
func (v *View) Len() int { return len(v.rows) }

func (v *View) leftKey(row int) ([]value.Value, bool) {
	return v.keyOf(v.left, row, true)
}

func (v *View) rightKey(row int) ([]value.Value, bool) {
	return v.keyOf(v.right, row, false)
}

func (v *View) keyOf(side Side, row int, isLeft bool) ([]value.Value, bool) {
	key := make([]value.Value, len(v.keys))
	for i, kp := range v.keys {
		col := kp.RightCol
		if isLeft {
			col = kp.LeftCol
		}
		val := side.ValueAt(col, row)
		if val.IsNull() {
			return nil, false // null-key exclusion: never participates in a match
		}
		key[i] = val
	}
	return key, true
}

func hashKey(key []value.Value, resolve func(int) value.Resolver) uint64 {
	h := uint64(1469598103934665603)
	for i, k := range key {
		h ^= value.Hash(k, resolve(i))
		h *= 1099511628211
	}
	return h
}

func (v *View) rightResolver(i int) value.Resolver { return v.right.Resolver(v.keys[i].RightCol) }
func (v *View) leftResolver(i int) value.Resolver  { return v.left.Resolver(v.keys[i].LeftCol) }

func keysEqual(a, b []value.Value, resolve func(int) value.Resolver) bool {
	for i := range a {
		if !value.Equal(a[i], b[i], resolve(i)) {
			return false
		}
	}
	return true
}

func (v *View) indexRight(row int) {
	key, ok := v.rightKey(row)
	if !ok {
		return
	}
	h := hashKey(key, v.rightResolver)
	v.rightIndex[h] = append(v.rightIndex[h], row)
}

func (v *View) deindexRight(row int) {
	key, ok := v.rightKey(row)
	if !ok {
		return
	}
	h := hashKey(key, v.rightResolver)
	bucket := v.rightIndex[h]
	for i, r := range bucket {
		if r == row {
			v.rightIndex[h] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
}

// matchesFor returns every right row index whose key equals leftRow's key.
func (v *View) matchesFor(leftRow int) []int {
	lk, ok := v.leftKey(leftRow)
	if !ok {
		return nil
	}
	h := hashKey(lk, v.leftResolver)
	var out []int
	for _, rr := range v.rightIndex[h] {
		rk, ok := v.rightKey(rr)
		if !ok {
			continue
		}
		if keysEqual(lk, rk, v.leftResolver) {
			out = append(out, rr)
		}
	}
	return out
}

func (v *View) probeLeft(leftRow int) {
	matches := v.matchesFor(leftRow)
	if len(matches) == 0 {
		if v.kind == Left {
			v.rows = append(v.rows, pair{left: leftRow, right: -1})
		}
		return
	}
	for _, rr := range matches {
		v.rows = append(v.rows, pair{left: leftRow, right: rr})
	}
}

func (v *View) removeRowsForLeft(leftRow int) {
	out := v.rows[:0]
	for _, p := range v.rows {
		if p.left != leftRow {
			out = append(out, p)
		}
	}
	v.rows = out
}

func (v *View) removeRowsForRight(rightRow int) []int {
	var affectedLeft []int
	out := v.rows[:0]
	for _, p := range v.rows {
		if p.right == rightRow {
			affectedLeft = append(affectedLeft, p.left)
			continue
		}
		out = append(out, p)
	}
	v.rows = out
	return affectedLeft
}

func (v *View) shiftLeftRowsFrom(threshold int) {
	for i := range v.rows {
		if v.rows[i].left >= threshold {
			v.rows[i].left++
		}
	}
}

func (v *View) shiftLeftRowsAfter(threshold int) {
	for i := range v.rows {
		if v.rows[i].left > threshold {
			v.rows[i].left--
		}
	}
}

func (v *View) shiftRightRowsFrom(threshold int) {
	for i := range v.rows {
		if v.rows[i].right >= threshold {
			v.rows[i].right++
		}
	}
	for h, bucket := range v.rightIndex {
		for i, r := range bucket {
			if r >= threshold {
				bucket[i] = r + 1
			}
		}
		v.rightIndex[h] = bucket
	}
}

func (v *View) shiftRightRowsAfter(threshold int) {
	for i := range v.rows {
		if v.rows[i].right > threshold {
			v.rows[i].right--
		}
	}
	for h, bucket := range v.rightIndex {
		for i, r := range bucket {
			if r > threshold {
				bucket[i] = r - 1
			}
		}
		v.rightIndex[h] = bucket
	}
}

func (v *View) leftColumnReferenced(col string) bool {
	for _, k := range v.keys {
		if k.LeftCol == col {
			return true
		}
	}
	return false
}

func (v *View) rightColumnReferenced(col string) bool {
	for _, k := range v.keys {
		if k.RightCol == col {
			return true
		}
	}
	return false
}

// leftSync/rightSync adapt one side of the join to table.View, so each
// side's change-log cursor drives its own Sync call independently.
type leftSync struct{ v *View }
type rightSync struct{ v *View }

func (s leftSync) Sync() {
	v := s.v
	changes := v.left.Log().IterFrom(v.leftCursor)
	for _, ch := range changes {
		switch ch.Kind {
		case changelog.Insert:
			v.shiftLeftRowsFrom(ch.Row)
			v.probeLeft(ch.Row)
		case changelog.Delete:
			v.removeRowsForLeft(ch.Row)
			v.shiftLeftRowsAfter(ch.Row)
		case changelog.Update:
			if !v.leftColumnReferenced(ch.Column) {
				continue
			}
			v.removeRowsForLeft(ch.Row)
			v.probeLeft(ch.Row)
		}
	}
	v.left.Log().Advance(v.leftCursor, v.left.Log().Tail())
}

func (s rightSync) Sync() {
	v := s.v
	changes := v.right.Log().IterFrom(v.rightCursor)
	for _, ch := range changes {
		switch ch.Kind {
		case changelog.Insert:
			v.shiftRightRowsFrom(ch.Row)
			v.indexRight(ch.Row)
			v.rematchAffectedLeft(ch.Row)
		case changelog.Delete:
			v.deindexRight(ch.Row)
			affected := v.removeRowsForRight(ch.Row)
			v.shiftRightRowsAfter(ch.Row)
			for _, lr := range affected {
				v.probeLeft(lr)
			}
		case changelog.Update:
			if !v.rightColumnReferenced(ch.Column) {
				continue
			}
			affected := v.removeRowsForRight(ch.Row)
			v.deindexRight(ch.Row)
			v.indexRight(ch.Row)
			v.rematchAffectedLeft(ch.Row)
			for _, lr := range affected {
				v.probeLeft(lr)
			}
		}
	}
	v.right.Log().Advance(v.rightCursor, v.right.Log().Tail())
}

// rematchAffectedLeft re-probes every left row whose key matches the
// newly (re)indexed right row, removing any stale LEFT null pad first.
func (v *View) rematchAffectedLeft(rightRow int) {
	rk, ok := v.rightKey(rightRow)
	if !ok {
		return
	}
	for li := 0; li < v.left.Len(); li++ {
		lk, ok := v.leftKey(li)
		if !ok || !keysEqual(lk, rk, v.leftResolver) {
			continue
		}
		v.removeRowsForLeft(li)
		v.probeLeft(li)
	}
}

// GetRow materializes output row i as left columns plus right columns
// prefixed "right_" (null for an unmatched LEFT row).
func (v *View) GetRow(i int) (map[string]value.Value, error) {
	ri, err := pyindex.Resolve(len(v.rows), i)
	if err != nil {
		return nil, err
	}
	p := v.rows[ri]
	out := make(map[string]value.Value)
	for _, name := range v.left.ColumnNames() {
		out[name] = v.left.ValueAt(name, p.left)
	}
	for _, name := range v.right.ColumnNames() {
		if p.right < 0 {
			out["right_"+name] = value.Null
		} else {
			out["right_"+name] = v.right.ValueAt(name, p.right)
		}
	}
	return out, nil
}
