// Package aggview implements the AggregateView maintainer from spec
// §4.M: group-by with running Count/Sum/Avg/Min/Max/Median/Percentile
// accumulators, maintained incrementally from the change log.
package aggview

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kasuganosora/livetable/pkg/changelog"
	"github.com/kasuganosora/livetable/pkg/pyindex"
	"github.com/kasuganosora/livetable/pkg/tableerr"
	"github.com/kasuganosora/livetable/pkg/value"
)

// Source is the subset of *table.Table an AggregateView needs.
type Source interface {
	Len() int
	ValueAt(name string, row int) value.Value
	Resolver(name string) value.Resolver
	RegisterCursor(v interface{ Sync() }) changelog.CursorID
	DropCursor(id changelog.CursorID)
	Log() *changelog.Log
	GetRow(row int) (map[string]value.Value, error)
}

// Kind enumerates the supported running aggregate functions.
type Kind int

const (
	Count Kind = iota
	Sum
	Avg
	Min
	Max
	Median
	Percentile
)

// Aggregate names one output column: Func(Column) AS Name.
type Aggregate struct {
	Name       string
	Column     string
	Func       Kind
	Percentile float64 // only used when Func == Percentile (0..1)
}

// ParseFunc parses a shorthand aggregate function string: "sum", "avg", "count", "min", "max", "median",
// "p25".."p99", or "percentile(q)".
func ParseFunc(s string) (Kind, float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "count":
		return Count, 0, nil
	case "sum":
		return Sum, 0, nil
	case "avg":
		return Avg, 0, nil
	case "min":
		return Min, 0, nil
	case "max":
		return Max, 0, nil
	case "median":
		return Median, 0.5, nil
	}
	if strings.HasPrefix(s, "p") {
		if n, err := strconv.Atoi(s[1:]); err == nil {
			q := float64(n) / 100.0
			if q < 0 || q > 1 {
				return Count, 0, tableerr.New(tableerr.UnknownAggregate, "percentile %q not in [0,1]", s)
			}
			return Percentile, q, nil
		}
	}
	if strings.HasPrefix(s, "percentile(") && strings.HasSuffix(s, ")") {
		inner := s[len("percentile(") : len(s)-1]
		q, err := strconv.ParseFloat(inner, 64)
		if err == nil {
			if q < 0 || q > 1 {
				return Count, 0, tableerr.New(tableerr.UnknownAggregate, "percentile %q not in [0,1]", s)
			}
			return Percentile, q, nil
		}
	}
	return Count, 0, tableerr.New(tableerr.UnknownAggregate, "unknown aggregate function %q", s)
}

// validatePercentile rejects a directly constructed Aggregate whose
// Percentile falls outside [0,1], the same bound ParseFunc enforces on
// the shorthand strings (spec §7: UnknownAggregate for "percentile q
// not in [0,1]").
func validatePercentile(a Aggregate) error {
	if a.Func != Percentile {
		return nil
	}
	if a.Percentile < 0 || a.Percentile > 1 {
		return tableerr.New(tableerr.UnknownAggregate, "aggregate %q: percentile %v not in [0,1]", a.Name, a.Percentile)
	}
	return nil
}

// group is the running accumulator state for one group-by key.
type group struct {
	key     []value.Value
	count   int            // live member rows, regardless of null source values
	nonNull map[string]int // per-column count of non-null source values (spec §4.M Count/Avg)
	sums    map[string]float64
	sorted  map[string][]float64 // ordered multiset, per column needing Median/Percentile
	members map[int]bool         // parent row indices currently in this group
}

func newGroup(key []value.Value) *group {
	return &group{
		key:     key,
		nonNull: make(map[string]int),
		sums:    make(map[string]float64),
		sorted:  make(map[string][]float64),
		members: make(map[int]bool),
	}
}

// View maintains one row of output per distinct group-by key.
type View struct {
	src        Source
	groupCols  []string
	aggregates []Aggregate
	columns    []string // distinct aggregated source columns, deduplicated across aggregates

	order  []string // insertion order of group keys, by string encoding
	groups map[string]*group
	rowKey map[int]string // parent row index -> group key encoding, for Delete/Update

	cursor changelog.CursorID
}

// New builds an AggregateView, doing a one-time full scan of the current
// table state to seed every group.
func New(src Source, groupCols []string, aggregates []Aggregate) (*View, error) {
	for _, a := range aggregates {
		if err := validatePercentile(a); err != nil {
			return nil, err
		}
	}
	v := &View{
		src:        src,
		groupCols:  groupCols,
		aggregates: aggregates,
		columns:    distinctColumns(aggregates),
		groups:     make(map[string]*group),
		rowKey:     make(map[int]string),
	}
	for i := 0; i < src.Len(); i++ {
		v.addRow(i)
	}
	v.cursor = src.RegisterCursor(v)
	return v, nil
}

// distinctColumns returns each aggregate's source column once, so a group's
// running sum/non-null-count/ordered-set for a column shared by more than
// one aggregate (e.g. Sum and Avg both over "amount") isn't updated twice
// per row.
func distinctColumns(aggregates []Aggregate) []string {
	seen := make(map[string]bool, len(aggregates))
	var cols []string
	for _, a := range aggregates {
		if !seen[a.Column] {
			seen[a.Column] = true
			cols = append(cols, a.Column)
		}
	}
	return cols
}

// Close deregisters the view's cursor.
func (v *View) Close() {
	v.src.DropCursor(v.cursor)
}

// Len returns the number of distinct groups currently materialized.
func (v *View) Len() int { return len(v.order) }

func (v *View) keyOf(row int) []value.Value {
	key := make([]value.Value, len(v.groupCols))
	for i, col := range v.groupCols {
		key[i] = v.src.ValueAt(col, row)
	}
	return key
}

func (v *View) encodeKey(key []value.Value) string {
	var b strings.Builder
	for i, k := range key {
		if i > 0 {
			b.WriteByte(0)
		}
		if k.IsNull() {
			b.WriteString("\x01null")
			continue
		}
		r := v.src.Resolver(v.groupCols[i])
		fmt.Fprintf(&b, "%d:%s", k.Kind(), valueText(k, r))
	}
	return b.String()
}

func valueText(v value.Value, r value.Resolver) string {
	if v.Kind() == value.KindString && v.Interned() {
		if r != nil {
			if s, ok := r.Resolve(v.InternID()); ok {
				return s
			}
		}
	}
	return v.String()
}

func insertSortedFloat(xs []float64, x float64) []float64 {
	pos := sort.SearchFloat64s(xs, x)
	xs = append(xs, 0)
	copy(xs[pos+1:], xs[pos:])
	xs[pos] = x
	return xs
}

func removeSortedFloat(xs []float64, x float64) []float64 {
	pos := sort.SearchFloat64s(xs, x)
	if pos < len(xs) && xs[pos] == x {
		return append(xs[:pos], xs[pos+1:]...)
	}
	return xs
}

func (v *View) needsOrderedSet(col string) bool {
	for _, a := range v.aggregates {
		if a.Column == col && (a.Func == Median || a.Func == Percentile) {
			return true
		}
	}
	return false
}

func (v *View) addRow(row int) {
	key := v.keyOf(row)
	enc := v.encodeKey(key)
	g, ok := v.groups[enc]
	if !ok {
		g = newGroup(key)
		v.groups[enc] = g
		v.order = append(v.order, enc)
	}
	g.count++
	g.members[row] = true
	for _, col := range v.columns {
		f, ok := v.src.ValueAt(col, row).AsF64()
		if !ok {
			continue
		}
		g.nonNull[col]++
		g.sums[col] += f
		if v.needsOrderedSet(col) {
			g.sorted[col] = insertSortedFloat(g.sorted[col], f)
		}
	}
	v.rowKey[row] = enc
}

func (v *View) removeRow(row int, snapshot map[string]value.Value) {
	enc, ok := v.rowKey[row]
	if !ok {
		return
	}
	g := v.groups[enc]
	if g == nil {
		return
	}
	delete(g.members, row)
	delete(v.rowKey, row)
	g.count--
	for _, col := range v.columns {
		val, ok := snapshot[col]
		if !ok {
			continue
		}
		f, ok := val.AsF64()
		if !ok {
			continue
		}
		g.nonNull[col]--
		g.sums[col] -= f
		if v.needsOrderedSet(col) {
			g.sorted[col] = removeSortedFloat(g.sorted[col], f)
		}
	}
	if g.count <= 0 {
		delete(v.groups, enc)
		for i, e := range v.order {
			if e == enc {
				v.order = append(v.order[:i], v.order[i+1:]...)
				break
			}
		}
	}
}

func (v *View) shiftRowKeysFrom(threshold int) {
	next := make(map[int]string, len(v.rowKey))
	for row, enc := range v.rowKey {
		if row >= threshold {
			row++
		}
		next[row] = enc
	}
	v.rowKey = next
	for _, g := range v.groups {
		nm := make(map[int]bool, len(g.members))
		for row := range g.members {
			if row >= threshold {
				row++
			}
			nm[row] = true
		}
		g.members = nm
	}
}

func (v *View) shiftRowKeysAfter(threshold int) {
	next := make(map[int]string, len(v.rowKey))
	for row, enc := range v.rowKey {
		if row > threshold {
			row--
		}
		next[row] = enc
	}
	v.rowKey = next
	for _, g := range v.groups {
		nm := make(map[int]bool, len(g.members))
		for row := range g.members {
			if row > threshold {
				row--
			}
			nm[row] = true
		}
		g.members = nm
	}
}

// Sync implements table.View.
func (v *View) Sync() {
	changes := v.src.Log().IterFrom(v.cursor)
	for _, ch := range changes {
		switch ch.Kind {
		case changelog.Insert:
			v.shiftRowKeysFrom(ch.Row)
			v.addRow(ch.Row)
		case changelog.Delete:
			v.removeRow(ch.Row, ch.Snapshot)
			v.shiftRowKeysAfter(ch.Row)
		case changelog.Update:
			row, err := v.src.GetRow(ch.Row)
			if err != nil {
				continue
			}
			before := row
			before[ch.Column] = ch.Before
			v.removeRow(ch.Row, before)
			v.addRow(ch.Row)
		}
	}
	v.src.Log().Advance(v.cursor, v.src.Log().Tail())
}

// GetRow materializes group-by output row i: the group key columns plus
// one computed value per declared aggregate.
func (v *View) GetRow(i int) (map[string]value.Value, error) {
	ri, err := pyindex.Resolve(len(v.order), i)
	if err != nil {
		return nil, err
	}
	g := v.groups[v.order[ri]]
	out := make(map[string]value.Value, len(v.groupCols)+len(v.aggregates))
	for ci, col := range v.groupCols {
		out[col] = g.key[ci]
	}
	for _, a := range v.aggregates {
		out[a.Name] = v.compute(g, a)
	}
	return out, nil
}

func (v *View) compute(g *group, a Aggregate) value.Value {
	switch a.Func {
	case Count:
		return value.Int64(int64(g.nonNull[a.Column]))
	case Sum:
		return value.Float64(g.sums[a.Column])
	case Avg:
		n := g.nonNull[a.Column]
		if n == 0 {
			return value.Null
		}
		return value.Float64(g.sums[a.Column] / float64(n))
	case Min:
		xs := g.sorted[a.Column]
		if len(xs) == 0 {
			return v.extremum(g, a.Column, true)
		}
		return value.Float64(xs[0])
	case Max:
		xs := g.sorted[a.Column]
		if len(xs) == 0 {
			return v.extremum(g, a.Column, false)
		}
		return value.Float64(xs[len(xs)-1])
	case Median:
		return percentileOf(g.sorted[a.Column], 0.5)
	case Percentile:
		return percentileOf(g.sorted[a.Column], a.Percentile)
	default:
		return value.Null
	}
}

// extremum recomputes Min/Max directly from member rows when no ordered
// set is maintained for the column (Min/Max alone don't need one).
func (v *View) extremum(g *group, col string, wantMin bool) value.Value {
	var best float64
	found := false
	for row := range g.members {
		f, ok := v.src.ValueAt(col, row).AsF64()
		if !ok {
			continue
		}
		if !found || (wantMin && f < best) || (!wantMin && f > best) {
			best, found = f, true
		}
	}
	if !found {
		return value.Null
	}
	return value.Float64(best)
}

// percentileOf returns the q-th percentile (0..1) of a sorted slice using
// linear interpolation between the two nearest ranks.
func percentileOf(xs []float64, q float64) value.Value {
	n := len(xs)
	if n == 0 {
		return value.Null
	}
	if n == 1 {
		return value.Float64(xs[0])
	}
	pos := q * float64(n-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= n {
		return value.Float64(xs[n-1])
	}
	frac := pos - float64(lo)
	return value.Float64(xs[lo] + (xs[hi]-xs[lo])*frac)
}
