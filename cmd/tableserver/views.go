package main

import (
	"fmt"
	"strings"

	"github.com/kasuganosora/livetable/pkg/table"
	"github.com/kasuganosora/livetable/pkg/value"
	"github.com/kasuganosora/livetable/pkg/view/aggview"
	"github.com/kasuganosora/livetable/pkg/view/filterview"
	"github.com/kasuganosora/livetable/pkg/view/joinview"
	"github.com/kasuganosora/livetable/pkg/view/sortedview"

	"github.com/kasuganosora/livetable/pkg/filterexpr"
)

// rowView is the common read surface the host needs from any registered
// view, regardless of which view package produced it.
type rowView interface {
	Len() int
	GetRow(i int) (map[string]value.Value, error)
	Close()
}

// viewEntry pairs a rowView with the per-column string resolver its
// output rows need, since views hand back raw value.Value (possibly
// interned) rather than pre-resolved text.
type viewEntry struct {
	rowView
	resolve func(col string) value.Resolver
}

// sortedRowView adapts a *sortedview.View (an index permutation, not a row
// materializer) to rowView by resolving each position back through its
// parent table.
type sortedRowView struct {
	v      *sortedview.View
	parent *table.Table
}

func (s sortedRowView) Len() int { return s.v.Len() }
func (s sortedRowView) GetRow(i int) (map[string]value.Value, error) {
	pi, err := s.v.GetParentIndex(i)
	if err != nil {
		return nil, err
	}
	return s.parent.GetRow(pi)
}
func (s sortedRowView) Close() { s.v.Close() }

// joinResolver dispatches to the right table's resolver for "right_"
// prefixed output columns (joinview's own prefix, spec §6), and the left
// table's resolver for everything else.
func joinResolver(left, right *table.Table) func(col string) value.Resolver {
	const prefix = "right_"
	return func(col string) value.Resolver {
		if strings.HasPrefix(col, prefix) {
			return right.Resolver(strings.TrimPrefix(col, prefix))
		}
		return left.Resolver(col)
	}
}

// createFilterView compiles expr against tb and registers an incrementally
// maintained FilterView under name.
func (r *registry) createFilterView(name, tableName, expr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.views[name]; exists {
		return fmt.Errorf("view %q already exists", name)
	}
	tb, ok := r.tables[tableName]
	if !ok {
		return fmt.Errorf("table %q not found", tableName)
	}
	compiled, err := filterexpr.Parse(expr)
	if err != nil {
		return err
	}
	r.views[name] = viewEntry{rowView: filterview.NewFromExpr(tb, compiled, nil), resolve: tb.Resolver}
	return nil
}

// createSortedView registers a SortedView over tableName ordered by keys,
// each key giving a column, its direction and its null placement.
func (r *registry) createSortedView(name, tableName string, keys []sortedview.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.views[name]; exists {
		return fmt.Errorf("view %q already exists", name)
	}
	tb, ok := r.tables[tableName]
	if !ok {
		return fmt.Errorf("table %q not found", tableName)
	}
	r.views[name] = viewEntry{rowView: sortedRowView{v: sortedview.New(tb, keys), parent: tb}, resolve: tb.Resolver}
	return nil
}

// createJoinView registers a HashJoinView between leftTable and rightTable.
func (r *registry) createJoinView(name, leftTable, rightTable string, kind joinview.Kind, keys []joinview.KeyPair) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.views[name]; exists {
		return fmt.Errorf("view %q already exists", name)
	}
	left, ok := r.tables[leftTable]
	if !ok {
		return fmt.Errorf("table %q not found", leftTable)
	}
	right, ok := r.tables[rightTable]
	if !ok {
		return fmt.Errorf("table %q not found", rightTable)
	}
	jv, err := joinview.New(left, right, kind, keys)
	if err != nil {
		return err
	}
	r.views[name] = viewEntry{rowView: jv, resolve: joinResolver(left, right)}
	return nil
}

// createAggregateView registers an AggregateView grouped by groupCols.
func (r *registry) createAggregateView(name, tableName string, groupCols []string, aggregates []aggview.Aggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.views[name]; exists {
		return fmt.Errorf("view %q already exists", name)
	}
	tb, ok := r.tables[tableName]
	if !ok {
		return fmt.Errorf("table %q not found", tableName)
	}
	av, err := aggview.New(tb, groupCols, aggregates)
	if err != nil {
		return err
	}
	r.views[name] = viewEntry{rowView: av, resolve: tb.Resolver}
	return nil
}

// dropView closes and forgets a registered view.
func (r *registry) dropView(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.views[name]
	if !ok {
		return fmt.Errorf("view %q not found", name)
	}
	v.Close()
	delete(r.views, name)
	return nil
}

// viewLen returns a registered view's current row count.
func (r *registry) viewLen(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.views[name]
	if !ok {
		return 0, fmt.Errorf("view %q not found", name)
	}
	return v.Len(), nil
}

// viewRow reads one output row from a registered view by position, along
// with the resolver its string columns need.
func (r *registry) viewRow(name string, i int) (map[string]value.Value, func(string) value.Resolver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.views[name]
	if !ok {
		return nil, nil, fmt.Errorf("view %q not found", name)
	}
	row, err := v.GetRow(i)
	return row, v.resolve, err
}

// sortKeySpec is the JSON-facing description of one SortedView key, per
// spec §6's sort-spec shape. NullsFirst is a tri-state: absent (nil)
// leaves the placement at its per-direction default (nulls first for
// desc, nulls last for asc); present pins it explicitly either way.
type sortKeySpec struct {
	Column     string `json:"column"`
	Order      string `json:"order"` // "asc" or "desc"
	NullsFirst *bool  `json:"nulls_first"`
}

func toSortedKeys(specs []sortKeySpec) []sortedview.Key {
	keys := make([]sortedview.Key, 0, len(specs))
	for _, s := range specs {
		nulls := sortedview.NullsDefault
		if s.NullsFirst != nil {
			if *s.NullsFirst {
				nulls = sortedview.NullsFirst
			} else {
				nulls = sortedview.NullsLast
			}
		}
		keys = append(keys, sortedview.Key{
			Column:     s.Column,
			Descending: s.Order == "desc",
			Nulls:      nulls,
		})
	}
	return keys
}

// joinKeySpec is the JSON-facing description of one join equality
// condition, per spec §6's join-spec shape.
type joinKeySpec struct {
	LeftCol  string `json:"left_col"`
	RightCol string `json:"right_col"`
}

func toJoinKeys(specs []joinKeySpec) []joinview.KeyPair {
	keys := make([]joinview.KeyPair, 0, len(specs))
	for _, s := range specs {
		keys = append(keys, joinview.KeyPair{LeftCol: s.LeftCol, RightCol: s.RightCol})
	}
	return keys
}

// aggregateSpec is the JSON-facing description of one AggregateView
// output column, per spec §6's aggregate-spec shape.
type aggregateSpec struct {
	OutputName string `json:"output_name"`
	Column     string `json:"source_column"`
	Func       string `json:"function"`
}

func toAggregates(specs []aggregateSpec) ([]aggview.Aggregate, error) {
	aggs := make([]aggview.Aggregate, 0, len(specs))
	for _, s := range specs {
		kind, pct, err := aggview.ParseFunc(s.Func)
		if err != nil {
			return nil, fmt.Errorf("aggregate %q: %w", s.OutputName, err)
		}
		aggs = append(aggs, aggview.Aggregate{
			Name: s.OutputName, Column: s.Column, Func: kind, Percentile: pct,
		})
	}
	return aggs, nil
}
