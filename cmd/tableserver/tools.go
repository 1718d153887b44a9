package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kasuganosora/livetable/pkg/table"
	"github.com/kasuganosora/livetable/pkg/view/joinview"
)

// toolDeps holds the shared registry every MCP tool handler operates on,
// mirroring the teacher's ToolDeps grouping.
type toolDeps struct {
	reg *registry
}

func errResult(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errResult("failed to encode result: %v", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// HandleCreateTable creates a new named table from a JSON column spec list.
func (d *toolDeps) HandleCreateTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return errResult("name parameter is required")
	}
	colsJSON := request.GetString("columns", "")
	if colsJSON == "" {
		return errResult("columns parameter is required (JSON array of {name,type,nullable})")
	}

	var cols []columnSpec
	if err := json.Unmarshal([]byte(colsJSON), &cols); err != nil {
		return errResult("invalid columns JSON: %v", err)
	}

	if err := d.reg.createTable(name, cols); err != nil {
		return errResult("create_table failed: %v", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("created table %q with %d columns", name, len(cols))), nil
}

// HandleDropTable removes a named table.
func (d *toolDeps) HandleDropTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return errResult("name parameter is required")
	}
	if err := d.reg.dropTable(name); err != nil {
		return errResult("drop_table failed: %v", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("dropped table %q", name)), nil
}

// HandleListTables lists every table name currently registered.
func (d *toolDeps) HandleListTables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(d.reg.names())
}

// HandleAppendRow appends one row, given as a JSON object, to a table.
func (d *toolDeps) HandleAppendRow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("table", "")
	rowJSON := request.GetString("row", "")
	if name == "" || rowJSON == "" {
		return errResult("table and row parameters are required")
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(rowJSON), &raw); err != nil {
		return errResult("invalid row JSON: %v", err)
	}

	var insertedAt int
	err := d.reg.withTable(name, func(tb *table.Table) error {
		row, err := rowFromJSON(tb.Schema(), raw)
		if err != nil {
			return err
		}
		insertedAt, err = tb.AppendRow(row)
		return err
	})
	if err != nil {
		return errResult("append_row failed: %v", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("row appended at index %d", insertedAt)), nil
}

// HandleDeleteRow removes a row by index, with Python-style negative
// indices supported.
func (d *toolDeps) HandleDeleteRow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("table", "")
	row := int(request.GetFloat("row", -1e18))
	if name == "" {
		return errResult("table parameter is required")
	}

	err := d.reg.withTable(name, func(tb *table.Table) error {
		return tb.DeleteRow(row)
	})
	if err != nil {
		return errResult("delete_row failed: %v", err)
	}
	return mcp.NewToolResultText("row deleted"), nil
}

// HandleSetValue assigns a single column value on a row.
func (d *toolDeps) HandleSetValue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("table", "")
	column := request.GetString("column", "")
	row := int(request.GetFloat("row", -1e18))
	valueJSON := request.GetString("value", "null")
	if name == "" || column == "" {
		return errResult("table and column parameters are required")
	}

	var raw interface{}
	if err := json.Unmarshal([]byte(valueJSON), &raw); err != nil {
		return errResult("invalid value JSON: %v", err)
	}

	err := d.reg.withTable(name, func(tb *table.Table) error {
		idx, ok := tb.Schema().IndexOf(column)
		if !ok {
			return fmt.Errorf("unknown column %q", column)
		}
		v, err := valueFromJSON(tb.Schema().Column(idx), raw)
		if err != nil {
			return err
		}
		return tb.SetValue(row, column, v)
	})
	if err != nil {
		return errResult("set_value failed: %v", err)
	}
	return mcp.NewToolResultText("value set"), nil
}

// HandleGetRow returns one row as a JSON object.
func (d *toolDeps) HandleGetRow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("table", "")
	row := int(request.GetFloat("row", -1e18))
	if name == "" {
		return errResult("table parameter is required")
	}

	var out map[string]interface{}
	err := d.reg.withTable(name, func(tb *table.Table) error {
		r, err := tb.GetRow(row)
		if err != nil {
			return err
		}
		out = rowToJSON(r, tb.Resolver)
		return nil
	})
	if err != nil {
		return errResult("get_row failed: %v", err)
	}
	return jsonResult(out)
}

// HandleTick drives one change-log propagation cycle for a table's
// registered views and compacts the log.
func (d *toolDeps) HandleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("table", "")
	if name == "" {
		return errResult("table parameter is required")
	}

	var synced int
	err := d.reg.withTable(name, func(tb *table.Table) error {
		synced = tb.Tick()
		return nil
	})
	if err != nil {
		return errResult("tick failed: %v", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("synced %d views", synced)), nil
}

// HandleFilterExpr evaluates a restricted filter expression against a
// table and returns the matching row indices.
func (d *toolDeps) HandleFilterExpr(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("table", "")
	expr := request.GetString("expr", "")
	if name == "" || expr == "" {
		return errResult("table and expr parameters are required")
	}

	var rows []int
	err := d.reg.withTable(name, func(tb *table.Table) error {
		var err error
		rows, err = tb.FilterExpr(expr)
		return err
	})
	if err != nil {
		return errResult("filter_expr failed: %v", err)
	}
	return jsonResult(rows)
}

// HandleAggregate computes one of sum/avg/min/max/count over a column.
func (d *toolDeps) HandleAggregate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("table", "")
	column := request.GetString("column", "")
	fn := strings.ToLower(request.GetString("func", ""))
	if name == "" || column == "" || fn == "" {
		return errResult("table, column and func parameters are required")
	}

	var result interface{}
	err := d.reg.withTable(name, func(tb *table.Table) error {
		switch fn {
		case "sum":
			v, err := tb.Sum(column)
			result = v
			return err
		case "avg":
			v, err := tb.Avg(column)
			result = v
			return err
		case "min":
			v, found, err := tb.Min(column)
			if err != nil {
				return err
			}
			if !found {
				result = nil
			} else {
				result = v
			}
			return nil
		case "max":
			v, found, err := tb.Max(column)
			if err != nil {
				return err
			}
			if !found {
				result = nil
			} else {
				result = v
			}
			return nil
		case "count":
			v, err := tb.CountNonNull(column)
			result = v
			return err
		default:
			return fmt.Errorf("unknown aggregate function %q", fn)
		}
	})
	if err != nil {
		return errResult("aggregate failed: %v", err)
	}
	return jsonResult(result)
}

// HandleCreateFilterView registers an incrementally maintained FilterView
// over a table's restricted filter expression.
func (d *toolDeps) HandleCreateFilterView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	tableName := request.GetString("table", "")
	expr := request.GetString("expr", "")
	if name == "" || tableName == "" || expr == "" {
		return errResult("name, table and expr parameters are required")
	}
	if err := d.reg.createFilterView(name, tableName, expr); err != nil {
		return errResult("create_filter_view failed: %v", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("created filter view %q", name)), nil
}

// HandleCreateSortedView registers a SortedView over a table under a
// JSON-encoded multi-column sort spec.
func (d *toolDeps) HandleCreateSortedView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	tableName := request.GetString("table", "")
	keysJSON := request.GetString("keys", "")
	if name == "" || tableName == "" || keysJSON == "" {
		return errResult("name, table and keys parameters are required")
	}

	var specs []sortKeySpec
	if err := json.Unmarshal([]byte(keysJSON), &specs); err != nil {
		return errResult("invalid keys JSON: %v", err)
	}
	if err := d.reg.createSortedView(name, tableName, toSortedKeys(specs)); err != nil {
		return errResult("create_sorted_view failed: %v", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("created sorted view %q", name)), nil
}

// HandleCreateJoinView registers a HashJoinView between two tables.
func (d *toolDeps) HandleCreateJoinView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	leftTable := request.GetString("left_table", "")
	rightTable := request.GetString("right_table", "")
	kindStr := strings.ToLower(request.GetString("kind", "inner"))
	keysJSON := request.GetString("keys", "")
	if name == "" || leftTable == "" || rightTable == "" || keysJSON == "" {
		return errResult("name, left_table, right_table and keys parameters are required")
	}

	var specs []joinKeySpec
	if err := json.Unmarshal([]byte(keysJSON), &specs); err != nil {
		return errResult("invalid keys JSON: %v", err)
	}

	var kind joinview.Kind
	switch kindStr {
	case "inner":
		kind = joinview.Inner
	case "left":
		kind = joinview.Left
	default:
		return errResult("unknown join kind %q", kindStr)
	}

	if err := d.reg.createJoinView(name, leftTable, rightTable, kind, toJoinKeys(specs)); err != nil {
		return errResult("create_join_view failed: %v", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("created join view %q", name)), nil
}

// HandleCreateAggregateView registers an AggregateView grouped by a set
// of columns with one or more running aggregates.
func (d *toolDeps) HandleCreateAggregateView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	tableName := request.GetString("table", "")
	groupColsJSON := request.GetString("group_by", "")
	aggregatesJSON := request.GetString("aggregates", "")
	if name == "" || tableName == "" || groupColsJSON == "" || aggregatesJSON == "" {
		return errResult("name, table, group_by and aggregates parameters are required")
	}

	var groupCols []string
	if err := json.Unmarshal([]byte(groupColsJSON), &groupCols); err != nil {
		return errResult("invalid group_by JSON: %v", err)
	}
	var specs []aggregateSpec
	if err := json.Unmarshal([]byte(aggregatesJSON), &specs); err != nil {
		return errResult("invalid aggregates JSON: %v", err)
	}
	aggs, err := toAggregates(specs)
	if err != nil {
		return errResult("%v", err)
	}

	if err := d.reg.createAggregateView(name, tableName, groupCols, aggs); err != nil {
		return errResult("create_aggregate_view failed: %v", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("created aggregate view %q", name)), nil
}

// HandleDropView closes and forgets a registered view.
func (d *toolDeps) HandleDropView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return errResult("name parameter is required")
	}
	if err := d.reg.dropView(name); err != nil {
		return errResult("drop_view failed: %v", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("dropped view %q", name)), nil
}

// HandleViewLen returns a registered view's current row count.
func (d *toolDeps) HandleViewLen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return errResult("name parameter is required")
	}
	n, err := d.reg.viewLen(name)
	if err != nil {
		return errResult("view_len failed: %v", err)
	}
	return jsonResult(n)
}

// HandleViewRow reads one output row from a registered view by position.
func (d *toolDeps) HandleViewRow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	i := int(request.GetFloat("row", -1e18))
	if name == "" {
		return errResult("name parameter is required")
	}
	row, resolve, err := d.reg.viewRow(name, i)
	if err != nil {
		return errResult("view_row failed: %v", err)
	}
	return jsonResult(rowToJSON(row, resolve))
}
