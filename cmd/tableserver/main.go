package main

import (
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kasuganosora/livetable/pkg/config"
)

func main() {
	cfg := config.LoadConfigOrDefault()
	reg := newRegistry(cfg)
	deps := &toolDeps{reg: reg}

	mcpSrv := mcpserver.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	createTableTool := mcp.NewTool("create_table",
		mcp.WithDescription("Create a new in-memory table with a fixed column schema"),
		mcp.WithString("name", mcp.Description("The table name"), mcp.Required()),
		mcp.WithString("columns", mcp.Description(`JSON array of {"name","type","nullable"}; type is one of int32, int64, float32, float64, bool, string, date, datetime`), mcp.Required()),
	)

	dropTableTool := mcp.NewTool("drop_table",
		mcp.WithDescription("Drop a previously created table"),
		mcp.WithString("name", mcp.Description("The table name"), mcp.Required()),
	)

	listTablesTool := mcp.NewTool("list_tables",
		mcp.WithDescription("List every currently registered table name"),
	)

	appendRowTool := mcp.NewTool("append_row",
		mcp.WithDescription("Append one row to a table, given as a JSON object"),
		mcp.WithString("table", mcp.Description("The table name"), mcp.Required()),
		mcp.WithString("row", mcp.Description("JSON object mapping column name to value"), mcp.Required()),
	)

	deleteRowTool := mcp.NewTool("delete_row",
		mcp.WithDescription("Delete a row by index (negative indices count from the end)"),
		mcp.WithString("table", mcp.Description("The table name"), mcp.Required()),
		mcp.WithNumber("row", mcp.Description("Row index"), mcp.Required()),
	)

	setValueTool := mcp.NewTool("set_value",
		mcp.WithDescription("Assign a single column value on a row"),
		mcp.WithString("table", mcp.Description("The table name"), mcp.Required()),
		mcp.WithNumber("row", mcp.Description("Row index"), mcp.Required()),
		mcp.WithString("column", mcp.Description("Column name"), mcp.Required()),
		mcp.WithString("value", mcp.Description("JSON-encoded scalar value (or null)"), mcp.Required()),
	)

	getRowTool := mcp.NewTool("get_row",
		mcp.WithDescription("Read one row as a JSON object"),
		mcp.WithString("table", mcp.Description("The table name"), mcp.Required()),
		mcp.WithNumber("row", mcp.Description("Row index"), mcp.Required()),
	)

	tickTool := mcp.NewTool("tick",
		mcp.WithDescription("Propagate pending change-log entries to every registered view and compact the log"),
		mcp.WithString("table", mcp.Description("The table name"), mcp.Required()),
	)

	filterExprTool := mcp.NewTool("filter_expr",
		mcp.WithDescription("Evaluate a restricted filter expression against a table and return matching row indices"),
		mcp.WithString("table", mcp.Description("The table name"), mcp.Required()),
		mcp.WithString("expr", mcp.Description(`Filter expression, e.g. "amount >= 100 AND region = 'West'"`), mcp.Required()),
	)

	aggregateTool := mcp.NewTool("aggregate",
		mcp.WithDescription("Compute sum, avg, min, max, or count over a column"),
		mcp.WithString("table", mcp.Description("The table name"), mcp.Required()),
		mcp.WithString("column", mcp.Description("Column name"), mcp.Required()),
		mcp.WithString("func", mcp.Description("One of sum, avg, min, max, count"), mcp.Required()),
	)

	createFilterViewTool := mcp.NewTool("create_filter_view",
		mcp.WithDescription("Register an incrementally maintained filter view over a table"),
		mcp.WithString("name", mcp.Description("The view name"), mcp.Required()),
		mcp.WithString("table", mcp.Description("The source table name"), mcp.Required()),
		mcp.WithString("expr", mcp.Description("Filter expression, e.g. \"amount >= 100\""), mcp.Required()),
	)

	createSortedViewTool := mcp.NewTool("create_sorted_view",
		mcp.WithDescription("Register an incrementally maintained sorted view over a table"),
		mcp.WithString("name", mcp.Description("The view name"), mcp.Required()),
		mcp.WithString("table", mcp.Description("The source table name"), mcp.Required()),
		mcp.WithString("keys", mcp.Description(`JSON array of {"column","order","nulls_first"}`), mcp.Required()),
	)

	createJoinViewTool := mcp.NewTool("create_join_view",
		mcp.WithDescription("Register an incrementally maintained hash join view between two tables"),
		mcp.WithString("name", mcp.Description("The view name"), mcp.Required()),
		mcp.WithString("left_table", mcp.Description("Left table name"), mcp.Required()),
		mcp.WithString("right_table", mcp.Description("Right table name"), mcp.Required()),
		mcp.WithString("kind", mcp.Description("inner or left"), mcp.Required()),
		mcp.WithString("keys", mcp.Description(`JSON array of {"left_col","right_col"}`), mcp.Required()),
	)

	createAggregateViewTool := mcp.NewTool("create_aggregate_view",
		mcp.WithDescription("Register an incrementally maintained group-by aggregate view over a table"),
		mcp.WithString("name", mcp.Description("The view name"), mcp.Required()),
		mcp.WithString("table", mcp.Description("The source table name"), mcp.Required()),
		mcp.WithString("group_by", mcp.Description("JSON array of group-by column names"), mcp.Required()),
		mcp.WithString("aggregates", mcp.Description(`JSON array of {"output_name","source_column","function"}`), mcp.Required()),
	)

	dropViewTool := mcp.NewTool("drop_view",
		mcp.WithDescription("Close and forget a registered view"),
		mcp.WithString("name", mcp.Description("The view name"), mcp.Required()),
	)

	viewLenTool := mcp.NewTool("view_len",
		mcp.WithDescription("Return a registered view's current row count"),
		mcp.WithString("name", mcp.Description("The view name"), mcp.Required()),
	)

	viewRowTool := mcp.NewTool("view_row",
		mcp.WithDescription("Read one output row from a registered view by position"),
		mcp.WithString("name", mcp.Description("The view name"), mcp.Required()),
		mcp.WithNumber("row", mcp.Description("Row position"), mcp.Required()),
	)

	mcpSrv.AddTool(createTableTool, deps.HandleCreateTable)
	mcpSrv.AddTool(dropTableTool, deps.HandleDropTable)
	mcpSrv.AddTool(listTablesTool, deps.HandleListTables)
	mcpSrv.AddTool(appendRowTool, deps.HandleAppendRow)
	mcpSrv.AddTool(deleteRowTool, deps.HandleDeleteRow)
	mcpSrv.AddTool(setValueTool, deps.HandleSetValue)
	mcpSrv.AddTool(getRowTool, deps.HandleGetRow)
	mcpSrv.AddTool(tickTool, deps.HandleTick)
	mcpSrv.AddTool(filterExprTool, deps.HandleFilterExpr)
	mcpSrv.AddTool(aggregateTool, deps.HandleAggregate)
	mcpSrv.AddTool(createFilterViewTool, deps.HandleCreateFilterView)
	mcpSrv.AddTool(createSortedViewTool, deps.HandleCreateSortedView)
	mcpSrv.AddTool(createJoinViewTool, deps.HandleCreateJoinView)
	mcpSrv.AddTool(createAggregateViewTool, deps.HandleCreateAggregateView)
	mcpSrv.AddTool(dropViewTool, deps.HandleDropView)
	mcpSrv.AddTool(viewLenTool, deps.HandleViewLen)
	mcpSrv.AddTool(viewRowTool, deps.HandleViewRow)

	log.Printf("[tableserver] 启动 MCP stdio 服务器: %s v%s", cfg.Server.Name, cfg.Server.Version)
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		log.Fatal("MCP 服务器启动失败:", err)
	}
}
