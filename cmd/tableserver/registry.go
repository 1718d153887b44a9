package main

import (
	"fmt"
	"sync"

	"github.com/kasuganosora/livetable/pkg/config"
	"github.com/kasuganosora/livetable/pkg/schema"
	"github.com/kasuganosora/livetable/pkg/table"
	"github.com/kasuganosora/livetable/pkg/value"
)

// registry owns every table the MCP host has created, keyed by name. The
// core engine itself needs no locking (single-threaded cooperative model),
// but an HTTP/stdio MCP transport can dispatch concurrently, so the
// boundary layer serializes access with a mutex.
type registry struct {
	mu     sync.Mutex
	cfg    *config.Config
	tables map[string]*table.Table
	views  map[string]viewEntry
}

func newRegistry(cfg *config.Config) *registry {
	return &registry{
		cfg:    cfg,
		tables: make(map[string]*table.Table),
		views:  make(map[string]viewEntry),
	}
}

// columnSpec is the JSON-facing description of one schema column.
type columnSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

func kindFromString(s string) (value.Kind, error) {
	switch s {
	case "int32":
		return value.KindInt32, nil
	case "int64":
		return value.KindInt64, nil
	case "float32":
		return value.KindFloat32, nil
	case "float64":
		return value.KindFloat64, nil
	case "bool":
		return value.KindBool, nil
	case "string":
		return value.KindString, nil
	case "date":
		return value.KindDate, nil
	case "datetime":
		return value.KindDateTime, nil
	default:
		return value.KindNull, fmt.Errorf("unknown column type %q", s)
	}
}

func (r *registry) createTable(name string, cols []columnSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[name]; exists {
		return fmt.Errorf("table %q already exists", name)
	}

	defs := make([]schema.ColumnDef, 0, len(cols))
	for _, c := range cols {
		kind, err := kindFromString(c.Type)
		if err != nil {
			return err
		}
		defs = append(defs, schema.ColumnDef{Name: c.Name, Type: kind, Nullable: c.Nullable})
	}

	tb, err := table.New(table.Options{
		Name:               name,
		Schema:             schema.New(defs...),
		UseTieredVector:    r.cfg.Table.UseTieredVector,
		UseStringInterning: r.cfg.Table.UseStringInterning,
	})
	if err != nil {
		return err
	}
	r.tables[name] = tb
	return nil
}

func (r *registry) dropTable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tables[name]; !ok {
		return fmt.Errorf("table %q not found", name)
	}
	delete(r.tables, name)
	return nil
}

// withTable runs fn against the named table while holding the registry
// lock for the whole call, so concurrent MCP tool invocations never
// interleave mutations on the same table.
func (r *registry) withTable(name string, fn func(*table.Table) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tb, ok := r.tables[name]
	if !ok {
		return fmt.Errorf("table %q not found", name)
	}
	return fn(tb)
}

func (r *registry) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.tables))
	for name := range r.tables {
		out = append(out, name)
	}
	return out
}
