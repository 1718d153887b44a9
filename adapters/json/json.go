// Package jsonadapter is the JSON boundary contract (spec §6): a thin,
// informative surface over *table.Table with no core semantics of its own.
package jsonadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kasuganosora/livetable/pkg/schema"
	"github.com/kasuganosora/livetable/pkg/table"
	"github.com/kasuganosora/livetable/pkg/value"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05.000"
)

// Export writes every row of tb to w as a JSON array of objects, one
// object per row, keyed by column name in declaration order. Null values
// encode as JSON null per spec §6.
func Export(tb *table.Table, w io.Writer) error {
	names := tb.ColumnNames()
	enc := json.NewEncoder(w)

	rows := make([]map[string]interface{}, 0, tb.Len())
	for i := 0; i < tb.Len(); i++ {
		row := make(map[string]interface{}, len(names))
		for _, name := range names {
			row[name] = renderValue(tb.ValueAt(name, i), tb.Resolver(name))
		}
		rows = append(rows, row)
	}
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("json: encode rows: %w", err)
	}
	return nil
}

func renderValue(v value.Value, r value.Resolver) interface{} {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case value.KindInt32, value.KindInt64:
		return v.Int()
	case value.KindFloat32, value.KindFloat64:
		return v.Float()
	case value.KindBool:
		return v.BoolValue()
	case value.KindDate:
		return time.Unix(0, 0).UTC().AddDate(0, 0, int(v.Int())).Format(dateLayout)
	case value.KindDateTime:
		return time.UnixMilli(v.Int()).UTC().Format(dateTimeLayout)
	case value.KindString:
		if v.Interned() {
			s, _ := r.Resolve(v.InternID())
			return s
		}
		return v.Str()
	default:
		return nil
	}
}

// ImportRows decodes a JSON array of objects from r into rows keyed by
// sch's column names. Each JSON value is converted to its column's
// declared type; a value whose JSON type does not fit that column type
// becomes Null, and no type inference is performed. Unknown keys not
// present in sch are ignored.
func ImportRows(sch *schema.Schema, r io.Reader) ([]map[string]value.Value, error) {
	var raw []map[string]interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("json: decode rows: %w", err)
	}

	rows := make([]map[string]value.Value, 0, len(raw))
	for _, obj := range raw {
		row := make(map[string]value.Value, len(obj))
		for name, rv := range obj {
			idx, ok := sch.IndexOf(name)
			if !ok {
				continue
			}
			row[name] = parseValue(sch.Column(idx), rv)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseValue(def schema.ColumnDef, raw interface{}) value.Value {
	if raw == nil {
		return value.Null
	}
	switch def.Type {
	case value.KindInt32:
		if f, ok := raw.(float64); ok {
			return value.Int32(int32(f))
		}
	case value.KindInt64:
		if f, ok := raw.(float64); ok {
			return value.Int64(int64(f))
		}
	case value.KindFloat32:
		if f, ok := raw.(float64); ok {
			return value.Float32(float32(f))
		}
	case value.KindFloat64:
		if f, ok := raw.(float64); ok {
			return value.Float64(f)
		}
	case value.KindBool:
		if b, ok := raw.(bool); ok {
			return value.Bool(b)
		}
	case value.KindString:
		if s, ok := raw.(string); ok {
			return value.String(s)
		}
	case value.KindDate:
		if s, ok := raw.(string); ok {
			if t, err := time.Parse(dateLayout, s); err == nil {
				return value.Date(int32(t.Unix() / 86400))
			}
		}
	case value.KindDateTime:
		if s, ok := raw.(string); ok {
			if t, err := time.Parse(dateTimeLayout, s); err == nil {
				return value.DateTime(t.UnixMilli())
			}
		}
	}
	return value.Null
}
