package main

import (
	"fmt"

	"github.com/kasuganosora/livetable/pkg/schema"
	"github.com/kasuganosora/livetable/pkg/value"
)

// valueFromJSON converts a decoded JSON scalar into a value.Value typed
// per def. A missing or nil raw becomes Null.
func valueFromJSON(def schema.ColumnDef, raw interface{}) (value.Value, error) {
	if raw == nil {
		return value.Null, nil
	}
	switch def.Type {
	case value.KindInt32:
		f, ok := raw.(float64)
		if !ok {
			return value.Null, fmt.Errorf("column %q expects a number", def.Name)
		}
		return value.Int32(int32(f)), nil
	case value.KindInt64:
		f, ok := raw.(float64)
		if !ok {
			return value.Null, fmt.Errorf("column %q expects a number", def.Name)
		}
		return value.Int64(int64(f)), nil
	case value.KindFloat32:
		f, ok := raw.(float64)
		if !ok {
			return value.Null, fmt.Errorf("column %q expects a number", def.Name)
		}
		return value.Float32(float32(f)), nil
	case value.KindFloat64:
		f, ok := raw.(float64)
		if !ok {
			return value.Null, fmt.Errorf("column %q expects a number", def.Name)
		}
		return value.Float64(f), nil
	case value.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return value.Null, fmt.Errorf("column %q expects a boolean", def.Name)
		}
		return value.Bool(b), nil
	case value.KindString:
		s, ok := raw.(string)
		if !ok {
			return value.Null, fmt.Errorf("column %q expects a string", def.Name)
		}
		return value.String(s), nil
	case value.KindDate:
		f, ok := raw.(float64)
		if !ok {
			return value.Null, fmt.Errorf("column %q expects days-since-epoch", def.Name)
		}
		return value.Date(int32(f)), nil
	case value.KindDateTime:
		f, ok := raw.(float64)
		if !ok {
			return value.Null, fmt.Errorf("column %q expects epoch milliseconds", def.Name)
		}
		return value.DateTime(int64(f)), nil
	default:
		return value.Null, fmt.Errorf("column %q has unsupported type", def.Name)
	}
}

// valueToJSON converts a value.Value back to a plain Go value suitable
// for JSON encoding in a tool response. r resolves interned strings; it
// may be nil for non-string or non-interning columns.
func valueToJSON(v value.Value, r value.Resolver) interface{} {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case value.KindInt32, value.KindInt64, value.KindDate, value.KindDateTime:
		return v.Int()
	case value.KindFloat32, value.KindFloat64:
		return v.Float()
	case value.KindBool:
		return v.BoolValue()
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

// rowFromJSON converts a JSON object (decoded as map[string]interface{})
// into a row keyed by schema column name.
func rowFromJSON(sch *schema.Schema, raw map[string]interface{}) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(raw))
	for name, rv := range raw {
		idx, ok := sch.IndexOf(name)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		v, err := valueFromJSON(sch.Column(idx), rv)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// rowToJSON converts an engine row into a JSON-ready map. resolve looks
// up the per-column string resolver (nil is acceptable for non-string
// columns or when interning is disabled).
func rowToJSON(row map[string]value.Value, resolve func(col string) value.Resolver) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for name, v := range row {
		out[name] = valueToJSON(v, resolve(name))
	}
	return out
}
