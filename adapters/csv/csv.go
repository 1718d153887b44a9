// Package csvadapter is the CSV boundary contract (spec §6). It is a thin,
// informative surface: no core semantics live here, only export/import
// against the exact header/null/quoting rules the spec pins.
package csvadapter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kasuganosora/livetable/pkg/schema"
	"github.com/kasuganosora/livetable/pkg/table"
	"github.com/kasuganosora/livetable/pkg/value"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05.000"
)

// Export writes every row of tb to w as CSV: header is the column names in
// declaration order, null renders as an empty field, and encoding/csv
// quotes fields per RFC 4180 automatically.
func Export(tb *table.Table, w io.Writer) error {
	cw := csv.NewWriter(w)
	names := tb.ColumnNames()
	if err := cw.Write(names); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	record := make([]string, len(names))
	for i := 0; i < tb.Len(); i++ {
		for c, name := range names {
			v := tb.ValueAt(name, i)
			record[c] = renderField(v, tb.Resolver(name))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("csv: write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// renderField formats one value per spec §6: null is empty, Date is
// YYYY-MM-DD, DateTime is YYYY-MM-DDTHH:MM:SS.mmm UTC.
func renderField(v value.Value, r value.Resolver) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
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
		return v.String()
	}
}

// ImportRows reads CSV from r and converts each record into a row keyed by
// sch's column names. Each field is parsed as its column's declared type
// (see parseField); no type inference from the text is performed. The
// header row in r is consumed and matched against
// sch by name, not by position, so column order in the file need not match
// sch's declaration order.
func ImportRows(sch *schema.Schema, r io.Reader) ([]map[string]value.Value, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	var rows []map[string]value.Value
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row: %w", err)
		}
		row := make(map[string]value.Value, len(header))
		for i, name := range header {
			idx, ok := sch.IndexOf(name)
			if !ok {
				continue
			}
			row[name] = parseField(sch.Column(idx), record[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseField parses field as def's declared type. An empty field, or one
// that does not parse as that type, becomes Null; there is no fallback to
// inferring another type.
func parseField(def schema.ColumnDef, field string) value.Value {
	if field == "" {
		return value.Null
	}
	switch def.Type {
	case value.KindInt32:
		n, err := strconv.ParseInt(field, 10, 32)
		if err != nil {
			return value.Null
		}
		return value.Int32(int32(n))
	case value.KindInt64:
		n, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return value.Null
		}
		return value.Int64(n)
	case value.KindFloat32:
		f, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return value.Null
		}
		return value.Float32(float32(f))
	case value.KindFloat64:
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return value.Null
		}
		return value.Float64(f)
	case value.KindBool:
		b, err := strconv.ParseBool(field)
		if err != nil {
			return value.Null
		}
		return value.Bool(b)
	case value.KindDate:
		t, err := time.Parse(dateLayout, field)
		if err != nil {
			return value.Null
		}
		days := t.Unix() / 86400
		return value.Date(int32(days))
	case value.KindDateTime:
		t, err := time.Parse(dateTimeLayout, strings.TrimSuffix(field, "Z"))
		if err != nil {
			return value.Null
		}
		return value.DateTime(t.UnixMilli())
	case value.KindString:
		return value.String(field)
	default:
		return value.String(field)
	}
}
