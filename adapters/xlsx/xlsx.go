// Package xlsxadapter 是 SPEC_FULL 补充的第三个边界适配器：在CSV/JSON之外
// 提供一个spreadsheet导出面，复用同样的表头顺序/空值规则，只是把目标格式换成
// excelize工作表单元格。这里不实现任何核心语义，只做一次性导出。
package xlsxadapter

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kasuganosora/livetable/pkg/table"
	"github.com/kasuganosora/livetable/pkg/value"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05.000"
)

// Export 把tb的全部行写入一个新建的xlsx文件的sheetName工作表，表头为声明顺序
// 的列名，空值渲染为空单元格。sheetName为空时使用excelize的默认第一个工作表。
func Export(tb *table.Table, sheetName string) (*excelize.File, error) {
	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)
	if sheetName == "" {
		sheetName = defaultSheet
	} else if sheetName != defaultSheet {
		if _, err := f.NewSheet(sheetName); err != nil {
			return nil, fmt.Errorf("xlsx: create sheet %q: %w", sheetName, err)
		}
		f.DeleteSheet(defaultSheet)
	}

	names := tb.ColumnNames()
	for c, name := range names {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return nil, fmt.Errorf("xlsx: write header cell %s: %w", cell, err)
		}
	}

	for i := 0; i < tb.Len(); i++ {
		for c, name := range names {
			cell, err := excelize.CoordinatesToCellName(c+1, i+2)
			if err != nil {
				return nil, err
			}
			v := tb.ValueAt(name, i)
			if v.IsNull() {
				continue
			}
			if err := f.SetCellValue(sheetName, cell, cellValue(v, tb.Resolver(name))); err != nil {
				return nil, fmt.Errorf("xlsx: write cell %s: %w", cell, err)
			}
		}
	}

	idx, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return nil, fmt.Errorf("xlsx: locate sheet %q: %w", sheetName, err)
	}
	f.SetActiveSheet(idx)
	return f, nil
}

func cellValue(v value.Value, r value.Resolver) interface{} {
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
