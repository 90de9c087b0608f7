package artifact

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Table is tabular data with a fixed column order.
type Table struct {
	Columns []string
	Rows    []map[string]cty.Value
}

// NewTable wraps a table in an Artifact.
func NewTable(t Table) Artifact {
	return Artifact{Kind: KindTable, Value: t.Value()}
}

// Value encodes the table as object{columns, rows} so references like
// stage.orders.rows resolve naturally.
func (t Table) Value() cty.Value {
	cols := make([]cty.Value, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = cty.StringVal(c)
	}

	rows := make([]cty.Value, len(t.Rows))
	for i, row := range t.Rows {
		attrs := make(map[string]cty.Value, len(row))
		for k, v := range row {
			attrs[k] = v
		}
		rows[i] = cty.ObjectVal(attrs)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"columns": tupleOrEmpty(cols),
		"rows":    tupleOrEmpty(rows),
	})
}

// TableFromValue decodes a table payload. It accepts the full artifact
// object or a bare sequence of row objects (as produced by a sub-field
// reference to .rows).
func TableFromValue(v cty.Value) (Table, error) {
	if v.IsNull() || !v.IsKnown() {
		return Table{}, fmt.Errorf("table value is null or unknown")
	}

	rowsVal := v
	var columns []string

	if v.Type().IsObjectType() && v.Type().HasAttribute("rows") {
		rowsVal = v.GetAttr("rows")
		if v.Type().HasAttribute("columns") {
			colsVal := v.GetAttr("columns")
			for it := colsVal.ElementIterator(); it.Next(); {
				_, c := it.Element()
				columns = append(columns, c.AsString())
			}
		}
	}

	if !rowsVal.CanIterateElements() {
		return Table{}, fmt.Errorf("table rows are not a sequence, got %s", rowsVal.Type().FriendlyName())
	}

	var rows []map[string]cty.Value
	for it := rowsVal.ElementIterator(); it.Next(); {
		_, rowVal := it.Element()
		if !rowVal.Type().IsObjectType() && !rowVal.Type().IsMapType() {
			return Table{}, fmt.Errorf("table row is not an object, got %s", rowVal.Type().FriendlyName())
		}
		row := make(map[string]cty.Value)
		for rit := rowVal.ElementIterator(); rit.Next(); {
			k, cell := rit.Element()
			row[k.AsString()] = cell
		}
		rows = append(rows, row)
	}

	if columns == nil && len(rows) > 0 {
		for k := range rows[0] {
			columns = append(columns, k)
		}
		sort.Strings(columns)
	}

	return Table{Columns: columns, Rows: rows}, nil
}

// Strings returns the named column as strings, converting numbers if needed.
func (t Table) Strings(column string) ([]string, error) {
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		v, ok := row[column]
		if !ok {
			return nil, fmt.Errorf("table has no column %q", column)
		}
		switch {
		case v.Type() == cty.String:
			out[i] = v.AsString()
		case v.Type() == cty.Number:
			out[i] = v.AsBigFloat().Text('g', -1)
		default:
			return nil, fmt.Errorf("column %q row %d is %s, want string", column, i, v.Type().FriendlyName())
		}
	}
	return out, nil
}

// Floats returns the named column as float64 values.
func (t Table) Floats(column string) ([]float64, error) {
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		v, ok := row[column]
		if !ok {
			return nil, fmt.Errorf("table has no column %q", column)
		}
		if v.Type() != cty.Number {
			return nil, fmt.Errorf("column %q row %d is %s, want number", column, i, v.Type().FriendlyName())
		}
		f, _ := v.AsBigFloat().Float64()
		out[i] = f
	}
	return out, nil
}

func tupleOrEmpty(vals []cty.Value) cty.Value {
	if len(vals) == 0 {
		return cty.EmptyTupleVal
	}
	return cty.TupleVal(vals)
}
