package frame

import (
	"math"
	"strconv"
)

// PreviewRows is the default row count of a tabular preview.
const PreviewRows = 20

// Table is a projected, string-rendered slice of a view.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total"`
}

// Columns returns the view's dimension keys followed by its measure keys.
func Columns(view View) []string {
	cols := make([]string, 0, len(view.DimensionKeys())+len(view.MeasureKeys()))
	cols = append(cols, view.DimensionKeys()...)
	return append(cols, view.MeasureKeys()...)
}

// Project renders the first limit rows of view restricted to columns.
// A limit <= 0 renders every row; unknown columns render empty.
func Project(view View, columns []string, limit int) Table {
	if len(columns) == 0 {
		columns = Columns(view)
	}
	n := view.Len()
	if limit > 0 && limit < n {
		n = limit
	}

	isMeasure := make(map[string]bool, len(view.MeasureKeys()))
	for _, m := range view.MeasureKeys() {
		isMeasure[m] = true
	}

	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(columns))
		for j, c := range columns {
			if isMeasure[c] {
				row[j] = formatCell(view.Measure(i, c))
			} else {
				row[j] = view.Dimension(i, c)
			}
		}
		rows[i] = row
	}
	return Table{Columns: columns, Rows: rows, Total: view.Len()}
}

// Head renders the first n rows with every column.
func Head(view View, n int) Table {
	return Project(view, nil, n)
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
