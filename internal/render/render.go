package render

// Table is the structural result of rendering: one header cell per header
// entry and one body row per data row, each a copy of its input.
type Table struct {
	Header []string
	Rows   [][]string
}

// Render copies header and rows into a Table. No padding, truncation or
// conversion happens here, so ragged rows stay ragged.
func Render(header []string, rows [][]string) Table {
	out := Table{
		Header: append([]string{}, header...),
		Rows:   make([][]string, len(rows)),
	}

	for i, row := range rows {
		out.Rows[i] = append([]string{}, row...)
	}

	return out
}

