package export

// Dataset is tabular export content. Rows are keyed by header so callers can
// leave optional columns out.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Append adds a row.
func (d *Dataset) Append(row map[string]string) {
	d.Rows = append(d.Rows, row)
}

// Len returns the number of data rows.
func (d Dataset) Len() int { return len(d.Rows) }

// Values returns row i in header order, with "" for missing columns.
func (d Dataset) Values(i int) []string {
	out := make([]string, len(d.Headers))
	for j, h := range d.Headers {
		out[j] = d.Rows[i][h]
	}
	return out
}
