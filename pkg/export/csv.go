package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSV renders the table as RFC 4180 CSV with a header line of column labels.
func CSV(table Table) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, ErrNoColumns
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(table.labels()); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range table.Rows {
		if err := w.Write(table.record(row)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
