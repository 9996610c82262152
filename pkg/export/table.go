// Package export renders tabular reports into downloadable files.
package export

import (
	"errors"
	"time"
)

// ErrNoColumns is returned when a table has nothing to render.
var ErrNoColumns = errors.New("export: table has no columns")

// Column describes one table column. Width is a relative weight used by the
// PDF renderer; zero means 1.
type Column struct {
	Key   string
	Label string
	Width float64
}

// Row holds cell values keyed by Column.Key. Highlight marks rows the PDF
// renderer shades.
type Row struct {
	Cells     map[string]string
	Highlight bool
}

// Table is the renderer-independent report content.
type Table struct {
	Title       string
	Subtitle    string
	Columns     []Column
	Rows        []Row
	GeneratedAt time.Time
}

func (t Table) labels() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Label
		if out[i] == "" {
			out[i] = c.Key
		}
	}
	return out
}

func (t Table) record(row Row) []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = row.Cells[c.Key]
	}
	return out
}
