package models

import "strings"

// Canonical column names shared by loaders, stores and the aggregation layer.
const (
	ColIndex        = "Index"
	ColDate         = "Date"
	ColPrice        = "Price"
	ColInvestment   = "Investment"
	ColOrderCost    = "OrderCost"
	ColProvider     = "Provider"
	ColName         = "Name"
	ColISIN         = "ISIN"
	ColType         = "Type"
	ColRegion       = "Region"
	ColReplication  = "Replication"
	ColDistribution = "Distribution"
	ColTER          = "TER"
	ColQuantity     = "Quantity"
	ColValue        = "Value"
	ColCurrency     = "Currency"
	ColLastUpdate   = "LastPriceUpdate"
)

// RawRow is one untyped source row keyed by column header.
type RawRow map[string]string

// Get returns the trimmed cell value, "" when absent.
func (r RawRow) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// Empty reports whether the cell is absent or blank. Spreadsheet exports
// write "nan" for blank numeric cells.
func (r RawRow) Empty(col string) bool {
	v := r.Get(col)
	return v == "" || strings.EqualFold(v, "nan")
}

// RawTable is the output of every file loader and the only untyped
// boundary of the pipeline.
type RawTable struct {
	Columns []string
	Rows    []RawRow
}

// NewRawTable builds a table from a header and positional records. Short
// records are padded with empty cells.
func NewRawTable(columns []string, records [][]string) RawTable {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
	}
	t := RawTable{Columns: cols, Rows: make([]RawRow, 0, len(records))}
	for _, rec := range records {
		row := make(RawRow, len(cols))
		for i, c := range cols {
			if i < len(rec) {
				row[c] = rec[i]
			} else {
				row[c] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// HasColumn reports whether col is part of the header.
func (t RawTable) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// MissingColumns returns the columns of want absent from the header.
func (t RawTable) MissingColumns(want ...string) []string {
	var missing []string
	for _, c := range want {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Rename returns a copy with headers renamed through m. Columns not in m keep
// their name.
func (t RawTable) Rename(m map[string]string) RawTable {
	out := RawTable{Columns: make([]string, len(t.Columns)), Rows: make([]RawRow, len(t.Rows))}
	for i, c := range t.Columns {
		if n, ok := m[c]; ok {
			out.Columns[i] = n
		} else {
			out.Columns[i] = c
		}
	}
	for i, row := range t.Rows {
		nr := make(RawRow, len(row))
		for k, v := range row {
			if n, ok := m[k]; ok {
				nr[n] = v
			} else {
				nr[k] = v
			}
		}
		out.Rows[i] = nr
	}
	return out
}

// Records returns the rows positionally in header order.
func (t RawTable) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			rec[j] = row[c]
		}
		out[i] = rec
	}
	return out
}

// Append concatenates other onto t. Headers must match by name; columns
// unknown to t are added.
func (t RawTable) Append(other RawTable) RawTable {
	out := RawTable{Columns: append([]string(nil), t.Columns...), Rows: append([]RawRow(nil), t.Rows...)}
	for _, c := range other.Columns {
		if !out.HasColumn(c) {
			out.Columns = append(out.Columns, c)
		}
	}
	out.Rows = append(out.Rows, other.Rows...)
	return out
}

// Record is a row of named fields. Field returns a string, float64, int or
// Date, and false for unknown names.
type Record interface {
	Field(name string) (any, bool)
}

// Dated rows carry the date used by timeframe filters.
type Dated interface {
	EventDate() Date
}

// Named rows carry the instrument name used by instrument filters.
type Named interface {
	InstrumentName() string
}
