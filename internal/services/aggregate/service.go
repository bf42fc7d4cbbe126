// Package aggregate computes percentage breakdowns and the timeframe and
// instrument filters used by the dashboard.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/finhub/internal/models"
)

// AllTime disables the timeframe filter.
const AllTime = -1

var hundred = decimal.NewFromInt(100)

// Records converts typed rows into the Record view PercentageBreakdown takes.
func Records[T models.Record](rows []T) []models.Record {
	out := make([]models.Record, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

func groupKey(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case models.Date:
		return t.String()
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

func numeric(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	}
	return decimal.Zero, false
}

// PercentageBreakdown groups rows by groups[i] and aggregates values[i] with
// aggs[i], for every i. The percentage of a group is its share of the total
// rounded to three decimals, times 100. Rows come out sorted by group.
func PercentageBreakdown(rows []models.Record, groups, values, aggs []string) ([]models.Breakdown, error) {
	if len(groups) != len(values) || len(values) != len(aggs) {
		return nil, models.SchemaError("breakdown_arity", "",
			fmt.Sprintf("%d groups, %d values, %d aggregations", len(groups), len(values), len(aggs)))
	}
	for _, agg := range aggs {
		if agg != models.AggSum {
			return nil, models.NewDataError(models.ErrUnsupported, "breakdown_aggregation", "",
				"only sum is supported", agg)
		}
	}

	out := make([]models.Breakdown, 0, len(groups))
	for i := range groups {
		b, err := breakdown(rows, groups[i], values[i])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func breakdown(rows []models.Record, group, value string) (models.Breakdown, error) {
	b := models.Breakdown{GroupColumn: group, ValueColumn: value}
	sums := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, r := range rows {
		g, ok := r.Field(group)
		if !ok {
			return b, models.SchemaError("unknown_column", group, "rows have no such column", group)
		}
		raw, ok := r.Field(value)
		if !ok {
			return b, models.SchemaError("unknown_column", value, "rows have no such column", value)
		}
		v, ok := numeric(raw)
		if !ok {
			return b, models.SchemaError("numeric_value", value, fmt.Sprintf("%T is not numeric", raw), value)
		}
		k := groupKey(g)
		sums[k] = sums[k].Add(v)
		total = total.Add(v)
	}

	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		row := models.BreakdownRow{Group: k, Sum: sums[k].Round(2).InexactFloat64()}
		if !total.IsZero() {
			row.Percentage = sums[k].Div(total).Round(3).Mul(hundred).InexactFloat64()
		}
		b.Rows = append(b.Rows, row)
	}
	return b, nil
}

// FilterByDate keeps rows dated on or after today minus monthsBack months.
// AllTime returns rows unchanged.
func FilterByDate[T models.Dated](rows []T, monthsBack int, today models.Date) []T {
	if monthsBack == AllTime {
		return rows
	}
	cutoff := today.AddMonths(-monthsBack)
	var out []T
	for _, r := range rows {
		if !r.EventDate().Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByInstrument keeps the rows of one instrument name.
func FilterByInstrument[T models.Named](rows []T, name string) []T {
	var out []T
	for _, r := range rows {
		if r.InstrumentName() == name {
			out = append(out, r)
		}
	}
	return out
}

// FilterRecordsByName is FilterByInstrument for untyped rows. Rows without a
// Name field are rejected.
func FilterRecordsByName(rows []models.Record, name string) ([]models.Record, error) {
	var out []models.Record
	for _, r := range rows {
		v, ok := r.Field(models.ColName)
		if !ok {
			return nil, models.SchemaError("name_column", models.ColName, "rows have no name column")
		}
		if groupKey(v) == name {
			out = append(out, r)
		}
	}
	return out, nil
}
