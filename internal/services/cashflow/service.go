// Package cashflow cleans household ledger exports, groups them by month and
// maps free-text tags onto the category taxonomy.
package cashflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/models"
)

// Overall names the row-sum series across all categories.
const Overall = "Overall"

// LedgerConfig holds the ledger conventions CleanLedger relies on.
type LedgerConfig struct {
	DateLayout       string
	VacationCategory string
	VacationTag      string
}

// DefaultLedgerConfig matches the ledger app's CSV export.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{DateLayout: "01/02/06", VacationCategory: "Urlaub", VacationTag: "Urlaub"}
}

// LedgerConfigFrom picks the ledger settings out of the application config.
func LedgerConfigFrom(c common.CashflowConfig) LedgerConfig {
	cfg := DefaultLedgerConfig()
	if c.DateLayout != "" {
		cfg.DateLayout = c.DateLayout
	}
	if c.VacationCategory != "" {
		cfg.VacationCategory = c.VacationCategory
	}
	if c.VacationTag != "" {
		cfg.VacationTag = c.VacationTag
	}
	return cfg
}

func rowKey(i int) string { return fmt.Sprintf("row %d", i+1) }

// CleanLedger validates a ledger export and reduces it to dated, tagged,
// signed entries. Expenses come out negative.
func CleanLedger(raw models.RawTable, cfg LedgerConfig) ([]models.LedgerEntry, error) {
	if missing := raw.MissingColumns(models.LedgerColumns...); len(missing) > 0 {
		return nil, models.SchemaError("ledger_columns", "", "ledger export lacks columns", missing...)
	}

	var empty []string
	for i, row := range raw.Rows {
		for _, col := range models.LedgerColumns {
			if col != models.LedgerDescription && row.Get(col) == "" {
				empty = append(empty, rowKey(i))
				break
			}
		}
	}
	if len(empty) > 0 {
		return nil, models.SchemaError("no_missing_values", "", "empty cells outside Description", empty...)
	}

	var incomeMismatch, expenseMismatch, multiTag []string
	out := make([]models.LedgerEntry, 0, len(raw.Rows))
	for i, row := range raw.Rows {
		d, err := models.ParseDate(cfg.DateLayout, row.Get(models.LedgerDate))
		if err != nil {
			return nil, models.SchemaError("parse_date", models.LedgerDate, err.Error(), rowKey(i))
		}
		expense, err := common.ParseThousands(row.Get(models.LedgerExpenseAmount))
		if err != nil {
			return nil, models.SchemaError("parse_amount", models.LedgerExpenseAmount, err.Error(), rowKey(i))
		}
		income, err := common.ParseThousands(row.Get(models.LedgerIncomeAmount))
		if err != nil {
			return nil, models.SchemaError("parse_amount", models.LedgerIncomeAmount, err.Error(), rowKey(i))
		}
		main, err := common.ParseThousands(row.Get(models.LedgerMainAmount))
		if err != nil {
			return nil, models.SchemaError("parse_amount", models.LedgerMainAmount, err.Error(), rowKey(i))
		}

		amount := main
		if expense.IsPositive() {
			amount = main.Neg()
		}

		// Booked amounts only match the main currency amount when no
		// conversion took place; converted rows must still agree in sign.
		same := row.Get(models.LedgerCurrency) == row.Get(models.LedgerMainCurrency)
		if !income.IsZero() && !agrees(income, amount, same) {
			incomeMismatch = append(incomeMismatch, rowKey(i))
		}
		if !expense.IsZero() && !agrees(expense.Neg(), amount, same) {
			expenseMismatch = append(expenseMismatch, rowKey(i))
		}

		category := row.Get(models.LedgerCategory)
		tags := row.Get(models.LedgerTags)
		if category == cfg.VacationCategory {
			tags = tags + ", " + cfg.VacationTag
		}
		tag, ok := collapseTags(tags, cfg.VacationTag)
		if !ok {
			multiTag = append(multiTag, rowKey(i))
		}

		out = append(out, models.LedgerEntry{
			Date:     d,
			Category: category,
			Tag:      tag,
			Amount:   amount.InexactFloat64(),
		})
	}

	if len(incomeMismatch) > 0 {
		return nil, models.ConsistencyError("income_matches_main", models.LedgerIncomeAmount,
			"income amount does not match main currency amount", incomeMismatch...)
	}
	if len(expenseMismatch) > 0 {
		return nil, models.ConsistencyError("expense_matches_main", models.LedgerExpenseAmount,
			"expense amount does not match main currency amount", expenseMismatch...)
	}
	if len(multiTag) > 0 {
		return nil, models.ConsistencyError("multi_tag_vacation", models.LedgerTags,
			fmt.Sprintf("multi-tag entries must contain %q", cfg.VacationTag), multiTag...)
	}
	return out, nil
}

// agrees compares a booked amount with the signed main currency amount:
// exactly when both are in the main currency, by sign otherwise.
func agrees(booked, amount decimal.Decimal, sameCurrency bool) bool {
	if sameCurrency {
		return booked.Equal(amount)
	}
	return booked.Sign() == amount.Sign()
}

// collapseTags reduces a comma separated tag list to one tag. A list of more
// than one tag is only valid when it contains the vacation tag.
func collapseTags(tags, vacation string) (string, bool) {
	parts := strings.Split(tags, ",")
	if len(parts) == 1 {
		return strings.TrimSpace(parts[0]), true
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == vacation {
			return vacation, true
		}
	}
	return tags, false
}

type monthTag struct {
	month models.Date
	tag   string
}

// SplitMonthly sums the entries per calendar month and tag. Groups with a
// positive sum are income, the rest expenses. Both come out sorted by month
// then tag.
func SplitMonthly(entries []models.LedgerEntry) (incomes, expenses []models.MonthlyTagAmount) {
	sums := make(map[monthTag]decimal.Decimal)
	var keys []monthTag
	for _, e := range entries {
		k := monthTag{month: e.Date.FirstOfMonth(), tag: e.Tag}
		cur, ok := sums[k]
		if !ok {
			keys = append(keys, k)
		}
		sums[k] = cur.Add(decimal.NewFromFloat(e.Amount))
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := keys[i].month.Compare(keys[j].month); c != 0 {
			return c < 0
		}
		return keys[i].tag < keys[j].tag
	})

	for _, k := range keys {
		m := models.MonthlyTagAmount{Month: k.month, Tag: k.tag, Amount: sums[k].InexactFloat64()}
		if sums[k].IsPositive() {
			incomes = append(incomes, m)
		} else {
			expenses = append(expenses, m)
		}
	}
	return incomes, expenses
}

// Tags lists the distinct tags of a monthly stream, sorted.
func Tags(monthly []models.MonthlyTagAmount) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range monthly {
		if !seen[m.Tag] {
			seen[m.Tag] = true
			out = append(out, m.Tag)
		}
	}
	sort.Strings(out)
	return out
}

// Categorize pivots a monthly stream into one row per month with every
// taxonomy category as a column. The special tag is pulled out into its own
// series first and never reaches a category. Any other tag the taxonomy does
// not know is fatal, as is a taxonomy that fails Validate.
func Categorize(monthly []models.MonthlyTagAmount, tax models.Taxonomy, specialTag string) (models.CategorizedTable, []models.MonthAmount, error) {
	if err := tax.Validate(); err != nil {
		return models.CategorizedTable{}, nil, err
	}
	table := models.CategorizedTable{Categories: tax.Names()}

	index := tax.TagIndex()
	monthSet := make(map[models.Date]bool)
	var unknown []string
	seenUnknown := make(map[string]bool)
	hasSpecial := false
	for _, m := range monthly {
		monthSet[m.Month] = true
		if specialTag != "" && m.Tag == specialTag {
			hasSpecial = true
			continue
		}
		if _, ok := index[m.Tag]; !ok && !seenUnknown[m.Tag] {
			seenUnknown[m.Tag] = true
			unknown = append(unknown, m.Tag)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return table, nil, models.ReferentialError("taxonomy_coverage", models.LedgerTags,
			"tags without a category", unknown...)
	}

	months := make([]models.Date, 0, len(monthSet))
	for d := range monthSet {
		months = append(months, d)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	sums := make(map[models.Date]map[string]decimal.Decimal, len(months))
	special := make(map[models.Date]decimal.Decimal)
	for _, d := range months {
		sums[d] = make(map[string]decimal.Decimal)
	}
	for _, m := range monthly {
		amt := decimal.NewFromFloat(m.Amount)
		if hasSpecial && m.Tag == specialTag {
			special[m.Month] = special[m.Month].Add(amt)
			continue
		}
		cat := index[m.Tag]
		sums[m.Month][cat] = sums[m.Month][cat].Add(amt)
	}

	var upkeep []models.MonthAmount
	for _, d := range months {
		row := models.CategorizedMonth{Month: d, Amounts: make(map[string]float64, len(table.Categories))}
		for _, c := range table.Categories {
			row.Amounts[c] = sums[d][c].InexactFloat64()
		}
		table.Months = append(table.Months, row)
		if hasSpecial {
			upkeep = append(upkeep, models.MonthAmount{Month: d, Amount: special[d].InexactFloat64()})
		}
	}
	return table, upkeep, nil
}

// Categories lists the table's categories sorted, followed by Overall.
func Categories(table models.CategorizedTable) []string {
	out := append([]string(nil), table.Categories...)
	sort.Strings(out)
	return append(out, Overall)
}

func hasCategory(table models.CategorizedTable, category string) bool {
	if category == Overall {
		return true
	}
	for _, c := range table.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// CategorySeries returns one category month by month. Overall is the sum of
// every category.
func CategorySeries(table models.CategorizedTable, category string) ([]models.MonthAmount, error) {
	if !hasCategory(table, category) {
		return nil, models.SchemaError("unknown_category", models.LedgerCategory, "no such category", category)
	}
	out := make([]models.MonthAmount, 0, len(table.Months))
	for _, m := range table.Months {
		v := m.Amounts[category]
		if category == Overall {
			v = decimal.NewFromFloat(m.Total()).Round(2).InexactFloat64()
		}
		out = append(out, models.MonthAmount{Month: m.Month, Amount: v})
	}
	return out, nil
}

// AverageMonthly is the mean monthly amount of a category, rounded to cents.
func AverageMonthly(table models.CategorizedTable, category string) (float64, error) {
	series, err := CategorySeries(table, category)
	if err != nil || len(series) == 0 {
		return 0, err
	}
	sum := decimal.Zero
	for _, s := range series {
		sum = sum.Add(decimal.NewFromFloat(s.Amount))
	}
	return sum.Div(decimal.NewFromInt(int64(len(series)))).Round(2).InexactFloat64(), nil
}

// MonthBreakdown lists the non-zero categories of one month in taxonomy order.
func MonthBreakdown(table models.CategorizedTable, month models.Date) ([]models.CategoryBreakdownRow, error) {
	month = month.FirstOfMonth()
	for _, m := range table.Months {
		if m.Month != month {
			continue
		}
		var out []models.CategoryBreakdownRow
		for _, c := range table.Categories {
			if v := m.Amounts[c]; v != 0 {
				out = append(out, models.CategoryBreakdownRow{Category: c, Amount: v})
			}
		}
		return out, nil
	}
	return nil, models.ReferentialError("unknown_month", models.LedgerDate, "month not in ledger", month.MonthKey())
}

// MergeExports appends monthly ledger exports into one table.
func MergeExports(files []models.RawTable) models.RawTable {
	var out models.RawTable
	for _, f := range files {
		out = out.Append(f)
	}
	return out
}
