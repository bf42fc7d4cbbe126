package models

// Ledger export headers.
const (
	LedgerDate          = "Date"
	LedgerAccount       = "Account"
	LedgerCategory      = "Category"
	LedgerTags          = "Tags"
	LedgerExpenseAmount = "Expense amount"
	LedgerIncomeAmount  = "Income amount"
	LedgerCurrency      = "Currency"
	LedgerMainAmount    = "In main currency"
	LedgerMainCurrency  = "Main currency"
	LedgerDescription   = "Description"
)

// LedgerColumns lists the headers a ledger export must carry.
var LedgerColumns = []string{
	LedgerDate, LedgerAccount, LedgerCategory, LedgerTags,
	LedgerExpenseAmount, LedgerIncomeAmount, LedgerCurrency,
	LedgerMainAmount, LedgerMainCurrency, LedgerDescription,
}

// CashflowKind selects the income or the expense stream.
type CashflowKind string

const (
	Income   CashflowKind = "income"
	Expenses CashflowKind = "expenses"
)

// LedgerEntry is a cleaned ledger row. Expenses are negative.
type LedgerEntry struct {
	Date     Date    `json:"date"`
	Category string  `json:"category"`
	Tag      string  `json:"tag"`
	Amount   float64 `json:"amount"`
}

func (e LedgerEntry) EventDate() Date { return e.Date }

// MonthlyTagAmount is the summed amount of one tag in one month.
type MonthlyTagAmount struct {
	Month  Date    `json:"month"`
	Tag    string  `json:"tag"`
	Amount float64 `json:"amount"`
}

func (m MonthlyTagAmount) EventDate() Date { return m.Month }

// MonthAmount is one point of a single-valued monthly series.
type MonthAmount struct {
	Month  Date    `json:"month"`
	Amount float64 `json:"amount"`
}

func (m MonthAmount) EventDate() Date { return m.Month }

// CategorizedMonth holds one month with every taxonomy category present.
type CategorizedMonth struct {
	Month   Date               `json:"month"`
	Amounts map[string]float64 `json:"amounts"`
}

func (m CategorizedMonth) EventDate() Date { return m.Month }

// Total sums every category of the month.
func (m CategorizedMonth) Total() float64 {
	var sum float64
	for _, v := range m.Amounts {
		sum += v
	}
	return sum
}

// CategorizedTable is the pivoted month by category view.
type CategorizedTable struct {
	Categories []string           `json:"categories"`
	Months     []CategorizedMonth `json:"months"`
}

// CategoryBreakdownRow is one slice of a single-month breakdown.
type CategoryBreakdownRow struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}
