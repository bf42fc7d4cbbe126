package models

import "time"

// Dashboard is the immutable result of one pipeline run. Request handlers
// read it concurrently and never modify it.
type Dashboard struct {
	LoadedAt time.Time `json:"loaded_at"`

	Holdings      []Holding       `json:"holdings"`
	Dividends     []Transaction   `json:"dividends"`
	Current       []Holding       `json:"current"`
	ExecutionCost float64         `json:"execution_cost"`
	Valued        []ValuedHolding `json:"valued"`
	Totals        PortfolioTotals `json:"totals"`
	Breakdowns    []Breakdown     `json:"breakdowns"`
	Unmatched     []string        `json:"unmatched,omitempty"`

	Plan           SavingsPlan `json:"plan"`
	PlanBreakdowns []Breakdown `json:"plan_breakdowns"`

	TimeSeries   []TimeSeriesPoint `json:"timeseries"`
	ValueHistory []ValuePoint      `json:"value_history"`

	Expenses CategorizedTable `json:"expenses"`
	Income   CategorizedTable `json:"income"`
	Upkeep   []MonthAmount    `json:"upkeep"`

	Crypto          []CryptoListing  `json:"crypto"`
	CryptoPositions []CryptoPosition `json:"crypto_positions"`
}

// Cashflow returns the categorized table of the requested stream.
func (d *Dashboard) Cashflow(kind CashflowKind) CategorizedTable {
	if kind == Income {
		return d.Income
	}
	return d.Expenses
}

// Breakdown returns the breakdown grouped by column, if computed.
func (d *Dashboard) Breakdown(column string) (Breakdown, bool) {
	for _, b := range d.Breakdowns {
		if b.GroupColumn == column {
			return b, true
		}
	}
	return Breakdown{}, false
}
