package models

// AggSum is the only aggregation the breakdown supports.
const AggSum = "sum"

// BreakdownRow is one group of a percentage breakdown.
type BreakdownRow struct {
	Group      string  `json:"group"`
	Sum        float64 `json:"sum"`
	Percentage float64 `json:"percentage"`
}

// Breakdown is one pie chart worth of groups.
type Breakdown struct {
	GroupColumn string         `json:"group_column"`
	ValueColumn string         `json:"value_column"`
	Rows        []BreakdownRow `json:"rows"`
}
