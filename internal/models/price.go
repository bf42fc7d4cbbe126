package models

import (
	"sort"
	"time"
)

// PriceObservation is one price of one instrument on one day.
type PriceObservation struct {
	ISIN     string  `json:"isin"`
	Name     string  `json:"name,omitempty"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Date     Date    `json:"date"`
	BatchID  string  `json:"batch_id,omitempty"`
}

// PriceBatch is one append to the price history, all observations taken by
// the same update run.
type PriceBatch struct {
	ID           string             `json:"id"`
	CreatedAt    time.Time          `json:"created_at"`
	Observations []PriceObservation `json:"observations"`
}

// Dates returns the distinct observation dates of the batch.
func (b PriceBatch) Dates() []Date {
	seen := make(map[Date]bool)
	var out []Date
	for _, o := range b.Observations {
		if !seen[o.Date] {
			seen[o.Date] = true
			out = append(out, o.Date)
		}
	}
	return out
}

// LatestSnapshot holds the newest observation per ISIN.
type LatestSnapshot struct {
	Prices    map[string]PriceObservation `json:"prices"`
	UpdatedAt Date                        `json:"updated_at"`
	Currency  string                      `json:"currency"`
}

// CheckOverlap fails with ErrOverlap when a date of the batch is already
// present in the history. The error lists the clashing dates.
func CheckOverlap(history []PriceObservation, batch PriceBatch) error {
	known := make(map[Date]bool, len(history))
	for _, o := range history {
		known[o.Date] = true
	}
	var clash []string
	for _, d := range batch.Dates() {
		if known[d] {
			clash = append(clash, d.String())
		}
	}
	if len(clash) == 0 {
		return nil
	}
	sort.Strings(clash)
	return NewDataError(ErrOverlap, "history_overlap", ColDate,
		"price data for this date already exists", clash...)
}
