// Package timeseries rebuilds the monthly cumulative portfolio history from
// the buy transactions.
package timeseries

import (
	"fmt"
	"sort"

	"github.com/bobmcallan/finhub/internal/models"
)

// PriceFill decides the price of a grid cell with no transaction that month.
type PriceFill string

const (
	// FillZero values such cells at zero.
	FillZero PriceFill = "zero"
	// FillForward carries the instrument's last known price forward.
	FillForward PriceFill = "forward"
)

// ParsePriceFill maps the configuration string, defaulting to FillZero.
func ParsePriceFill(s string) (PriceFill, error) {
	switch PriceFill(s) {
	case "", FillZero:
		return FillZero, nil
	case FillForward:
		return FillForward, nil
	}
	return "", fmt.Errorf("unknown price fill %q", s)
}

// Options tunes Build.
type Options struct {
	PriceFill PriceFill
}

type cellKey struct {
	date models.Date
	name string
}

type cell struct {
	investment float64
	orderCost  float64
	quantity   float64
	price      float64
	priced     bool
}

// Build expands the buys into the dense month x instrument grid with
// cumulative investment, order cost and quantity, values every cell and
// appends the Overall Portfolio series. Rows are ordered by name then date,
// the overall series last.
func Build(txs []models.Transaction, opts Options) []models.TimeSeriesPoint {
	if len(txs) == 0 {
		return nil
	}

	// Pre-aggregate by (month, name) so several buys in one month count once each.
	cells := make(map[cellKey]*cell)
	lastSeen := make(map[cellKey]models.Date)
	nameSet := make(map[string]bool)
	dateSet := make(map[models.Date]bool)
	for _, tx := range txs {
		k := cellKey{date: tx.Date.FirstOfMonth(), name: tx.Name}
		nameSet[k.name] = true
		dateSet[k.date] = true

		c, ok := cells[k]
		if !ok {
			c = &cell{}
			cells[k] = c
		}
		c.investment += tx.Investment
		c.orderCost += tx.OrderCost
		c.quantity += tx.Quantity()
		if tx.Price != 0 && (!c.priced || !tx.Date.Before(lastSeen[k])) {
			c.price = tx.Price
			c.priced = true
			lastSeen[k] = tx.Date
		}
	}

	names := make([]string, 0, len(nameSet))
	for n := range nameSet {
		names = append(names, n)
	}
	sort.Strings(names)
	dates := make([]models.Date, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]models.TimeSeriesPoint, 0, (len(names)+1)*len(dates))
	overall := make([]models.TimeSeriesPoint, len(dates))
	for i, d := range dates {
		overall[i] = models.TimeSeriesPoint{Date: d, Name: models.OverallPortfolio}
	}

	for _, name := range names {
		var cum models.TimeSeriesPoint
		var lastPrice float64
		for i, d := range dates {
			c := cells[cellKey{date: d, name: name}]
			price := 0.0
			if c != nil {
				cum.Investment += c.investment
				cum.OrderCost += c.orderCost
				cum.Quantity += c.quantity
				if c.priced {
					price = c.price
					lastPrice = c.price
				}
			}
			if price == 0 && opts.PriceFill == FillForward {
				price = lastPrice
			}

			p := models.TimeSeriesPoint{
				Date:       d,
				Name:       name,
				Investment: cum.Investment,
				OrderCost:  cum.OrderCost,
				Quantity:   cum.Quantity,
				Price:      price,
				Value:      cum.Quantity * price,
			}
			out = append(out, p)

			o := &overall[i]
			o.Investment += p.Investment
			o.OrderCost += p.OrderCost
			o.Quantity += p.Quantity
			o.Value += p.Value
		}
	}

	return append(out, overall...)
}

// Series returns the points of one name in date order.
func Series(points []models.TimeSeriesPoint, name string) []models.TimeSeriesPoint {
	var out []models.TimeSeriesPoint
	for _, p := range points {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

// Names lists the distinct series names in output order.
func Names(points []models.TimeSeriesPoint) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range points {
		if !seen[p.Name] {
			seen[p.Name] = true
			out = append(out, p.Name)
		}
	}
	return out
}
