package models

// OverallPortfolio names the synthetic series summed across instruments.
const OverallPortfolio = "Overall Portfolio"

// TimeSeriesPoint is one cell of the dense (month, instrument) grid with
// cumulative figures up to and including that month.
type TimeSeriesPoint struct {
	Date       Date    `json:"date"`
	Name       string  `json:"name"`
	Investment float64 `json:"investment"`
	OrderCost  float64 `json:"order_cost"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	Value      float64 `json:"value"`
}

func (p TimeSeriesPoint) EventDate() Date        { return p.Date }
func (p TimeSeriesPoint) InstrumentName() string { return p.Name }

// Field implements Record.
func (p TimeSeriesPoint) Field(name string) (any, bool) {
	switch name {
	case ColDate:
		return p.Date, true
	case ColName:
		return p.Name, true
	case ColInvestment:
		return p.Investment, true
	case ColOrderCost:
		return p.OrderCost, true
	case ColQuantity:
		return p.Quantity, true
	case ColPrice:
		return p.Price, true
	case ColValue:
		return p.Value, true
	}
	return nil, false
}
