package models

// Holding is a recurring buy joined with the master data of its instrument.
type Holding struct {
	Transaction
	Type         string       `json:"type"`
	Region       string       `json:"region"`
	Replication  Replication  `json:"replication"`
	Distribution Distribution `json:"distribution"`
	TER          float64      `json:"ter"`
	Quantity     float64      `json:"quantity"`
}

// Field implements Record.
func (h Holding) Field(name string) (any, bool) {
	switch name {
	case ColType:
		return h.Type, true
	case ColRegion:
		return h.Region, true
	case ColReplication:
		return string(h.Replication), true
	case ColDistribution:
		return string(h.Distribution), true
	case ColTER:
		return h.TER, true
	case ColQuantity:
		return h.Quantity, true
	}
	return h.Transaction.Field(name)
}

// ValuedHolding is a holding priced at the latest snapshot. The execution
// price of the embedded transaction is cleared.
type ValuedHolding struct {
	Holding
	CurrentPrice    float64 `json:"current_price"`
	Value           float64 `json:"value"`
	LastPriceUpdate Date    `json:"last_price_update"`
}

// Field implements Record. Price resolves to the current price.
func (v ValuedHolding) Field(name string) (any, bool) {
	switch name {
	case ColPrice:
		return v.CurrentPrice, true
	case ColValue:
		return v.Value, true
	case ColLastUpdate:
		return v.LastPriceUpdate, true
	}
	return v.Holding.Field(name)
}

// PortfolioTotals is the KPI panel of the overview page.
type PortfolioTotals struct {
	Invested        float64 `json:"invested"`
	OrderCost       float64 `json:"order_cost"`
	Value           float64 `json:"value"`
	Gain            float64 `json:"gain"`
	GainPercent     float64 `json:"gain_percent"`
	Positions       int     `json:"positions"`
	LastPriceUpdate Date    `json:"last_price_update"`
}

// ValuePoint is the value of the holdings bought up to Date at that day's prices.
type ValuePoint struct {
	Date     Date    `json:"date"`
	Invested float64 `json:"invested"`
	Value    float64 `json:"value"`
}

func (p ValuePoint) EventDate() Date { return p.Date }

// PlanPosition is one fund of the current savings plan.
type PlanPosition struct {
	Name       string  `json:"name"`
	ISIN       string  `json:"isin"`
	TER        float64 `json:"ter"`
	Investment float64 `json:"investment"`
	OrderCost  float64 `json:"order_cost"`
	YearlyCost float64 `json:"yearly_cost"`
}

// SavingsPlan is the running cost of the latest execution, repeated monthly.
// AverageTER is weighted by investment, in percent.
type SavingsPlan struct {
	Monthly    float64        `json:"monthly"`
	YearlyCost float64        `json:"yearly_cost"`
	AverageTER float64        `json:"average_ter"`
	Positions  []PlanPosition `json:"positions"`
}
