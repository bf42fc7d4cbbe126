package models

// TransactionKind discriminates the two sub-streams of the transaction log.
type TransactionKind string

const (
	KindRecurringBuy TransactionKind = "recurring_buy"
	KindDividend     TransactionKind = "dividend"
)

// Transaction is one normalized buy or dividend event. Investment and
// OrderCost of recurring buys are positive magnitudes.
type Transaction struct {
	Index      int             `json:"index"`
	Date       Date            `json:"date"`
	Price      float64         `json:"price,omitempty"`
	Investment float64         `json:"investment"`
	OrderCost  float64         `json:"order_cost"`
	Provider   string          `json:"provider"`
	Name       string          `json:"name"`
	ISIN       string          `json:"isin"`
	Kind       TransactionKind `json:"kind"`
	Row        int             `json:"-"` // 1-based row of the source export
}

// Quantity returns units bought, zero when the price is unknown.
func (t Transaction) Quantity() float64 {
	if t.Price == 0 {
		return 0
	}
	return t.Investment / t.Price
}

func (t Transaction) EventDate() Date        { return t.Date }
func (t Transaction) InstrumentName() string { return t.Name }

// Field implements Record.
func (t Transaction) Field(name string) (any, bool) {
	switch name {
	case ColIndex:
		return t.Index, true
	case ColDate:
		return t.Date, true
	case ColPrice:
		return t.Price, true
	case ColInvestment:
		return t.Investment, true
	case ColOrderCost:
		return t.OrderCost, true
	case ColProvider:
		return t.Provider, true
	case ColName:
		return t.Name, true
	case ColISIN:
		return t.ISIN, true
	case ColQuantity:
		return t.Quantity(), true
	}
	return nil, false
}
