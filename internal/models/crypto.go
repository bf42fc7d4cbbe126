package models

// CryptoListing is one row of the scraped market listing.
type CryptoListing struct {
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume24h float64 `json:"volume_24h"`
	Change1h  float64 `json:"change_1h"`
	Change24h float64 `json:"change_24h"`
	Change7d  float64 `json:"change_7d"`
	Currency  string  `json:"currency"`
	Date      Date    `json:"date"`
}

// CryptoHolding is an amount of a coin held on one exchange.
type CryptoHolding struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Amount   float64 `json:"amount"`
}

// CryptoPosition is a holding priced at the latest listing.
type CryptoPosition struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Price    float64 `json:"price"`
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// Crypto holdings file headers.
const (
	CryptoExchange = "Exchange"
	CryptoSymbol   = "Symbol"
	CryptoAmount   = "Amount"
)
