// Package valuation prices holdings against the price feed.
package valuation

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/models"
)

// AcceptedCurrency is the only feed currency the engine prices in.
const AcceptedCurrency = "EUR"

// Round rounds v to places decimals, half away from zero, using decimal
// arithmetic so 2.675 becomes 2.68.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Service values holdings
type Service struct {
	currency string
	logger   *common.Logger
}

// NewService creates a valuation engine for the given feed currency.
func NewService(currency string, logger *common.Logger) *Service {
	if currency == "" {
		currency = AcceptedCurrency
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{currency: currency, logger: logger}
}

// checkCurrency asserts the feed uses a single currency and that it is the
// accepted one.
func (s *Service) checkCurrency(obs []models.PriceObservation) error {
	seen := make(map[string]bool)
	var currencies []string
	for _, o := range obs {
		if !seen[o.Currency] {
			seen[o.Currency] = true
			currencies = append(currencies, o.Currency)
		}
	}
	if len(currencies) > 1 {
		sort.Strings(currencies)
		return models.ConsistencyError("single_currency", models.ColCurrency,
			"price feed mixes currencies", currencies...)
	}
	if len(currencies) == 1 && currencies[0] != s.currency {
		return models.ConsistencyError("accepted_currency", models.ColCurrency,
			fmt.Sprintf("want %s", s.currency), currencies[0])
	}
	return nil
}

// LatestPrices reduces the feed to the newest observation per ISIN.
// UpdatedAt is the newest observation date in the feed.
func (s *Service) LatestPrices(obs []models.PriceObservation) (models.LatestSnapshot, error) {
	snap := models.LatestSnapshot{Prices: make(map[string]models.PriceObservation), Currency: s.currency}
	if err := s.checkCurrency(obs); err != nil {
		return snap, err
	}
	for _, o := range obs {
		cur, ok := snap.Prices[o.ISIN]
		if !ok || o.Date.After(cur.Date) {
			snap.Prices[o.ISIN] = o
		}
		if o.Date.After(snap.UpdatedAt) {
			snap.UpdatedAt = o.Date
		}
	}
	return snap, nil
}

// ValueAtLatestPrice prices every holding at the snapshot. The execution
// price is discarded; a held ISIN without a price is fatal.
func (s *Service) ValueAtLatestPrice(holdings []models.Holding, snap models.LatestSnapshot) ([]models.ValuedHolding, error) {
	var missing []string
	seen := make(map[string]bool)
	out := make([]models.ValuedHolding, 0, len(holdings))
	for _, h := range holdings {
		p, ok := snap.Prices[h.ISIN]
		if !ok {
			if !seen[h.ISIN] {
				seen[h.ISIN] = true
				missing = append(missing, h.ISIN)
			}
			continue
		}
		qty := h.Transaction.Quantity()
		v := models.ValuedHolding{
			Holding:         h,
			CurrentPrice:    p.Price,
			Value:           Round(qty*p.Price, 2),
			LastPriceUpdate: p.Date,
		}
		v.Holding.Quantity = qty
		v.Holding.Price = 0
		out = append(out, v)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, models.ReferentialError("price_available", models.ColISIN,
			"no price for held instrument", missing...)
	}

	s.logger.Debug().
		Int("holdings", len(out)).
		Str("price_date", snap.UpdatedAt.String()).
		Msg("Holdings valued")
	return out, nil
}

// Totals sums valued holdings into the KPI panel figures.
func Totals(valued []models.ValuedHolding) models.PortfolioTotals {
	var t models.PortfolioTotals
	isins := make(map[string]bool)
	invested, cost, value := decimal.Zero, decimal.Zero, decimal.Zero
	for _, v := range valued {
		invested = invested.Add(decimal.NewFromFloat(v.Investment))
		cost = cost.Add(decimal.NewFromFloat(v.OrderCost))
		value = value.Add(decimal.NewFromFloat(v.Value))
		isins[v.ISIN] = true
		if v.LastPriceUpdate.After(t.LastPriceUpdate) {
			t.LastPriceUpdate = v.LastPriceUpdate
		}
	}
	t.Invested = invested.Round(2).InexactFloat64()
	t.OrderCost = cost.Round(2).InexactFloat64()
	t.Value = value.Round(2).InexactFloat64()
	t.Gain = value.Sub(invested).Round(2).InexactFloat64()
	if !invested.IsZero() {
		t.GainPercent = value.Sub(invested).Div(invested).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}
	t.Positions = len(isins)
	return t
}

// ValueOverTime values, at every date of the price history, the holdings
// bought on or before that date at that date's price. Instruments without a
// quote on a date contribute their last known price.
func (s *Service) ValueOverTime(holdings []models.Holding, history []models.PriceObservation) ([]models.ValuePoint, error) {
	if err := s.checkCurrency(history); err != nil {
		return nil, err
	}
	if len(holdings) == 0 || len(history) == 0 {
		return nil, nil
	}

	byDate := make(map[models.Date]map[string]float64)
	var dates []models.Date
	for _, o := range history {
		m, ok := byDate[o.Date]
		if !ok {
			m = make(map[string]float64)
			byDate[o.Date] = m
			dates = append(dates, o.Date)
		}
		m[o.ISIN] = o.Price
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	sorted := append([]models.Holding(nil), holdings...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	units := make(map[string]float64)
	var isins []string
	last := make(map[string]float64)
	invested := 0.0
	next := 0
	out := make([]models.ValuePoint, 0, len(dates))
	for _, d := range dates {
		for next < len(sorted) && !sorted[next].Date.After(d) {
			h := sorted[next]
			if _, ok := units[h.ISIN]; !ok {
				isins = append(isins, h.ISIN)
				sort.Strings(isins)
			}
			units[h.ISIN] += h.Transaction.Quantity()
			invested += h.Investment
			next++
		}
		for isin, p := range byDate[d] {
			last[isin] = p
		}
		value := decimal.Zero
		for _, isin := range isins {
			value = value.Add(decimal.NewFromFloat(units[isin]).Mul(decimal.NewFromFloat(last[isin])))
		}
		out = append(out, models.ValuePoint{Date: d, Invested: Round(invested, 2), Value: value.Round(2).InexactFloat64()})
	}
	return out, nil
}

// ValueCrypto prices coin holdings at the latest listing, sorted by value
// descending. Holdings whose symbol is not listed are valued at zero and
// returned as unlisted.
func (s *Service) ValueCrypto(holdings []models.CryptoHolding, listings []models.CryptoListing) ([]models.CryptoPosition, []string) {
	bySymbol := make(map[string]models.CryptoListing, len(listings))
	for _, l := range listings {
		if _, ok := bySymbol[l.Symbol]; !ok {
			bySymbol[l.Symbol] = l
		}
	}

	var unlisted []string
	seen := make(map[string]bool)
	out := make([]models.CryptoPosition, 0, len(holdings))
	for _, h := range holdings {
		p := models.CryptoPosition{Exchange: h.Exchange, Symbol: h.Symbol, Amount: h.Amount, Currency: s.currency}
		if l, ok := bySymbol[h.Symbol]; ok {
			p.Name = l.Name
			p.Price = l.Price
			p.Value = decimal.NewFromFloat(h.Amount).Mul(decimal.NewFromFloat(l.Price)).Round(2).InexactFloat64()
		} else if !seen[h.Symbol] {
			seen[h.Symbol] = true
			unlisted = append(unlisted, h.Symbol)
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	sort.Strings(unlisted)
	if len(unlisted) > 0 {
		s.logger.Warn().Strs("symbols", unlisted).Msg("Coins without listing valued at zero")
	}
	return out, unlisted
}

// CryptoTotal sums position values per exchange. The key "" holds the
// overall total.
func CryptoTotal(positions []models.CryptoPosition) map[string]float64 {
	sums := make(map[string]decimal.Decimal)
	for _, p := range positions {
		v := decimal.NewFromFloat(p.Value)
		sums[p.Exchange] = sums[p.Exchange].Add(v)
		sums[""] = sums[""].Add(v)
	}
	out := make(map[string]float64, len(sums))
	for k, v := range sums {
		out[k] = v.Round(2).InexactFloat64()
	}
	return out
}
