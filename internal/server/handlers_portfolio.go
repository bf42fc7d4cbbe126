package server

import (
	"net/http"
	"sort"
	"time"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/models"
	"github.com/bobmcallan/finhub/internal/services/aggregate"
	"github.com/bobmcallan/finhub/internal/services/pipeline"
	"github.com/bobmcallan/finhub/internal/services/valuation"
)

// money is an amount with its display string.
type money struct {
	Amount  float64 `json:"amount"`
	Display string  `json:"display"`
}

func (s *Server) money(amount float64) money {
	return money{Amount: amount, Display: common.FormatMoney(amount, s.config.Valuation.Currency)}
}

type summaryResponse struct {
	LoadedAt        time.Time   `json:"loaded_at"`
	Currency        string      `json:"currency"`
	Invested        money       `json:"invested"`
	OrderCost       money       `json:"order_cost"`
	ExecutionCost   money       `json:"execution_cost"`
	Value           money       `json:"value"`
	Gain            money       `json:"gain"`
	GainPercent     float64     `json:"gain_percent"`
	Positions       int         `json:"positions"`
	LastPriceUpdate models.Date `json:"last_price_update"`
	MonthlySavings  money       `json:"monthly_savings"`
	YearlyCost      money       `json:"yearly_cost"`
	AverageTER      float64     `json:"average_ter"`
	Unmatched       []string    `json:"unmatched,omitempty"`
}

// handlePortfolioSummary serves the KPI panel of the overview page.
func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	d := dashboardFrom(r)
	t := d.Totals
	WriteJSON(w, http.StatusOK, summaryResponse{
		LoadedAt:        d.LoadedAt,
		Currency:        s.config.Valuation.Currency,
		Invested:        s.money(t.Invested),
		OrderCost:       s.money(t.OrderCost),
		ExecutionCost:   s.money(d.ExecutionCost),
		Value:           s.money(t.Value),
		Gain:            s.money(t.Gain),
		GainPercent:     t.GainPercent,
		Positions:       t.Positions,
		LastPriceUpdate: t.LastPriceUpdate,
		MonthlySavings:  s.money(d.Plan.Monthly),
		YearlyCost:      s.money(d.Plan.YearlyCost),
		AverageTER:      d.Plan.AverageTER,
		Unmatched:       d.Unmatched,
	})
}

// handlePortfolioCurrent serves the holdings of the most recent execution,
// its running cost and its breakdowns on invested amount.
func (s *Server) handlePortfolioCurrent(w http.ResponseWriter, r *http.Request) {
	d := dashboardFrom(r)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"holdings":       nonNil(d.Current),
		"execution_cost": s.money(d.ExecutionCost),
		"plan":           d.Plan,
		"breakdowns":     nonNil(d.PlanBreakdowns),
	})
}

// handlePortfolioHoldings serves valued holdings, filtered by ?months= and ?name=.
func (s *Server) handlePortfolioHoldings(w http.ResponseWriter, r *http.Request) {
	months, err := monthsParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	rows := aggregate.FilterByDate(dashboardFrom(r).Valued, months, s.today())
	if name := r.URL.Query().Get("name"); name != "" {
		rows = aggregate.FilterByInstrument(rows, name)
	}
	WriteJSON(w, http.StatusOK, nonNil(rows))
}

// breakdowns returns the stored breakdowns or recomputes them over the
// holdings inside the timeframe.
func (s *Server) breakdowns(d *models.Dashboard, months int) ([]models.Breakdown, error) {
	if months == aggregate.AllTime {
		return d.Breakdowns, nil
	}
	return pipeline.Breakdowns(aggregate.FilterByDate(d.Valued, months, s.today()))
}

func (s *Server) handlePortfolioBreakdowns(w http.ResponseWriter, r *http.Request) {
	months, err := monthsParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	b, err := s.breakdowns(dashboardFrom(r), months)
	if err != nil {
		writeErr(w, errorStatus(err), err)
		return
	}
	WriteJSON(w, http.StatusOK, b)
}

// timeSeries filters the dense grid by timeframe and instrument names.
func (s *Server) timeSeries(d *models.Dashboard, months int, names []string) []models.TimeSeriesPoint {
	points := aggregate.FilterByDate(d.TimeSeries, months, s.today())
	if len(names) == 0 {
		return points
	}
	var out []models.TimeSeriesPoint
	for _, name := range names {
		out = append(out, aggregate.FilterByInstrument(points, name)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (s *Server) handlePortfolioTimeSeries(w http.ResponseWriter, r *http.Request) {
	months, err := monthsParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(s.timeSeries(dashboardFrom(r), months, r.URL.Query()["name"])))
}

func (s *Server) handlePortfolioValueHistory(w http.ResponseWriter, r *http.Request) {
	months, err := monthsParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(aggregate.FilterByDate(dashboardFrom(r).ValueHistory, months, s.today())))
}

func (s *Server) handlePortfolioDividends(w http.ResponseWriter, r *http.Request) {
	months, err := monthsParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	rows := aggregate.FilterByDate(dashboardFrom(r).Dividends, months, s.today())
	total := 0.0
	for _, t := range rows {
		total += t.Investment
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"dividends": nonNil(rows),
		"total":     s.money(valuation.Round(total, 2)),
	})
}

type cryptoResponse struct {
	Listings   []models.CryptoListing  `json:"listings"`
	Positions  []models.CryptoPosition `json:"positions"`
	Total      money                   `json:"total"`
	ByExchange map[string]money        `json:"by_exchange"`
}

// handleCrypto serves the coin listing and the valued coin holdings.
func (s *Server) handleCrypto(w http.ResponseWriter, r *http.Request) {
	d := dashboardFrom(r)
	resp := cryptoResponse{
		Listings:   nonNil(d.Crypto),
		Positions:  nonNil(d.CryptoPositions),
		ByExchange: map[string]money{},
	}
	for exchange, v := range valuation.CryptoTotal(d.CryptoPositions) {
		if exchange == "" {
			resp.Total = s.money(v)
			continue
		}
		resp.ByExchange[exchange] = s.money(v)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// nonNil makes empty results encode as [] instead of null.
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
