package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bobmcallan/finhub/internal/models"
	"github.com/bobmcallan/finhub/internal/services/cashflow"
	"github.com/bobmcallan/finhub/internal/services/chart"
	"github.com/bobmcallan/finhub/internal/services/pipeline"
	"github.com/bobmcallan/finhub/internal/services/timeseries"
)

// handleChartPie renders one breakdown dimension (region, type,
// distribution, replication) as a pie.
func (s *Server) handleChartPie(w http.ResponseWriter, r *http.Request) {
	dimension := chi.URLParam(r, "dimension")
	column := ""
	for _, c := range pipeline.BreakdownColumns {
		if strings.EqualFold(c, dimension) {
			column = c
		}
	}
	if column == "" {
		WriteError(w, http.StatusNotFound, "Unknown breakdown dimension "+dimension)
		return
	}
	months, err := monthsParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	all, err := s.breakdowns(dashboardFrom(r), months)
	if err != nil {
		writeErr(w, errorStatus(err), err)
		return
	}
	// An empty timeframe yields no rows for the dimension.
	b := models.Breakdown{GroupColumn: column, ValueColumn: models.ColValue}
	for _, candidate := range all {
		if candidate.GroupColumn == column {
			b = candidate
		}
	}
	png, err := chart.RenderBreakdown(b)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writePNG(w, png)
}

// handleChartTimeSeries renders the cumulative value of ?name= instruments,
// the overall portfolio by default. Names must exist in the full series.
func (s *Server) handleChartTimeSeries(w http.ResponseWriter, r *http.Request) {
	months, err := monthsParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	d := dashboardFrom(r)
	names := r.URL.Query()["name"]
	if len(names) == 0 {
		names = []string{models.OverallPortfolio}
	}
	known := make(map[string]bool)
	for _, n := range timeseries.Names(d.TimeSeries) {
		known[n] = true
	}
	for _, n := range names {
		if !known[n] && len(d.TimeSeries) > 0 {
			WriteError(w, http.StatusNotFound, "Unknown instrument "+n)
			return
		}
	}
	png, err := chart.RenderTimeSeries(s.timeSeries(d, months, names), names, s.config.Valuation.Currency)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writePNG(w, png)
}

// handleChartCashflow renders the stacked category bars, or one category's
// bars when ?category= is given.
func (s *Server) handleChartCashflow(w http.ResponseWriter, r *http.Request) {
	table, ok := s.cashflowTable(w, r)
	if !ok {
		return
	}
	title := "Expenses"
	if models.CashflowKind(chi.URLParam(r, "kind")) == models.Income {
		title = "Income"
	}

	var png []byte
	var err error
	if category := r.URL.Query().Get("category"); category != "" {
		series, serr := cashflow.CategorySeries(table, category)
		if serr != nil {
			writeErr(w, errorStatus(serr), serr)
			return
		}
		png, err = chart.RenderMonthly(title+": "+category, series, s.config.Valuation.Currency)
	} else {
		png, err = chart.RenderCategorized(title, table)
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writePNG(w, png)
}
