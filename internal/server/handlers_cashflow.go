package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bobmcallan/finhub/internal/models"
	"github.com/bobmcallan/finhub/internal/services/aggregate"
	"github.com/bobmcallan/finhub/internal/services/cashflow"
)

// kindParam resolves {kind}. Unknown kinds answer 404.
func kindParam(w http.ResponseWriter, r *http.Request) (models.CashflowKind, bool) {
	switch k := models.CashflowKind(chi.URLParam(r, "kind")); k {
	case models.Income, models.Expenses:
		return k, true
	}
	WriteError(w, http.StatusNotFound, "Unknown cashflow kind, want income or expenses")
	return "", false
}

// cashflowTable returns the categorized table of kind restricted to ?months=.
func (s *Server) cashflowTable(w http.ResponseWriter, r *http.Request) (models.CategorizedTable, bool) {
	kind, ok := kindParam(w, r)
	if !ok {
		return models.CategorizedTable{}, false
	}
	months, err := monthsParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return models.CategorizedTable{}, false
	}
	table := dashboardFrom(r).Cashflow(kind)
	table.Months = aggregate.FilterByDate(table.Months, months, s.today())
	return table, true
}

// handleCashflowTable serves the month by category table, or a single
// category series when ?category= is given.
func (s *Server) handleCashflowTable(w http.ResponseWriter, r *http.Request) {
	table, ok := s.cashflowTable(w, r)
	if !ok {
		return
	}
	category := r.URL.Query().Get("category")
	if category == "" {
		table.Months = nonNil(table.Months)
		WriteJSON(w, http.StatusOK, table)
		return
	}
	series, err := cashflow.CategorySeries(table, category)
	if err != nil {
		writeErr(w, errorStatus(err), err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"series":   nonNil(series),
	})
}

func (s *Server) handleCashflowCategories(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, cashflow.Categories(dashboardFrom(r).Cashflow(kind)))
}

type averageResponse struct {
	Category string `json:"category"`
	Months   int    `json:"months"`
	Average  money  `json:"average"`
}

// handleCashflowAverage serves the mean monthly amount of ?category=
// (Overall by default) over the timeframe.
func (s *Server) handleCashflowAverage(w http.ResponseWriter, r *http.Request) {
	table, ok := s.cashflowTable(w, r)
	if !ok {
		return
	}
	category := r.URL.Query().Get("category")
	if category == "" {
		category = cashflow.Overall
	}
	avg, err := cashflow.AverageMonthly(table, category)
	if err != nil {
		writeErr(w, errorStatus(err), err)
		return
	}
	WriteJSON(w, http.StatusOK, averageResponse{
		Category: category,
		Months:   len(table.Months),
		Average:  s.money(avg),
	})
}

// handleCashflowMonth serves the non-zero categories of one month.
func (s *Server) handleCashflowMonth(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	month, err := models.ParseMonthKey(chi.URLParam(r, "month"))
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, "Invalid month, want YYYY-MM", "month_param")
		return
	}
	rows, err := cashflow.MonthBreakdown(dashboardFrom(r).Cashflow(kind), month)
	if err != nil {
		writeErr(w, errorStatus(err), err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"month":      month.MonthKey(),
		"categories": nonNil(rows),
	})
}

func (s *Server) handleCashflowUpkeep(w http.ResponseWriter, r *http.Request) {
	months, err := monthsParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(aggregate.FilterByDate(dashboardFrom(r).Upkeep, months, s.today())))
}
