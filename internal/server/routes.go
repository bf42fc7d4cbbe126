package server

import (
	"github.com/go-chi/chi/v5"
)

// routes builds the router. Middleware runs in registration order.
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware(s.logger))
	r.Use(corsMiddleware)
	r.Use(correlationIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	// System
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/version", s.handleVersion)
	r.Post("/api/reload", s.handleReload)

	r.Group(func(r chi.Router) {
		r.Use(s.requireDashboard)
		r.Use(s.cacheMiddleware)

		r.Route("/api/portfolio", func(r chi.Router) {
			r.Get("/summary", s.handlePortfolioSummary)
			r.Get("/current", s.handlePortfolioCurrent)
			r.Get("/holdings", s.handlePortfolioHoldings)
			r.Get("/breakdowns", s.handlePortfolioBreakdowns)
			r.Get("/timeseries", s.handlePortfolioTimeSeries)
			r.Get("/value-history", s.handlePortfolioValueHistory)
			r.Get("/dividends", s.handlePortfolioDividends)
		})

		r.Route("/api/cashflow", func(r chi.Router) {
			r.Get("/upkeep", s.handleCashflowUpkeep)
			r.Get("/{kind}", s.handleCashflowTable)
			r.Get("/{kind}/categories", s.handleCashflowCategories)
			r.Get("/{kind}/average", s.handleCashflowAverage)
			r.Get("/{kind}/month/{month}", s.handleCashflowMonth)
		})

		r.Get("/api/crypto", s.handleCrypto)

		r.Route("/charts", func(r chi.Router) {
			r.Get("/pie/{dimension}.png", s.handleChartPie)
			r.Get("/timeseries.png", s.handleChartTimeSeries)
			r.Get("/cashflow/{kind}.png", s.handleChartCashflow)
		})
	})

	return r
}
