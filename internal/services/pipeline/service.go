// Package pipeline runs every transformation stage once per load and
// publishes the result as an immutable Dashboard.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/interfaces"
	"github.com/bobmcallan/finhub/internal/models"
	"github.com/bobmcallan/finhub/internal/services/aggregate"
	"github.com/bobmcallan/finhub/internal/services/cashflow"
	"github.com/bobmcallan/finhub/internal/services/enrich"
	"github.com/bobmcallan/finhub/internal/services/normalize"
	"github.com/bobmcallan/finhub/internal/services/timeseries"
	"github.com/bobmcallan/finhub/internal/services/valuation"
)

// Compile-time interface check
var _ interfaces.PipelineService = (*Service)(nil)

// BreakdownColumns are the pie dimensions of the overview page, each summed
// over holding value.
var BreakdownColumns = []string{models.ColRegion, models.ColType, models.ColDistribution, models.ColReplication}

// Service implements PipelineService
type Service struct {
	config     *common.Config
	loader     interfaces.SourceLoader
	store      interfaces.StageStore
	normalizer *normalize.Service
	joiner     *enrich.Service
	valuer     *valuation.Service
	fill       timeseries.PriceFill
	ledger     cashflow.LedgerConfig
	logger     *common.Logger
	now        func() time.Time

	mu      sync.Mutex // serializes loads
	current atomic.Pointer[models.Dashboard]
}

// NewService validates the stage settings of config and creates the pipeline.
func NewService(config *common.Config, loader interfaces.SourceLoader, store interfaces.StageStore, logger *common.Logger) (*Service, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	policy, err := enrich.ParsePolicy(config.Joiner.UnmatchedPolicy)
	if err != nil {
		return nil, err
	}
	fill, err := timeseries.ParsePriceFill(config.TimeSeries.PriceFill)
	if err != nil {
		return nil, err
	}
	return &Service{
		config:     config,
		loader:     loader,
		store:      store,
		normalizer: normalize.NewService(normalize.SchemaFromConfig(config.Normalizer), logger),
		joiner:     enrich.NewService(policy, logger),
		valuer:     valuation.NewService(config.Valuation.Currency, logger),
		fill:       fill,
		ledger:     cashflow.LedgerConfigFrom(config.Cashflow),
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Dashboard returns the last published result, nil before the first Load.
func (s *Service) Dashboard() *models.Dashboard {
	return s.current.Load()
}

// Load runs every stage and publishes a new Dashboard. A failing stage
// leaves the previous Dashboard in place.
func (s *Service) Load(ctx context.Context) (*models.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	d, err := s.build(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("check", models.CheckOf(err)).Msg("Pipeline load failed")
		return nil, err
	}
	d.LoadedAt = s.now().UTC()
	s.current.Store(d)

	s.logger.Info().
		Int("holdings", len(d.Holdings)).
		Int("current", len(d.Current)).
		Int("months", len(d.Expenses.Months)).
		Int("coins", len(d.CryptoPositions)).
		Dur("elapsed", s.now().Sub(start)).
		Msg("Dashboard loaded")
	return d, nil
}

func (s *Service) build(ctx context.Context) (*models.Dashboard, error) {
	d := &models.Dashboard{}

	if err := s.portfolio(ctx, d); err != nil {
		return nil, fmt.Errorf("portfolio: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.cashflow(d); err != nil {
		return nil, fmt.Errorf("cashflow: %w", err)
	}
	if err := s.crypto(ctx, d); err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	return d, nil
}

// portfolio runs the normalizer, joiner, valuation, aggregation and time
// series stages over the fund transactions.
func (s *Service) portfolio(ctx context.Context, d *models.Dashboard) error {
	src := s.config.Sources
	raw, err := s.loader.LoadTable(src.Transactions, src.TransactionsSheet)
	if err != nil {
		return err
	}
	buys, dividends, err := s.normalizer.Transactions(raw)
	if err != nil {
		return err
	}
	if s.config.Normalizer.DividendsEnabled {
		d.Dividends = dividends
	}

	master, err := s.store.ReadInstruments(ctx)
	if err != nil {
		return fmt.Errorf("failed to read instruments: %w", err)
	}
	holdings, unmatched, err := s.joiner.Enrich(buys, master)
	if err != nil {
		return err
	}
	d.Holdings = holdings
	d.Unmatched = unmatched
	d.Current = enrich.CurrentPortfolio(holdings)
	d.ExecutionCost = valuation.Round(enrich.TotalExecutionCost(d.Current), 2)
	d.Plan = enrich.SavingsPlanCost(d.Current)
	d.PlanBreakdowns, err = PlanBreakdowns(d.Current)
	if err != nil {
		return err
	}

	history, err := s.store.ReadPriceHistory(ctx)
	if err != nil {
		return fmt.Errorf("failed to read price history: %w", err)
	}
	snap, err := s.valuer.LatestPrices(history)
	if err != nil {
		return err
	}
	d.Valued, err = s.valuer.ValueAtLatestPrice(holdings, snap)
	if err != nil {
		return err
	}
	d.Totals = valuation.Totals(d.Valued)

	d.Breakdowns, err = Breakdowns(d.Valued)
	if err != nil {
		return err
	}

	d.ValueHistory, err = s.valuer.ValueOverTime(holdings, history)
	if err != nil {
		return err
	}
	d.TimeSeries = timeseries.Build(buys, timeseries.Options{PriceFill: s.fill})
	return nil
}

// cashflow cleans the merged ledger and categorizes both streams. A missing
// ledger leaves the cashflow views empty.
func (s *Service) cashflow(d *models.Dashboard) error {
	path := s.config.Sources.Ledger
	if !exists(path) {
		s.logger.Warn().Str("path", path).Msg("No ledger, cashflow views empty")
		return nil
	}
	raw, err := s.loader.LoadTable(path, "")
	if err != nil {
		return err
	}
	entries, err := cashflow.CleanLedger(raw, s.ledger)
	if err != nil {
		return err
	}
	incomes, expenses := cashflow.SplitMonthly(entries)

	d.Expenses, d.Upkeep, err = cashflow.Categorize(expenses, s.config.TaxonomyValue(), s.config.Cashflow.SpecialTag)
	if err != nil {
		return err
	}

	incomeTax := models.Taxonomy{Categories: s.config.Cashflow.IncomeTaxonomy}
	if len(incomeTax.Categories) == 0 {
		incomeTax = models.IdentityTaxonomy(cashflow.Tags(incomes))
	}
	d.Income, _, err = cashflow.Categorize(incomes, incomeTax, "")
	if err != nil {
		return err
	}

	s.logger.Info().
		Int("entries", len(entries)).
		Int("income_groups", len(incomes)).
		Int("expense_groups", len(expenses)).
		Int("months", len(d.Expenses.Months)).
		Msg("Ledger categorized")
	return nil
}

// crypto prices the coin holdings at the stored listing. Both inputs are
// optional.
func (s *Service) crypto(ctx context.Context, d *models.Dashboard) error {
	listings, err := s.store.ReadCrypto(ctx)
	if err != nil {
		return fmt.Errorf("failed to read crypto listing: %w", err)
	}
	d.Crypto = listings

	path := s.config.Sources.CryptoHoldings
	if !exists(path) {
		return nil
	}
	raw, err := s.loader.LoadTable(path, "")
	if err != nil {
		return err
	}
	holdings, err := s.normalizer.CryptoHoldings(raw)
	if err != nil {
		return err
	}
	d.CryptoPositions, _ = s.valuer.ValueCrypto(holdings, listings)
	return nil
}

// Breakdowns sums holding value over every BreakdownColumns dimension.
func Breakdowns(valued []models.ValuedHolding) ([]models.Breakdown, error) {
	return breakdownsOn(aggregate.Records(valued), models.ColValue)
}

// PlanBreakdowns sums the invested amount of the current savings plan over
// every BreakdownColumns dimension.
func PlanBreakdowns(current []models.Holding) ([]models.Breakdown, error) {
	return breakdownsOn(aggregate.Records(current), models.ColInvestment)
}

func breakdownsOn(rows []models.Record, value string) ([]models.Breakdown, error) {
	values := make([]string, len(BreakdownColumns))
	aggs := make([]string, len(BreakdownColumns))
	for i := range BreakdownColumns {
		values[i] = value
		aggs[i] = models.AggSum
	}
	return aggregate.PercentageBreakdown(rows, BreakdownColumns, values, aggs)
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
