// Package datahub runs the batch jobs that scrape fund and coin data and
// refresh the stage files the dashboard pipeline reads.
package datahub

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/interfaces"
	"github.com/bobmcallan/finhub/internal/models"
	"github.com/bobmcallan/finhub/internal/services/cashflow"
	"github.com/bobmcallan/finhub/internal/services/enrich"
	"github.com/bobmcallan/finhub/internal/services/normalize"
)

// Compile-time interface check
var _ interfaces.DatahubService = (*Service)(nil)

// TargetCurrency is the currency crypto listings are stored in.
const TargetCurrency = "EUR"

// Service implements DatahubService
type Service struct {
	sources    common.SourcesConfig
	pages      int
	loader     interfaces.SourceLoader
	store      interfaces.StageStore
	funds      interfaces.FundDataClient
	crypto     interfaces.CryptoClient
	fx         interfaces.FXClient
	normalizer *normalize.Service
	logger     *common.Logger
	now        func() time.Time
	newID      func() string
}

// NewService creates the batch update service. crypto and fx may be nil when
// only the fund jobs run.
func NewService(
	config *common.Config,
	loader interfaces.SourceLoader,
	store interfaces.StageStore,
	funds interfaces.FundDataClient,
	crypto interfaces.CryptoClient,
	fx interfaces.FXClient,
	logger *common.Logger,
) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		sources:    config.Sources,
		pages:      config.Clients.CoinMarketCap.Pages,
		loader:     loader,
		store:      store,
		funds:      funds,
		crypto:     crypto,
		fx:         fx,
		normalizer: normalize.NewService(normalize.SchemaFromConfig(config.Normalizer), logger),
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func (s *Service) regionMap() ([]models.RegionMapping, error) {
	raw, err := s.loader.LoadTable(s.sources.RegionMap, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load region map: %w", err)
	}
	return s.normalizer.RegionMappings(raw)
}

// heldISINs returns the distinct ISINs of the recurring buys, in first-seen order.
func (s *Service) heldISINs() ([]string, map[string]string, error) {
	raw, err := s.loader.LoadTable(s.sources.Transactions, s.sources.TransactionsSheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	buys, _, err := s.normalizer.Transactions(raw)
	if err != nil {
		return nil, nil, err
	}
	names := make(map[string]string)
	var isins []string
	for _, b := range buys {
		if _, ok := names[b.ISIN]; ok {
			continue
		}
		names[b.ISIN] = b.Name
		isins = append(isins, b.ISIN)
	}
	return isins, names, nil
}

// UpdateMaster scrapes the profile of every fund in the region map and
// replaces the profile and instrument stages.
func (s *Service) UpdateMaster(ctx context.Context) ([]models.Instrument, error) {
	regions, err := s.regionMap()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(regions))
	var profiles []models.FundProfile
	for _, r := range regions {
		if r.ISIN == "" || seen[r.ISIN] {
			continue
		}
		seen[r.ISIN] = true
		p, err := s.funds.GetProfile(ctx, r.ISIN)
		if err != nil {
			return nil, fmt.Errorf("master data for %s: %w", r.ISIN, err)
		}
		profiles = append(profiles, *p)
	}
	if len(profiles) != len(seen) {
		return nil, models.ConsistencyError("master_complete", models.ColISIN,
			fmt.Sprintf("scraped %d of %d funds", len(profiles), len(seen)))
	}

	instruments := enrich.JoinRegionMap(profiles, regions)
	if err := s.store.WriteProfiles(ctx, profiles); err != nil {
		return nil, fmt.Errorf("failed to write profiles: %w", err)
	}
	if err := s.store.WriteInstruments(ctx, instruments); err != nil {
		return nil, fmt.Errorf("failed to write instruments: %w", err)
	}

	s.logger.Info().Int("instruments", len(instruments)).Str("store", s.store.Path()).Msg("Master data updated")
	return instruments, nil
}

// UpdatePrices scrapes one price per held fund and appends them to the
// history as one batch. A batch for a day already in the history is
// rejected with models.ErrOverlap and nothing is written.
func (s *Service) UpdatePrices(ctx context.Context) (*models.PriceBatch, error) {
	isins, names, err := s.heldISINs()
	if err != nil {
		return nil, err
	}

	batch := models.PriceBatch{ID: s.newID(), CreatedAt: s.now().UTC()}
	for _, isin := range isins {
		obs, err := s.funds.GetPrice(ctx, isin)
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", isin, err)
		}
		obs.Name = names[isin]
		obs.BatchID = batch.ID
		batch.Observations = append(batch.Observations, *obs)
	}
	if len(batch.Observations) != len(isins) {
		return nil, models.ConsistencyError("prices_complete", models.ColISIN,
			fmt.Sprintf("scraped %d of %d prices", len(batch.Observations), len(isins)))
	}

	if err := s.store.AppendPriceBatch(ctx, batch); err != nil {
		s.logger.Warn().Err(err).Str("batch", batch.ID).Msg("Price batch not appended")
		return nil, err
	}

	s.logger.Info().Str("batch", batch.ID).Int("prices", len(batch.Observations)).Msg("Price history extended")
	return &batch, nil
}

// UpdateCrypto scrapes the coin listing, converts price and volume from USD
// to EUR and replaces the crypto stage.
func (s *Service) UpdateCrypto(ctx context.Context) ([]models.CryptoListing, error) {
	if s.crypto == nil || s.fx == nil {
		return nil, fmt.Errorf("crypto update requires the listing and FX clients")
	}
	listings, err := s.crypto.GetListings(ctx, s.pages)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape listings: %w", err)
	}

	rates := make(map[string]float64)
	today := models.DateOf(s.now())
	for i := range listings {
		l := &listings[i]
		if l.Currency == TargetCurrency {
			continue
		}
		r, ok := rates[l.Currency]
		if !ok {
			r, err = s.fx.GetRate(ctx, l.Currency, TargetCurrency, today)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch %s/%s rate: %w", l.Currency, TargetCurrency, err)
			}
			rates[l.Currency] = r
		}
		l.Price *= r
		l.Volume24h *= r
		l.Currency = TargetCurrency
	}

	if err := s.store.WriteCrypto(ctx, listings); err != nil {
		return nil, fmt.Errorf("failed to write crypto listings: %w", err)
	}
	s.logger.Info().Int("coins", len(listings)).Msg("Crypto listings updated")
	return listings, nil
}

// MergeLedger concatenates the monthly ledger exports and replaces the
// merged ledger source. It returns the number of rows written.
func (s *Service) MergeLedger(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	files, err := s.loader.LoadDir(s.sources.LedgerDir)
	if err != nil {
		return 0, fmt.Errorf("failed to load ledger exports: %w", err)
	}
	if len(files) == 0 {
		return 0, models.SchemaError("ledger_exports", "", "no ledger exports found", s.sources.LedgerDir)
	}
	merged := cashflow.MergeExports(files)
	if missing := merged.MissingColumns(models.LedgerColumns...); len(missing) > 0 {
		return 0, models.SchemaError("ledger_columns", "", "merged ledger lacks columns", missing...)
	}
	if err := s.loader.WriteTable(s.sources.Ledger, merged); err != nil {
		return 0, fmt.Errorf("failed to write merged ledger: %w", err)
	}
	s.logger.Info().Int("files", len(files)).Int("rows", len(merged.Rows)).Str("path", s.sources.Ledger).Msg("Ledger merged")
	return len(merged.Rows), nil
}

// Job names accepted by Run.
const (
	JobMaster = "master"
	JobPrices = "prices"
	JobCrypto = "crypto"
	JobLedger = "ledger"
)

// AllJobs is the order the full refresh runs in.
var AllJobs = []string{JobMaster, JobPrices, JobCrypto, JobLedger}

// Run executes the named jobs in order and stops at the first failure.
func (s *Service) Run(ctx context.Context, jobs ...string) error {
	for _, job := range jobs {
		start := s.now()
		var err error
		switch job {
		case JobMaster:
			_, err = s.UpdateMaster(ctx)
		case JobPrices:
			_, err = s.UpdatePrices(ctx)
		case JobCrypto:
			_, err = s.UpdateCrypto(ctx)
		case JobLedger:
			_, err = s.MergeLedger(ctx)
		default:
			err = fmt.Errorf("unknown job %q", job)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", job, err)
		}
		s.logger.Debug().Str("job", job).Dur("elapsed", s.now().Sub(start)).Msg("Job finished")
	}
	return nil
}
