package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/models"
	"github.com/bobmcallan/finhub/internal/storage/csvstore"
	"github.com/bobmcallan/finhub/internal/storage/sources"
)

var exportHeader = []string{"Index", "Datum", "Kurs", "Betrag", "Kosten", "Anbieter", "Name", "ISIN", "Art", "Kommentar"}

type fixture struct {
	dir    string
	config *common.Config
	store  *csvstore.Store
	svc    *Service
}

func writeCSV(t *testing.T, path string, header []string, rows ...[]string) {
	t.Helper()
	require.NoError(t, sources.WriteCSVFile(path, ';', header, rows))
}

func ledgerRow(date, category, tags, expense, income, main string) []string {
	return []string{date, "Cash", category, tags, expense, income, "EUR", main, "EUR", ""}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()

	config := common.NewDefaultConfig()
	config.Sources.Transactions = filepath.Join(dir, "transactions.csv")
	config.Sources.Ledger = filepath.Join(dir, "ledger.csv")
	config.Sources.CryptoHoldings = filepath.Join(dir, "crypto_holdings.csv")
	config.Storage.Path = filepath.Join(dir, "stage")
	config.TimeSeries.PriceFill = "forward"

	writeCSV(t, config.Sources.Transactions, exportHeader,
		[]string{"1", "04.01.2021", "10", "-100", "-1", "ING", "World", "W1", "ETF Sparplan", "monatlich"},
		[]string{"1", "04.01.2021", "20", "-100", "-1", "ING", "EM", "E1", "ETF Sparplan", "monatlich"},
		[]string{"", "20.01.2021", "", "2,5", "", "ING", "World", "W1", "ETF Sparplan", "Dividende"},
		[]string{"2", "01.02.2021", "12,5", "-100", "-1", "ING", "World", "W1", "ETF Sparplan", "monatlich"},
		[]string{"2", "01.02.2021", "50", "-100", "-1", "ING", "Gold", "G1", "ETF Sparplan", "monatlich"},
	)
	writeCSV(t, config.Sources.Ledger, models.LedgerColumns,
		ledgerRow("01/05/21", "Wohnen", "rent", "800", "0", "800"),
		ledgerRow("01/09/21", "Essen", "groceries", "50", "0", "50"),
		ledgerRow("01/20/21", "Haus", "building upkeep", "30", "0", "30"),
		ledgerRow("01/28/21", "Gehalt", "salary", "0", "2000", "2000"),
		ledgerRow("02/10/21", "Essen", "groceries", "70", "0", "70"),
		ledgerRow("02/28/21", "Gehalt", "salary", "0", "2000", "2000"),
	)
	writeCSV(t, config.Sources.CryptoHoldings, []string{"Exchange", "Symbol", "Amount"},
		[]string{"Kraken", "BTC", "0,01"},
	)

	store, err := csvstore.NewStore(common.NewSilentLogger(), config.Storage.Path, ";")
	require.NoError(t, err)
	require.NoError(t, store.WriteInstruments(ctx, []models.Instrument{
		{ISIN: "W1", Name: "World", Type: "Stocks", Region: "World", Replication: models.Physical, Distribution: models.Accumulating, TER: 0.2},
		{ISIN: "E1", Name: "EM", Type: "Stocks", Region: "Emerging", Replication: models.Synthetic, Distribution: models.Distributing},
	}))
	require.NoError(t, store.AppendPriceBatch(ctx, models.PriceBatch{ID: "b1", Observations: []models.PriceObservation{
		{ISIN: "W1", Price: 15, Currency: "EUR", Date: models.NewDate(2021, time.March, 1)},
		{ISIN: "E1", Price: 25, Currency: "EUR", Date: models.NewDate(2021, time.March, 1)},
	}}))
	require.NoError(t, store.WriteCrypto(ctx, []models.CryptoListing{
		{Name: "Bitcoin", Symbol: "BTC", Price: 40000, Currency: "EUR", Date: models.NewDate(2021, time.March, 1)},
	}))

	svc, err := NewService(config, sources.NewLoader(";", nil), store, nil)
	require.NoError(t, err)
	return &fixture{dir: dir, config: config, store: store, svc: svc}
}

func TestLoad(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.svc.Dashboard())

	d, err := f.svc.Load(context.Background())
	require.NoError(t, err)
	require.Same(t, d, f.svc.Dashboard())

	// G1 has no master record and is dropped.
	assert.Equal(t, []string{"G1"}, d.Unmatched)
	require.Len(t, d.Holdings, 3)
	require.Len(t, d.Current, 1)
	assert.Equal(t, "W1", d.Current[0].ISIN)
	assert.Equal(t, 100.0, d.ExecutionCost)
	require.Len(t, d.Dividends, 1)

	// W1: 10 + 8 units at 15, E1: 5 units at 25.
	assert.Equal(t, 300.0, d.Totals.Invested)
	assert.Equal(t, 270.0+125.0, d.Totals.Value)
	assert.Equal(t, 2, d.Totals.Positions)

	region, ok := d.Breakdown(models.ColRegion)
	require.True(t, ok)
	require.Len(t, region.Rows, 2)
	assert.Equal(t, "Emerging", region.Rows[0].Group)
	assert.Equal(t, 125.0, region.Rows[0].Sum)
	assert.Equal(t, 31.6, region.Rows[0].Percentage)
	assert.Len(t, d.Breakdowns, len(BreakdownColumns))

	// The plan is the February execution of W1 only.
	assert.Equal(t, 100.0, d.Plan.Monthly)
	assert.Equal(t, 2.4, d.Plan.YearlyCost)
	assert.Equal(t, 0.2, d.Plan.AverageTER)
	require.Len(t, d.PlanBreakdowns, len(BreakdownColumns))
	planRegion := d.PlanBreakdowns[0]
	assert.Equal(t, models.ColRegion, planRegion.GroupColumn)
	assert.Equal(t, models.ColInvestment, planRegion.ValueColumn)
	require.Len(t, planRegion.Rows, 1)
	assert.Equal(t, "World", planRegion.Rows[0].Group)
	assert.Equal(t, 100.0, planRegion.Rows[0].Percentage)

	require.Len(t, d.ValueHistory, 1)
	assert.Equal(t, 395.0, d.ValueHistory[0].Value)
	assert.NotEmpty(t, d.TimeSeries)

	require.Len(t, d.Expenses.Months, 2)
	jan := d.Expenses.Months[0]
	assert.Equal(t, -800.0, jan.Amounts["home"])
	assert.Equal(t, -50.0, jan.Amounts["food_healthy"])
	require.Len(t, d.Upkeep, 2)
	assert.Equal(t, -30.0, d.Upkeep[0].Amount)
	assert.Equal(t, 0.0, d.Upkeep[1].Amount)

	assert.Equal(t, []string{"salary"}, d.Income.Categories)
	require.Len(t, d.Income.Months, 2)
	assert.Equal(t, 2000.0, d.Income.Months[1].Amounts["salary"])

	require.Len(t, d.CryptoPositions, 1)
	assert.Equal(t, 400.0, d.CryptoPositions[0].Value)
	assert.False(t, d.LoadedAt.IsZero())
}

func TestLoad_FailureKeepsPreviousDashboard(t *testing.T) {
	f := newFixture(t)
	first, err := f.svc.Load(context.Background())
	require.NoError(t, err)

	writeCSV(t, f.config.Sources.Ledger, models.LedgerColumns,
		ledgerRow("01/05/21", "Astro", "astrology", "10", "0", "10"),
	)
	_, err = f.svc.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrReferential))
	assert.Same(t, first, f.svc.Dashboard())
}

func TestLoad_OptionalSourcesMissing(t *testing.T) {
	f := newFixture(t)
	f.config.Sources.Ledger = filepath.Join(f.dir, "absent.csv")
	f.config.Sources.CryptoHoldings = ""

	d, err := f.svc.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, d.Expenses.Months)
	assert.Empty(t, d.CryptoPositions)
	assert.Len(t, d.Crypto, 1)
}

func TestLoad_Concurrent(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Load(context.Background())
			assert.NoError(t, err)
			assert.NotNil(t, f.svc.Dashboard())
		}()
	}
	wg.Wait()
}

func TestNewService_RejectsUnknownFill(t *testing.T) {
	config := common.NewDefaultConfig()
	config.TimeSeries.PriceFill = "backward"
	_, err := NewService(config, nil, nil, nil)
	require.Error(t, err)
}
