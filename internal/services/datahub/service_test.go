package datahub

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/models"
	"github.com/bobmcallan/finhub/internal/storage/csvstore"
)

// memLoader serves tables from memory and records written tables.
type memLoader struct {
	tables  map[string]models.RawTable
	dirs    map[string][]models.RawTable
	written map[string]models.RawTable
}

func newMemLoader() *memLoader {
	return &memLoader{
		tables:  map[string]models.RawTable{},
		dirs:    map[string][]models.RawTable{},
		written: map[string]models.RawTable{},
	}
}

func (m *memLoader) LoadTable(path, _ string) (models.RawTable, error) {
	t, ok := m.tables[path]
	if !ok {
		return models.RawTable{}, fmt.Errorf("no such file %s", path)
	}
	return t, nil
}

func (m *memLoader) LoadDir(dir string) ([]models.RawTable, error) { return m.dirs[dir], nil }

func (m *memLoader) WriteTable(path string, table models.RawTable) error {
	m.written[path] = table
	return nil
}

type fakeFunds struct {
	prices   map[string]float64
	profiles map[string]models.FundProfile
	day      models.Date
	calls    int
}

func (f *fakeFunds) GetPrice(_ context.Context, isin string) (*models.PriceObservation, error) {
	f.calls++
	p, ok := f.prices[isin]
	if !ok {
		return nil, models.NewDataError(models.ErrExternal, "profile_page", "", "not found", isin)
	}
	return &models.PriceObservation{ISIN: isin, Price: p, Currency: "EUR", Date: f.day}, nil
}

func (f *fakeFunds) GetProfile(_ context.Context, isin string) (*models.FundProfile, error) {
	f.calls++
	p, ok := f.profiles[isin]
	if !ok {
		return nil, models.NewDataError(models.ErrExternal, "profile_page", "", "not found", isin)
	}
	p.ISIN = isin
	return &p, nil
}

type fakeCrypto struct{ listings []models.CryptoListing }

func (f *fakeCrypto) GetListings(_ context.Context, _ int) ([]models.CryptoListing, error) {
	return append([]models.CryptoListing(nil), f.listings...), nil
}

type fakeFX struct {
	rate  float64
	calls int
}

func (f *fakeFX) GetRate(_ context.Context, _, _ string, _ models.Date) (float64, error) {
	f.calls++
	return f.rate, nil
}

var exportHeader = []string{"Index", "Datum", "Kurs", "Betrag", "Kosten", "Anbieter", "Name", "ISIN", "Art", "Kommentar"}

type fixture struct {
	svc    *Service
	loader *memLoader
	funds  *fakeFunds
	fx     *fakeFX
	config *common.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	config := common.NewDefaultConfig()
	config.Sources.Transactions = "tx.csv"
	config.Sources.RegionMap = "regions.csv"
	config.Sources.LedgerDir = "ledger"
	config.Sources.Ledger = "ledger.csv"

	loader := newMemLoader()
	loader.tables["tx.csv"] = models.NewRawTable(exportHeader, [][]string{
		{"1", "01.01.2021", "10", "-100", "-1", "ING", "World", "IE00B4L5Y983", "ETF Sparplan", "monatlich"},
		{"1", "01.01.2021", "20", "-40", "-1", "ING", "EM", "IE00BKM4GZ66", "ETF Sparplan", "monatlich"},
		{"2", "01.02.2021", "11", "-110", "-1", "ING", "World", "IE00B4L5Y983", "ETF Sparplan", "monatlich"},
	})
	loader.tables["regions.csv"] = models.NewRawTable([]string{"ISIN", "Name", "Type", "Region"}, [][]string{
		{"IE00B4L5Y983", "World (map)", "Stocks", "World"},
		{"IE00BKM4GZ66", "EM (map)", "Stocks", "Emerging Markets IMI"},
	})

	store, err := csvstore.NewStore(common.NewSilentLogger(), t.TempDir(), ";")
	require.NoError(t, err)

	funds := &fakeFunds{
		prices: map[string]float64{"IE00B4L5Y983": 70.1, "IE00BKM4GZ66": 30.2},
		profiles: map[string]models.FundProfile{
			"IE00B4L5Y983": {Name: "iShares Core MSCI World", Replication: "Physisch (Optimiertes Sampling)", Distribution: "Thesaurierend", TER: 0.2},
			"IE00BKM4GZ66": {Name: "iShares Core MSCI EM IMI", Replication: "Physisch", Distribution: "Ausschüttend", TER: 0.18},
		},
		day: models.NewDate(2021, time.May, 3),
	}
	fx := &fakeFX{rate: 0.8}
	crypto := &fakeCrypto{listings: []models.CryptoListing{
		{Name: "Bitcoin", Symbol: "BTC", Price: 50000, Volume24h: 1000, Currency: "USD"},
		{Name: "Tether", Symbol: "USDT", Price: 1, Volume24h: 10, Currency: "USD"},
	}}

	svc := NewService(config, loader, store, funds, crypto, fx, nil)
	svc.now = func() time.Time { return time.Date(2021, time.May, 3, 18, 0, 0, 0, time.UTC) }
	ids := 0
	svc.newID = func() string { ids++; return fmt.Sprintf("batch-%d", ids) }

	return &fixture{svc: svc, loader: loader, funds: funds, fx: fx, config: config}
}

func TestUpdateMaster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	instruments, err := f.svc.UpdateMaster(ctx)
	require.NoError(t, err)
	require.Len(t, instruments, 2)

	assert.Equal(t, "iShares Core MSCI World", instruments[0].Name)
	assert.Equal(t, "Stocks", instruments[0].Type)
	assert.Equal(t, models.Physical, instruments[0].Replication)
	assert.Equal(t, models.Accumulating, instruments[0].Distribution)
	assert.Equal(t, "Emerging", instruments[1].Region)
	assert.Equal(t, models.Distributing, instruments[1].Distribution)

	stored, err := f.svc.store.ReadInstruments(ctx)
	require.NoError(t, err)
	assert.Equal(t, instruments, stored)

	profiles, err := f.svc.store.ReadProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
}

func TestUpdateMaster_ScrapeFailure(t *testing.T) {
	f := newFixture(t)
	delete(f.funds.profiles, "IE00BKM4GZ66")

	_, err := f.svc.UpdateMaster(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrExternal))

	stored, err := f.svc.store.ReadInstruments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestUpdatePrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	batch, err := f.svc.UpdatePrices(ctx)
	require.NoError(t, err)
	assert.Equal(t, "batch-1", batch.ID)
	require.Len(t, batch.Observations, 2)
	assert.Equal(t, 2, f.funds.calls)
	assert.Equal(t, "World", batch.Observations[0].Name)

	history, err := f.svc.store.ReadPriceHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "batch-1", history[0].BatchID)
	assert.Equal(t, 70.1, history[0].Price)
}

func TestUpdatePrices_SameDayTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdatePrices(ctx)
	require.NoError(t, err)

	_, err = f.svc.UpdatePrices(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrOverlap))

	history, err := f.svc.store.ReadPriceHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestUpdateCrypto(t *testing.T) {
	f := newFixture(t)

	listings, err := f.svc.UpdateCrypto(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, 1, f.fx.calls)
	assert.Equal(t, 40000.0, listings[0].Price)
	assert.Equal(t, 800.0, listings[0].Volume24h)
	assert.Equal(t, "EUR", listings[0].Currency)

	stored, err := f.svc.store.ReadCrypto(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestMergeLedger(t *testing.T) {
	f := newFixture(t)
	header := models.LedgerColumns
	row := func(date string) []string {
		return []string{date, "Cash", "Food", "groceries", "10", "0", "EUR", "-10", "EUR", ""}
	}
	f.loader.dirs["ledger"] = []models.RawTable{
		models.NewRawTable(header, [][]string{row("01/05/21"), row("01/06/21")}),
		models.NewRawTable(header, [][]string{row("02/05/21")}),
	}

	n, err := f.svc.MergeLedger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, f.loader.written["ledger.csv"].Rows, 3)
}

func TestMergeLedger_NoExports(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.MergeLedger(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSchema))
}

func TestRun_UnknownJob(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Run(context.Background(), JobMaster, "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}
