// Package csvstore implements the stage store as flat csv files, one per
// stage output, the layout the spreadsheet tooling reads.
package csvstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/interfaces"
	"github.com/bobmcallan/finhub/internal/models"
	"github.com/bobmcallan/finhub/internal/storage/sources"
)

// Compile-time interface check
var _ interfaces.StageStore = (*Store)(nil)

// Stage file names under the store directory.
const (
	InstrumentsFile = "etf_master.csv"
	ProfilesFile    = "etf_profiles.csv"
	PricesFile      = "etf_prices.csv"
	CryptoFile      = "crypto_prices.csv"
)

var (
	instrumentHeader = []string{models.ColISIN, models.ColName, models.ColType, models.ColRegion,
		models.ColReplication, models.ColDistribution, models.ColTER}
	profileHeader = []string{models.ColISIN, models.ColName, "FundSize", models.ColTER, models.ColReplication,
		"LegalStructure", "FundCurrency", "Inception", models.ColDistribution, "DistributionInterval",
		"Domicile", "Structure", models.ColProvider, "Custodian", "Auditor"}
	priceHeader  = []string{models.ColISIN, models.ColName, models.ColPrice, models.ColCurrency, models.ColDate, "BatchID"}
	cryptoHeader = []string{"Name", "Symbol", "Price", "Volume24h", "Change1h", "Change24h", "Change7d", "Currency", "Date"}
)

// Store keeps every stage output in its own file. Price history is append
// only; the other stages are replaced on write.
type Store struct {
	basePath string
	sep      rune
	mu       sync.Mutex
	logger   *common.Logger
}

// NewStore creates the store directory if needed.
func NewStore(logger *common.Logger, path, sep string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	r := ';'
	if sep != "" {
		r = []rune(sep)[0]
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	logger.Debug().Str("path", path).Msg("CSV stage store opened")
	return &Store{basePath: path, sep: r, logger: logger}, nil
}

func (s *Store) Path() string { return s.basePath }

func (s *Store) Close() error { return nil }

func (s *Store) file(name string) string {
	return filepath.Join(s.basePath, name)
}

// read loads a stage file. A missing file is an empty stage.
func (s *Store) read(name string) (models.RawTable, error) {
	f, err := os.Open(s.file(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.RawTable{}, nil
		}
		return models.RawTable{}, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()
	t, err := sources.ReadCSV(f, s.sep)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return t, nil
}

func (s *Store) write(name string, header []string, records [][]string) error {
	if err := sources.WriteCSVFile(s.file(name), s.sep, header, records); err != nil {
		return err
	}
	s.logger.Debug().Str("file", name).Int("rows", len(records)).Msg("Stage file written")
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(row models.RawRow, col string) (float64, error) {
	if row.Empty(col) {
		return 0, nil
	}
	v, err := common.ParseDecimal(row.Get(col))
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return v, nil
}

// --- Instrument master ---

func (s *Store) WriteInstruments(_ context.Context, instruments []models.Instrument) error {
	records := make([][]string, len(instruments))
	for i, m := range instruments {
		records[i] = []string{m.ISIN, m.Name, m.Type, m.Region, string(m.Replication), string(m.Distribution), formatFloat(m.TER)}
	}
	return s.write(InstrumentsFile, instrumentHeader, records)
}

func (s *Store) ReadInstruments(_ context.Context) ([]models.Instrument, error) {
	t, err := s.read(InstrumentsFile)
	if err != nil {
		return nil, err
	}
	out := make([]models.Instrument, 0, len(t.Rows))
	for i, row := range t.Rows {
		ter, err := parseFloat(row, models.ColTER)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", InstrumentsFile, i+1, err)
		}
		out = append(out, models.Instrument{
			ISIN:         row.Get(models.ColISIN),
			Name:         row.Get(models.ColName),
			Type:         row.Get(models.ColType),
			Region:       row.Get(models.ColRegion),
			Replication:  models.Replication(row.Get(models.ColReplication)),
			Distribution: models.Distribution(row.Get(models.ColDistribution)),
			TER:          ter,
		})
	}
	return out, nil
}

// --- Fund profiles ---

func (s *Store) WriteProfiles(_ context.Context, profiles []models.FundProfile) error {
	records := make([][]string, len(profiles))
	for i, p := range profiles {
		records[i] = []string{p.ISIN, p.Name, formatFloat(p.FundSize), formatFloat(p.TER), p.Replication,
			p.LegalStructure, p.FundCurrency, p.Inception, p.Distribution, p.DistributionInterval,
			p.Domicile, p.Structure, p.Provider, p.Custodian, p.Auditor}
	}
	return s.write(ProfilesFile, profileHeader, records)
}

func (s *Store) ReadProfiles(_ context.Context) ([]models.FundProfile, error) {
	t, err := s.read(ProfilesFile)
	if err != nil {
		return nil, err
	}
	out := make([]models.FundProfile, 0, len(t.Rows))
	for i, row := range t.Rows {
		size, err := parseFloat(row, "FundSize")
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", ProfilesFile, i+1, err)
		}
		ter, err := parseFloat(row, models.ColTER)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", ProfilesFile, i+1, err)
		}
		out = append(out, models.FundProfile{
			ISIN:                 row.Get(models.ColISIN),
			Name:                 row.Get(models.ColName),
			FundSize:             size,
			TER:                  ter,
			Replication:          row.Get(models.ColReplication),
			LegalStructure:       row.Get("LegalStructure"),
			FundCurrency:         row.Get("FundCurrency"),
			Inception:            row.Get("Inception"),
			Distribution:         row.Get(models.ColDistribution),
			DistributionInterval: row.Get("DistributionInterval"),
			Domicile:             row.Get("Domicile"),
			Structure:            row.Get("Structure"),
			Provider:             row.Get(models.ColProvider),
			Custodian:            row.Get("Custodian"),
			Auditor:              row.Get("Auditor"),
		})
	}
	return out, nil
}

// --- Price history ---

func priceRecord(o models.PriceObservation) []string {
	return []string{o.ISIN, o.Name, formatFloat(o.Price), o.Currency, o.Date.Time().Format(models.SourceDate), o.BatchID}
}

func (s *Store) ReadPriceHistory(_ context.Context) ([]models.PriceObservation, error) {
	t, err := s.read(PricesFile)
	if err != nil {
		return nil, err
	}
	out := make([]models.PriceObservation, 0, len(t.Rows))
	for i, row := range t.Rows {
		price, err := parseFloat(row, models.ColPrice)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", PricesFile, i+1, err)
		}
		d, err := models.ParseFlexibleDate(row.Get(models.ColDate))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", PricesFile, i+1, err)
		}
		out = append(out, models.PriceObservation{
			ISIN:     row.Get(models.ColISIN),
			Name:     row.Get(models.ColName),
			Price:    price,
			Currency: row.Get(models.ColCurrency),
			Date:     d,
			BatchID:  row.Get("BatchID"),
		})
	}
	return out, nil
}

// AppendPriceBatch rewrites the history file with the batch appended. An
// overlapping batch leaves the file untouched.
func (s *Store) AppendPriceBatch(ctx context.Context, batch models.PriceBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.ReadPriceHistory(ctx)
	if err != nil {
		return err
	}
	if err := models.CheckOverlap(history, batch); err != nil {
		return err
	}

	records := make([][]string, 0, len(history)+len(batch.Observations))
	for _, o := range history {
		records = append(records, priceRecord(o))
	}
	for _, o := range batch.Observations {
		o.BatchID = batch.ID
		records = append(records, priceRecord(o))
	}
	if err := s.write(PricesFile, priceHeader, records); err != nil {
		return err
	}
	s.logger.Info().Str("batch", batch.ID).Int("prices", len(batch.Observations)).Int("history", len(records)).Msg("Price batch appended")
	return nil
}

// --- Crypto listing ---

func (s *Store) WriteCrypto(_ context.Context, listings []models.CryptoListing) error {
	records := make([][]string, len(listings))
	for i, c := range listings {
		records[i] = []string{c.Name, c.Symbol, formatFloat(c.Price), formatFloat(c.Volume24h),
			formatFloat(c.Change1h), formatFloat(c.Change24h), formatFloat(c.Change7d), c.Currency, c.Date.String()}
	}
	return s.write(CryptoFile, cryptoHeader, records)
}

func (s *Store) ReadCrypto(_ context.Context) ([]models.CryptoListing, error) {
	t, err := s.read(CryptoFile)
	if err != nil {
		return nil, err
	}
	out := make([]models.CryptoListing, 0, len(t.Rows))
	for i, row := range t.Rows {
		var nums [5]float64
		for j, col := range []string{"Price", "Volume24h", "Change1h", "Change24h", "Change7d"} {
			v, err := parseFloat(row, col)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", CryptoFile, i+1, err)
			}
			nums[j] = v
		}
		var d models.Date
		if !row.Empty("Date") {
			if d, err = models.ParseFlexibleDate(row.Get("Date")); err != nil {
				return nil, fmt.Errorf("%s row %d: %w", CryptoFile, i+1, err)
			}
		}
		out = append(out, models.CryptoListing{
			Name:      row.Get("Name"),
			Symbol:    row.Get("Symbol"),
			Price:     nums[0],
			Volume24h: nums[1],
			Change1h:  nums[2],
			Change24h: nums[3],
			Change7d:  nums[4],
			Currency:  row.Get("Currency"),
			Date:      d,
		})
	}
	return out, nil
}
