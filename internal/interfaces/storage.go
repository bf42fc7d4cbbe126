package interfaces

import (
	"context"

	"github.com/bobmcallan/finhub/internal/models"
)

// StageStore persists the outputs of the batch update jobs.
type StageStore interface {
	// WriteInstruments replaces the instrument master.
	WriteInstruments(ctx context.Context, instruments []models.Instrument) error
	ReadInstruments(ctx context.Context) ([]models.Instrument, error)

	// WriteProfiles replaces the scraped fund profiles.
	WriteProfiles(ctx context.Context, profiles []models.FundProfile) error
	ReadProfiles(ctx context.Context) ([]models.FundProfile, error)

	// AppendPriceBatch appends to the price history. A batch whose dates
	// overlap the history fails with models.ErrOverlap and writes nothing.
	AppendPriceBatch(ctx context.Context, batch models.PriceBatch) error
	ReadPriceHistory(ctx context.Context) ([]models.PriceObservation, error)

	// WriteCrypto replaces the latest coin listing.
	WriteCrypto(ctx context.Context, listings []models.CryptoListing) error
	ReadCrypto(ctx context.Context) ([]models.CryptoListing, error)

	// Path returns the location of the store for logs and the banner.
	Path() string

	Close() error
}

// SourceLoader reads raw exports into untyped tables.
type SourceLoader interface {
	// LoadTable reads a .csv or .xlsx file. sheet is ignored for csv; an
	// empty sheet selects the first sheet of a workbook.
	LoadTable(path, sheet string) (models.RawTable, error)

	// LoadDir reads every csv file of dir in name order.
	LoadDir(dir string) ([]models.RawTable, error)

	// WriteTable writes a table as csv atomically.
	WriteTable(path string, table models.RawTable) error
}
