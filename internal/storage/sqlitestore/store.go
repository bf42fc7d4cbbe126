// Package sqlitestore implements the stage store on an embedded SQLite
// database.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/interfaces"
	"github.com/bobmcallan/finhub/internal/models"
)

// Compile-time interface check
var _ interfaces.StageStore = (*Store)(nil)

// DefaultFile is the database file created when the configured path is a
// directory.
const DefaultFile = "finhub.db"

// Store implements interfaces.StageStore on SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *common.Logger
}

// NewStore opens (or creates) the database and runs the migrations.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".db" && ext != ".sqlite" {
		path = filepath.Join(path, DefaultFile)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	logger.Info().Str("path", path).Msg("SQLite stage store opened")
	return &Store{db: db, path: path, logger: logger}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// replace runs del and one insert per row inside a single transaction.
func (s *Store) replace(ctx context.Context, del, insert string, n int, args func(i int) []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, del); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// --- Instrument master ---

func (s *Store) WriteInstruments(ctx context.Context, instruments []models.Instrument) error {
	return s.replace(ctx, `DELETE FROM instruments`, `
		INSERT INTO instruments (pos, isin, name, type, region, replication, distribution, ter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, len(instruments), func(i int) []any {
		m := instruments[i]
		return []any{i, m.ISIN, m.Name, m.Type, m.Region, string(m.Replication), string(m.Distribution), m.TER}
	})
}

func (s *Store) ReadInstruments(ctx context.Context) ([]models.Instrument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT isin, name, type, region, replication, distribution, ter
		FROM instruments
		ORDER BY pos ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Instrument
	for rows.Next() {
		var m models.Instrument
		var replication, distribution string
		if err := rows.Scan(&m.ISIN, &m.Name, &m.Type, &m.Region, &replication, &distribution, &m.TER); err != nil {
			return nil, err
		}
		m.Replication = models.Replication(replication)
		m.Distribution = models.Distribution(distribution)
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- Fund profiles ---

func (s *Store) WriteProfiles(ctx context.Context, profiles []models.FundProfile) error {
	return s.replace(ctx, `DELETE FROM profiles`, `
		INSERT INTO profiles (pos, isin, name, fund_size, ter, replication, legal_structure, fund_currency,
			inception, distribution, distribution_interval, domicile, structure, provider, custodian, auditor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, len(profiles), func(i int) []any {
		p := profiles[i]
		return []any{i, p.ISIN, p.Name, p.FundSize, p.TER, p.Replication, p.LegalStructure, p.FundCurrency,
			p.Inception, p.Distribution, p.DistributionInterval, p.Domicile, p.Structure, p.Provider, p.Custodian, p.Auditor}
	})
}

func (s *Store) ReadProfiles(ctx context.Context) ([]models.FundProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT isin, name, fund_size, ter, replication, legal_structure, fund_currency, inception,
			distribution, distribution_interval, domicile, structure, provider, custodian, auditor
		FROM profiles
		ORDER BY pos ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FundProfile
	for rows.Next() {
		var p models.FundProfile
		if err := rows.Scan(&p.ISIN, &p.Name, &p.FundSize, &p.TER, &p.Replication, &p.LegalStructure, &p.FundCurrency,
			&p.Inception, &p.Distribution, &p.DistributionInterval, &p.Domicile, &p.Structure, &p.Provider,
			&p.Custodian, &p.Auditor); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- Price history ---

// AppendPriceBatch inserts the batch in one transaction after checking that
// none of its dates is already recorded.
func (s *Store) AppendPriceBatch(ctx context.Context, batch models.PriceBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var clash []string
	for _, d := range batch.Dates() {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM prices WHERE date = ?`, d.String()).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			clash = append(clash, d.String())
		}
	}
	if len(clash) > 0 {
		sort.Strings(clash)
		return models.NewDataError(models.ErrOverlap, "history_overlap", models.ColDate,
			"price data for this date already exists", clash...)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO price_batches (id, created_at, observations) VALUES (?, ?, ?)
	`, batch.ID, batch.CreatedAt.UTC(), len(batch.Observations)); err != nil {
		return fmt.Errorf("recording batch %s: %w", batch.ID, err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prices (isin, name, price, currency, date, batch_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, o := range batch.Observations {
		if _, err := stmt.ExecContext(ctx, o.ISIN, o.Name, o.Price, o.Currency, o.Date.String(), batch.ID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info().Str("batch", batch.ID).Int("prices", len(batch.Observations)).Msg("Price batch appended")
	return nil
}

func (s *Store) ReadPriceHistory(ctx context.Context) ([]models.PriceObservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT isin, name, price, currency, date, batch_id
		FROM prices
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PriceObservation
	for rows.Next() {
		var o models.PriceObservation
		var date string
		if err := rows.Scan(&o.ISIN, &o.Name, &o.Price, &o.Currency, &date, &o.BatchID); err != nil {
			return nil, err
		}
		if o.Date, err = models.ParseISODate(date); err != nil {
			return nil, fmt.Errorf("price row date %q: %w", date, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// --- Crypto listing ---

func (s *Store) WriteCrypto(ctx context.Context, listings []models.CryptoListing) error {
	return s.replace(ctx, `DELETE FROM crypto`, `
		INSERT INTO crypto (pos, name, symbol, price, volume_24h, change_1h, change_24h, change_7d, currency, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, len(listings), func(i int) []any {
		c := listings[i]
		return []any{i, c.Name, c.Symbol, c.Price, c.Volume24h, c.Change1h, c.Change24h, c.Change7d, c.Currency, c.Date.String()}
	})
}

func (s *Store) ReadCrypto(ctx context.Context) ([]models.CryptoListing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, symbol, price, volume_24h, change_1h, change_24h, change_7d, currency, date
		FROM crypto
		ORDER BY pos ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CryptoListing
	for rows.Next() {
		var c models.CryptoListing
		var date string
		if err := rows.Scan(&c.Name, &c.Symbol, &c.Price, &c.Volume24h, &c.Change1h, &c.Change24h, &c.Change7d,
			&c.Currency, &date); err != nil {
			return nil, err
		}
		if date != "" {
			if c.Date, err = models.ParseISODate(date); err != nil {
				return nil, fmt.Errorf("crypto row date %q: %w", date, err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
