// Package common provides shared utilities for finhub
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/finhub/internal/models"
)

// Config holds all configuration for finhub
type Config struct {
	Environment string           `toml:"environment"`
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Sources     SourcesConfig    `toml:"sources"`
	Normalizer  NormalizerConfig `toml:"normalizer"`
	Joiner      JoinerConfig     `toml:"joiner"`
	Valuation   ValuationConfig  `toml:"valuation"`
	TimeSeries  TimeSeriesConfig `toml:"timeseries"`
	Cashflow    CashflowConfig   `toml:"cashflow"`
	Clients     ClientsConfig    `toml:"clients"`
	Cache       CacheConfig      `toml:"cache"`
	Logging     LoggingConfig    `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	ReloadInterval string `toml:"reload_interval"` // empty or "0" disables periodic reloads
}

// GetReloadInterval parses the dashboard reload interval. Zero disables it.
func (c *ServerConfig) GetReloadInterval() time.Duration {
	d, err := time.ParseDuration(c.ReloadInterval)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// StorageConfig selects where stage outputs and price history live.
type StorageConfig struct {
	Backend string `toml:"backend"` // "csv" or "sqlite"
	Path    string `toml:"path"`
}

// SourcesConfig points at the raw exports the pipeline reads.
type SourcesConfig struct {
	Transactions      string `toml:"transactions"`
	TransactionsSheet string `toml:"transactions_sheet"`
	RegionMap         string `toml:"region_map"`
	Ledger            string `toml:"ledger"`     // merged ledger file
	LedgerDir         string `toml:"ledger_dir"` // monthly exports merged by the etl job
	CryptoHoldings    string `toml:"crypto_holdings"`
	Separator         string `toml:"separator"`
}

// NormalizerConfig maps the transaction export onto the canonical schema.
type NormalizerConfig struct {
	Columns          map[string]string `toml:"columns"`
	KindColumn       string            `toml:"kind_column"`
	ExpectedKind     string            `toml:"expected_kind"`
	CommentColumn    string            `toml:"comment_column"`
	RecurringLabel   string            `toml:"recurring_label"`
	DividendLabel    string            `toml:"dividend_label"`
	IgnoredComments  []string          `toml:"ignored_comments"`
	DateLayout       string            `toml:"date_layout"`
	DividendsEnabled bool              `toml:"dividends_enabled"`
}

// JoinerConfig controls how transactions without master data are treated.
type JoinerConfig struct {
	UnmatchedPolicy string `toml:"unmatched_policy"` // drop | warn | fail
}

// ValuationConfig holds the accepted price feed currency.
type ValuationConfig struct {
	Currency string `toml:"currency"`
}

// TimeSeriesConfig holds the unknown-price fill mode.
type TimeSeriesConfig struct {
	PriceFill string `toml:"price_fill"` // zero | forward
}

// CashflowConfig holds ledger parsing rules and the category taxonomy.
type CashflowConfig struct {
	DateLayout       string            `toml:"date_layout"`
	VacationCategory string            `toml:"vacation_category"`
	VacationTag      string            `toml:"vacation_tag"`
	SpecialTag       string            `toml:"special_tag"`
	TaxonomyFile     string            `toml:"taxonomy_file"`
	Taxonomy         []models.Category `toml:"taxonomy"`
	IncomeTaxonomy   []models.Category `toml:"income_taxonomy"` // empty: one category per income tag
}

// ClientsConfig holds scraping client configurations
type ClientsConfig struct {
	JustETF       ClientConfig `toml:"justetf"`
	CoinMarketCap ClientConfig `toml:"coinmarketcap"`
	FXRate        ClientConfig `toml:"fxrate"`
}

// ClientConfig is shared by every outbound HTTP client.
type ClientConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
	Pages     int    `toml:"pages"`
}

// GetTimeout parses and returns the timeout duration
func (c *ClientConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// CacheConfig controls the filter result cache of the rendering API.
type CacheConfig struct {
	TTL     string `toml:"ttl"`
	Cleanup string `toml:"cleanup"`
}

// GetTTL parses and returns the cache expiry
func (c *CacheConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// GetCleanup parses and returns the cache purge interval
func (c *CacheConfig) GetCleanup() time.Duration {
	d, err := time.ParseDuration(c.Cleanup)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8050,
			ReloadInterval: "1h",
		},
		Storage: StorageConfig{
			Backend: "csv",
			Path:    "data/stage",
		},
		Sources: SourcesConfig{
			Transactions:      "data/source/finanzuebersicht.xlsx",
			TransactionsSheet: "3.2 Portfolio langfristig Transactions",
			RegionMap:         "data/source/master_data_stocks.csv",
			Ledger:            "data/source/bilanz_full.csv",
			LedgerDir:         "data/source/cashflow",
			CryptoHoldings:    "data/source/crypto_holdings.csv",
			Separator:         ";",
		},
		Normalizer: NormalizerConfig{
			Columns: map[string]string{
				"Index":    models.ColIndex,
				"Datum":    models.ColDate,
				"Kurs":     models.ColPrice,
				"Betrag":   models.ColInvestment,
				"Kosten":   models.ColOrderCost,
				"Anbieter": models.ColProvider,
				"Name":     models.ColName,
				"ISIN":     models.ColISIN,
			},
			KindColumn:       "Art",
			ExpectedKind:     "ETF Sparplan",
			CommentColumn:    "Kommentar",
			RecurringLabel:   "monatlich",
			DividendLabel:    "Dividende",
			IgnoredComments:  []string{"FAIL"},
			DateLayout:       "02.01.2006",
			DividendsEnabled: true,
		},
		Joiner: JoinerConfig{
			UnmatchedPolicy: "drop",
		},
		Valuation: ValuationConfig{
			Currency: "EUR",
		},
		TimeSeries: TimeSeriesConfig{
			PriceFill: "zero",
		},
		Cashflow: CashflowConfig{
			DateLayout:       "01/02/06",
			VacationCategory: "Urlaub",
			VacationTag:      "Urlaub",
			SpecialTag:       "building upkeep",
			Taxonomy:         models.DefaultTaxonomy().Categories,
		},
		Clients: ClientsConfig{
			JustETF: ClientConfig{
				BaseURL:   "https://www.justetf.com/de/etf-profile.html",
				RateLimit: 1,
				Timeout:   "30s",
			},
			CoinMarketCap: ClientConfig{
				BaseURL:   "https://coinmarketcap.com",
				RateLimit: 1,
				Timeout:   "30s",
				Pages:     5,
			},
			FXRate: ClientConfig{
				BaseURL:   "https://www.finanzen.net",
				RateLimit: 1,
				Timeout:   "30s",
			},
		},
		Cache: CacheConfig{
			TTL:     "15m",
			Cleanup: "30m",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/finhub.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if config.Cashflow.TaxonomyFile != "" {
		tax, err := LoadTaxonomy(config.Cashflow.TaxonomyFile)
		if err != nil {
			return nil, err
		}
		config.Cashflow.Taxonomy = tax.Categories
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadTaxonomy reads a standalone taxonomy file of [[category]] tables.
func LoadTaxonomy(path string) (models.Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Taxonomy{}, fmt.Errorf("failed to read taxonomy file %s: %w", path, err)
	}
	var doc struct {
		Category []models.Category `toml:"category"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return models.Taxonomy{}, fmt.Errorf("failed to parse taxonomy file %s: %w", path, err)
	}
	return models.Taxonomy{Categories: doc.Category}, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FINHUB_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FINHUB_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FINHUB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FINHUB_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("FINHUB_DATA_PATH"); path != "" {
		config.Storage.Path = filepath.Join(path, "stage")
		config.Sources.Transactions = filepath.Join(path, "source", filepath.Base(config.Sources.Transactions))
		config.Sources.RegionMap = filepath.Join(path, "source", filepath.Base(config.Sources.RegionMap))
		config.Sources.Ledger = filepath.Join(path, "source", filepath.Base(config.Sources.Ledger))
		config.Sources.LedgerDir = filepath.Join(path, "source", filepath.Base(config.Sources.LedgerDir))
		config.Sources.CryptoHoldings = filepath.Join(path, "source", filepath.Base(config.Sources.CryptoHoldings))
	}

	if backend := os.Getenv("FINHUB_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
	}

	if policy := os.Getenv("FINHUB_UNMATCHED_POLICY"); policy != "" {
		config.Joiner.UnmatchedPolicy = strings.ToLower(policy)
	}

	if fill := os.Getenv("FINHUB_PRICE_FILL"); fill != "" {
		config.TimeSeries.PriceFill = strings.ToLower(fill)
	}
}

// Validate rejects enum values the pipeline does not understand.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Joiner.UnmatchedPolicy {
	case "drop", "warn", "fail":
	default:
		return fmt.Errorf("unknown joiner unmatched_policy %q", c.Joiner.UnmatchedPolicy)
	}
	switch c.TimeSeries.PriceFill {
	case "zero", "forward":
	default:
		return fmt.Errorf("unknown timeseries price_fill %q", c.TimeSeries.PriceFill)
	}
	if err := c.TaxonomyValue().Validate(); err != nil {
		return fmt.Errorf("invalid cashflow taxonomy: %w", err)
	}
	if len(c.Cashflow.IncomeTaxonomy) > 0 {
		if err := (models.Taxonomy{Categories: c.Cashflow.IncomeTaxonomy}).Validate(); err != nil {
			return fmt.Errorf("invalid cashflow income_taxonomy: %w", err)
		}
	}
	return nil
}

// TaxonomyValue returns the configured taxonomy as a value for the categorizer.
func (c *Config) TaxonomyValue() models.Taxonomy {
	return models.Taxonomy{Categories: c.Cashflow.Taxonomy}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
