// Package app wires configuration, storage and services into the shared
// core of cmd/finhub-server and cmd/finhub-etl.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/bobmcallan/finhub/internal/clients/coinmarketcap"
	"github.com/bobmcallan/finhub/internal/clients/fxrate"
	"github.com/bobmcallan/finhub/internal/clients/justetf"
	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/interfaces"
	"github.com/bobmcallan/finhub/internal/services/datahub"
	"github.com/bobmcallan/finhub/internal/services/pipeline"
	"github.com/bobmcallan/finhub/internal/storage"
	"github.com/bobmcallan/finhub/internal/storage/sources"
)

// App holds the initialized configuration, storage and services.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Store       interfaces.StageStore
	Loader      interfaces.SourceLoader
	Pipeline    *pipeline.Service
	StartupTime time.Time

	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath picks the config file: explicit path, FINHUB_CONFIG,
// finhub.toml next to the binary, then config/finhub.toml.
func resolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("FINHUB_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "finhub.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/finhub.toml" // fallback for development
		}
	}
	return configPath
}

// resolvePaths makes relative data paths relative to the config file.
func resolvePaths(config *common.Config, base string) {
	for _, p := range []*string{
		&config.Storage.Path,
		&config.Sources.Transactions,
		&config.Sources.RegionMap,
		&config.Sources.Ledger,
		&config.Sources.LedgerDir,
		&config.Sources.CryptoHoldings,
		&config.Logging.FilePath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// NewApp loads .env and the config file, then initializes storage and the
// dashboard pipeline. configPath may be empty.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	// .env is optional; real environment variables win
	_ = godotenv.Load()

	configPath = resolveConfigPath(configPath)
	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if _, err := os.Stat(configPath); err == nil {
		resolvePaths(config, filepath.Dir(configPath))
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	return NewAppFromConfig(config, logger)
}

// NewAppFromConfig initializes storage and services from a loaded config.
func NewAppFromConfig(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	store, err := storage.NewStageStore(logger, &config.Storage, config.Sources.Separator)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	loader := sources.NewLoader(config.Sources.Separator, logger)
	pipe, err := pipeline.NewService(config, loader, store, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	a := &App{
		Config:      config,
		Logger:      logger,
		Store:       store,
		Loader:      loader,
		Pipeline:    pipe,
		StartupTime: startupStart,
	}

	logger.Info().
		Str("storage", store.Path()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// Datahub builds the update job service with the scraping clients from the
// [clients] config sections.
func (a *App) Datahub() *datahub.Service {
	clients := a.Config.Clients
	return datahub.NewService(a.Config, a.Loader, a.Store,
		justetf.NewClientFromConfig(clients.JustETF, a.Logger),
		coinmarketcap.NewClientFromConfig(clients.CoinMarketCap, a.Logger),
		fxrate.NewClientFromConfig(clients.FXRate, a.Logger),
		a.Logger,
	)
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, close storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Store = nil
	}
}

// StartReloadScheduler reloads the dashboard on the configured interval so
// stage files written by the update jobs become visible. A zero interval
// disables it.
func (a *App) StartReloadScheduler() {
	interval := a.Config.Server.GetReloadInterval()
	if interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	go startReloadScheduler(ctx, a.Pipeline, a.Logger, interval, nil)
}
