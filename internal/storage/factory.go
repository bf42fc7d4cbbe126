// Package storage persists the stage files written by the update jobs and
// read by the dashboard pipeline.
package storage

import (
	"fmt"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/interfaces"
	"github.com/bobmcallan/finhub/internal/storage/csvstore"
	"github.com/bobmcallan/finhub/internal/storage/sqlitestore"
)

// Backend type constants.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// NewStageStore creates a stage store based on the configuration.
// Supported backends: "csv" (default), "sqlite".
func NewStageStore(logger *common.Logger, config *common.StorageConfig, sep string) (interfaces.StageStore, error) {
	backend := config.Backend
	if backend == "" {
		backend = BackendCSV
	}

	switch backend {
	case BackendCSV:
		return csvstore.NewStore(logger, config.Path, sep)

	case BackendSQLite:
		return sqlitestore.NewStore(logger, config.Path)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: csv, sqlite)", backend)
	}
}
