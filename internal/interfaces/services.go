// Package interfaces defines service contracts for finhub
package interfaces

import (
	"context"

	"github.com/bobmcallan/finhub/internal/models"
)

// PipelineService runs the transformation pipeline and holds its result.
type PipelineService interface {
	// Load reads every source, runs all stages and publishes a new Dashboard.
	// On error the previous Dashboard stays published.
	Load(ctx context.Context) (*models.Dashboard, error)

	// Dashboard returns the current published result, nil before the first Load.
	Dashboard() *models.Dashboard
}

// DatahubService runs the batch update jobs that refresh stage files.
type DatahubService interface {
	// UpdateMaster scrapes fund profiles and rebuilds the instrument master.
	UpdateMaster(ctx context.Context) ([]models.Instrument, error)

	// UpdatePrices scrapes one price per held instrument and appends the batch.
	UpdatePrices(ctx context.Context) (*models.PriceBatch, error)

	// UpdateCrypto scrapes the coin listing and converts it to EUR.
	UpdateCrypto(ctx context.Context) ([]models.CryptoListing, error)

	// MergeLedger merges the monthly ledger exports into the ledger source file.
	MergeLedger(ctx context.Context) (int, error)
}
