package interfaces

import (
	"context"

	"github.com/bobmcallan/finhub/internal/models"
)

// FundDataClient scrapes per-fund prices and descriptive metadata.
type FundDataClient interface {
	// GetPrice returns the latest quoted price of the fund
	GetPrice(ctx context.Context, isin string) (*models.PriceObservation, error)

	// GetProfile returns the fund's descriptive metadata
	GetProfile(ctx context.Context, isin string) (*models.FundProfile, error)
}

// CryptoClient scrapes the cryptocurrency listing.
type CryptoClient interface {
	// GetListings returns listings in USD from the first pages of the ranking
	GetListings(ctx context.Context, pages int) ([]models.CryptoListing, error)
}

// FXClient provides currency conversion rates.
type FXClient interface {
	// GetRate returns how many units of to one unit of from buys on the given day
	GetRate(ctx context.Context, from, to string, on models.Date) (float64, error)
}
