package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/finhub/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(nil, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func batch(id string, day int, isins ...string) models.PriceBatch {
	b := models.PriceBatch{ID: id, CreatedAt: time.Now()}
	for _, isin := range isins {
		b.Observations = append(b.Observations, models.PriceObservation{
			ISIN: isin, Price: 10.25, Currency: "EUR", Date: models.NewDate(2021, time.May, day),
		})
	}
	return b
}

func TestNewStore_DirectoryGetsDefaultFile(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, DefaultFile, filepath.Base(s.Path()))

	explicit, err := NewStore(nil, filepath.Join(t.TempDir(), "stage.db"))
	require.NoError(t, err)
	defer explicit.Close()
	assert.Equal(t, "stage.db", filepath.Base(explicit.Path()))
}

func TestStore_InstrumentsReplace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := []models.Instrument{
		{ISIN: "B", Name: "EM", Type: "Equity", Region: "Emerging", Replication: models.Physical, Distribution: models.Distributing, TER: 0.18},
		{ISIN: "A", Name: "World", Type: "Equity", Region: "World", Replication: models.Synthetic, Distribution: models.Accumulating, TER: 0.2},
	}
	require.NoError(t, s.WriteInstruments(ctx, in))
	out, err := s.ReadInstruments(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out, "insertion order is kept")

	require.NoError(t, s.WriteInstruments(ctx, in[1:]))
	out, err = s.ReadInstruments(ctx)
	require.NoError(t, err)
	assert.Equal(t, in[1:], out)
}

func TestStore_ProfilesAndCrypto(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	profiles := []models.FundProfile{{ISIN: "A", Name: "World", FundSize: 1.5e9, TER: 0.2, Auditor: "PwC"}}
	require.NoError(t, s.WriteProfiles(ctx, profiles))
	gotProfiles, err := s.ReadProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, profiles, gotProfiles)

	listings := []models.CryptoListing{{Name: "Ethereum", Symbol: "ETH", Price: 2500.5, Currency: "EUR", Date: models.NewDate(2021, time.May, 3)}}
	require.NoError(t, s.WriteCrypto(ctx, listings))
	gotListings, err := s.ReadCrypto(ctx)
	require.NoError(t, err)
	assert.Equal(t, listings, gotListings)
}

func TestStore_AppendPriceBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendPriceBatch(ctx, batch("b1", 3, "A", "B")))
	require.NoError(t, s.AppendPriceBatch(ctx, batch("b2", 4, "A")))

	history, err := s.ReadPriceHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "b2", history[2].BatchID)
	assert.Equal(t, models.NewDate(2021, time.May, 4), history[2].Date)

	err = s.AppendPriceBatch(ctx, batch("b3", 4, "B"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrOverlap))

	history, err = s.ReadPriceHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}
