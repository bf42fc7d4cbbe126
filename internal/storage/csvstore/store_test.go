package csvstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/finhub/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(nil, filepath.Join(t.TempDir(), "stage"), ";")
	require.NoError(t, err)
	return s
}

func batch(id string, day int, isins ...string) models.PriceBatch {
	b := models.PriceBatch{ID: id, CreatedAt: time.Now()}
	for i, isin := range isins {
		b.Observations = append(b.Observations, models.PriceObservation{
			ISIN:     isin,
			Price:    70.5 + float64(i),
			Currency: "EUR",
			Date:     models.NewDate(2021, time.May, day),
		})
	}
	return b
}

func TestStore_EmptyStages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	instruments, err := s.ReadInstruments(ctx)
	require.NoError(t, err)
	assert.Empty(t, instruments)

	history, err := s.ReadPriceHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_InstrumentsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := []models.Instrument{
		{ISIN: "IE00B4L5Y983", Name: "Core MSCI World; Acc", Type: "Equity", Region: "World",
			Replication: models.Physical, Distribution: models.Accumulating, TER: 0.2},
		{ISIN: "IE00BKM4GZ66", Name: "EM IMI", Type: "Equity", Region: "Emerging",
			Replication: models.Physical, Distribution: models.Distributing, TER: 0.18},
	}
	require.NoError(t, s.WriteInstruments(ctx, in))

	out, err := s.ReadInstruments(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	require.NoError(t, s.WriteInstruments(ctx, in[:1]))
	out, err = s.ReadInstruments(ctx)
	require.NoError(t, err)
	assert.Len(t, out, 1, "writes replace the stage")
}

func TestStore_ProfilesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := []models.FundProfile{{ISIN: "A", Name: "World", FundSize: 5e10, TER: 0.2, Replication: "Physisch", Distribution: "Thesaurierend", Domicile: "Irland"}}
	require.NoError(t, s.WriteProfiles(ctx, in))
	out, err := s.ReadProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestStore_AppendPriceBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendPriceBatch(ctx, batch("b1", 3, "A", "B")))
	require.NoError(t, s.AppendPriceBatch(ctx, batch("b2", 4, "A", "B")))

	history, err := s.ReadPriceHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "b1", history[0].BatchID)
	assert.Equal(t, models.NewDate(2021, time.May, 4), history[3].Date)
	assert.Equal(t, 71.5, history[3].Price)

	raw, err := os.ReadFile(filepath.Join(s.Path(), PricesFile))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "03.05.2021"), "history keeps the source date layout")
}

func TestStore_AppendPriceBatchOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.AppendPriceBatch(ctx, batch("b1", 3, "A")))

	err := s.AppendPriceBatch(ctx, batch("b2", 3, "B"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrOverlap))
	de, ok := models.AsDataError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"2021-05-03"}, de.Keys)

	history, err := s.ReadPriceHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1, "nothing written on overlap")
}

func TestStore_CryptoRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := []models.CryptoListing{
		{Name: "Bitcoin", Symbol: "BTC", Price: 41000.12, Volume24h: 2.5e10, Change1h: -0.3, Change24h: 1.2, Change7d: -4.5,
			Currency: "EUR", Date: models.NewDate(2021, time.May, 3)},
	}
	require.NoError(t, s.WriteCrypto(ctx, in))
	out, err := s.ReadCrypto(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
