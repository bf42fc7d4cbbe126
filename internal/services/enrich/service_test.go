package enrich

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/finhub/internal/models"
)

func tx(index int, isin string, investment, price float64) models.Transaction {
	return models.Transaction{
		Index:      index,
		Date:       models.NewDate(2021, time.Month(index), 1),
		ISIN:       isin,
		Name:       isin,
		Investment: investment,
		Price:      price,
		Kind:       models.KindRecurringBuy,
	}
}

var master = []models.Instrument{
	{ISIN: "A", Name: "World", Type: "Equity", Region: "World", Replication: models.Physical, Distribution: models.Accumulating, TER: 0.2},
	{ISIN: "B", Name: "EM", Type: "Equity", Region: "Emerging", Replication: models.Physical, Distribution: models.Distributing, TER: 0.18},
	{ISIN: "A", Name: "World duplicate", Type: "Bond", Region: "Europe"},
}

func TestEnrich_NoFanOutFromDuplicates(t *testing.T) {
	txs := []models.Transaction{tx(1, "A", 100, 10), tx(1, "B", 50, 25), tx(2, "A", 100, 20)}

	got, unmatched, err := NewService(PolicyDrop, nil).Enrich(txs, master)
	require.NoError(t, err)
	assert.Empty(t, unmatched)
	require.Len(t, got, 3, "each covered transaction survives exactly once")

	assert.Equal(t, "World", got[0].Region)
	assert.Equal(t, "Equity", got[0].Type)
	assert.Equal(t, 10.0, got[0].Quantity)
	assert.Equal(t, 2.0, got[1].Quantity)
	for _, h := range got {
		assert.NotEmpty(t, h.Region)
	}
}

func TestEnrich_DropPolicy(t *testing.T) {
	txs := []models.Transaction{tx(1, "A", 100, 10), tx(1, "Z", 50, 25)}

	got, unmatched, err := NewService(PolicyDrop, nil).Enrich(txs, master)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []string{"Z"}, unmatched)
}

func TestEnrich_WarnPolicyStillExcludes(t *testing.T) {
	txs := []models.Transaction{tx(1, "Z", 50, 25), tx(1, "Y", 50, 25), tx(2, "Z", 50, 25)}

	got, unmatched, err := NewService(PolicyWarn, nil).Enrich(txs, master)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []string{"Y", "Z"}, unmatched)
}

func TestEnrich_FailPolicy(t *testing.T) {
	txs := []models.Transaction{tx(1, "A", 100, 10), tx(1, "Z", 50, 25)}

	_, _, err := NewService(PolicyFail, nil).Enrich(txs, master)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrReferential))
	assert.Equal(t, "master_data_coverage", models.CheckOf(err))
}

func TestEnrich_MissingRegionIsFatal(t *testing.T) {
	m := []models.Instrument{{ISIN: "C", Name: "Gold", Type: "Commodity", Region: ""}}
	_, _, err := NewService(PolicyDrop, nil).Enrich([]models.Transaction{tx(1, "C", 10, 1)}, m)
	require.Error(t, err)
	de, ok := models.AsDataError(err)
	require.True(t, ok)
	assert.Equal(t, "region_resolved", de.Check)
	assert.Equal(t, []string{"C"}, de.Keys)
}

func TestEnrich_Empty(t *testing.T) {
	got, unmatched, err := NewService(PolicyFail, nil).Enrich(nil, master)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, unmatched)
}

func TestCurrentPortfolio_LastBatch(t *testing.T) {
	holdings := []models.Holding{
		{Transaction: tx(1, "A", 100, 10)},
		{Transaction: tx(3, "A", 100, 10)},
		{Transaction: tx(2, "B", 100, 10)},
		{Transaction: tx(3, "B", 60, 10)},
	}
	got := CurrentPortfolio(holdings)
	require.Len(t, got, 2)
	for _, h := range got {
		assert.Equal(t, 3, h.Index)
	}
	assert.Equal(t, 160.0, TotalExecutionCost(got))
	assert.Nil(t, CurrentPortfolio(nil))
}

func TestSavingsPlanCost(t *testing.T) {
	current := []models.Holding{
		{Transaction: tx(3, "B", 50, 10), TER: 0.5},
		{Transaction: tx(3, "A", 200, 10), TER: 0.2},
		{Transaction: tx(3, "B", 50, 10), TER: 0.5},
	}
	current[0].OrderCost = 1.5

	plan := SavingsPlanCost(current)
	assert.Equal(t, 300.0, plan.Monthly)
	assert.Equal(t, 10.8, plan.YearlyCost)
	assert.Equal(t, 0.3, plan.AverageTER)

	require.Len(t, plan.Positions, 2)
	assert.Equal(t, models.PlanPosition{Name: "A", ISIN: "A", TER: 0.2, Investment: 200, YearlyCost: 4.8}, plan.Positions[0])
	assert.Equal(t, models.PlanPosition{Name: "B", ISIN: "B", TER: 0.5, Investment: 100, OrderCost: 1.5, YearlyCost: 6}, plan.Positions[1])
}

func TestSavingsPlanCost_Empty(t *testing.T) {
	plan := SavingsPlanCost(nil)
	assert.Zero(t, plan.AverageTER)
	assert.Zero(t, plan.Monthly)
	assert.Empty(t, plan.Positions)
}

func TestJoinRegionMap(t *testing.T) {
	profiles := []models.FundProfile{
		{ISIN: "A", Name: "iShares Core MSCI World", Replication: "Physisch (Optimiertes Sampling)", Distribution: "Thesaurierend", TER: 0.2},
		{ISIN: "B", Name: "", Replication: "Synthetisch", Distribution: "Ausschüttend", TER: 0.3},
	}
	regions := []models.RegionMapping{
		{ISIN: "A", Name: "World", Type: "Equity", Region: "World"},
		{ISIN: "B", Name: "EM", Type: "Equity", Region: "Emerging Markets"},
	}

	got := JoinRegionMap(profiles, regions)
	require.Len(t, got, 2)
	assert.Equal(t, "iShares Core MSCI World", got[0].Name)
	assert.Equal(t, models.Physical, got[0].Replication)
	assert.Equal(t, "EM", got[1].Name)
	assert.Equal(t, "Emerging", got[1].Region)
	assert.Equal(t, models.Distributing, got[1].Distribution)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyDrop, p)

	_, err = ParsePolicy("keep")
	assert.Error(t, err)
}
