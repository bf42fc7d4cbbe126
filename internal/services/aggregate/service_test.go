package aggregate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/finhub/internal/models"
)

func valued(name, region string, distribution models.Distribution, value float64) models.ValuedHolding {
	return models.ValuedHolding{
		Holding: models.Holding{
			Transaction:  models.Transaction{Name: name, ISIN: "ISIN-" + name, Date: models.NewDate(2021, time.January, 1)},
			Region:       region,
			Distribution: distribution,
		},
		Value: value,
	}
}

func TestPercentageBreakdown_TwoGroups(t *testing.T) {
	rows := Records([]models.ValuedHolding{
		valued("A", "World", models.Accumulating, 200),
		valued("B", "World", models.Accumulating, 100),
		valued("C", "Emerging", models.Distributing, 100),
	})

	got, err := PercentageBreakdown(rows,
		[]string{models.ColRegion, models.ColDistribution},
		[]string{models.ColValue, models.ColValue},
		[]string{models.AggSum, models.AggSum})
	require.NoError(t, err)
	require.Len(t, got, 2)

	region := got[0]
	assert.Equal(t, models.ColRegion, region.GroupColumn)
	assert.Equal(t, []models.BreakdownRow{
		{Group: "Emerging", Sum: 100, Percentage: 25},
		{Group: "World", Sum: 300, Percentage: 75},
	}, region.Rows)

	assert.Equal(t, "Accumulating", got[1].Rows[0].Group)
	assert.Equal(t, 75.0, got[1].Rows[0].Percentage)
}

func TestPercentageBreakdown_SumsToHundred(t *testing.T) {
	rows := Records([]models.ValuedHolding{
		valued("A", "World", "", 1),
		valued("B", "Europe", "", 1),
		valued("C", "Emerging", "", 1),
	})
	got, err := PercentageBreakdown(rows, []string{models.ColRegion}, []string{models.ColValue}, []string{models.AggSum})
	require.NoError(t, err)

	var total float64
	for _, r := range got[0].Rows {
		assert.GreaterOrEqual(t, r.Percentage, 0.0)
		assert.Equal(t, 33.3, r.Percentage)
		total += r.Percentage
	}
	assert.InDelta(t, 100, total, 0.1*float64(len(got[0].Rows)))
}

func TestPercentageBreakdown_Arity(t *testing.T) {
	_, err := PercentageBreakdown(nil, []string{models.ColRegion}, nil, []string{models.AggSum})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSchema))
	assert.Equal(t, "breakdown_arity", models.CheckOf(err))
}

func TestPercentageBreakdown_UnsupportedAggregation(t *testing.T) {
	_, err := PercentageBreakdown(nil, []string{models.ColRegion}, []string{models.ColValue}, []string{"mean"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnsupported))
}

func TestPercentageBreakdown_UnknownColumn(t *testing.T) {
	rows := Records([]models.ValuedHolding{valued("A", "World", "", 1)})
	_, err := PercentageBreakdown(rows, []string{"Sector"}, []string{models.ColValue}, []string{models.AggSum})
	require.Error(t, err)
	assert.Equal(t, "unknown_column", models.CheckOf(err))

	_, err = PercentageBreakdown(rows, []string{models.ColRegion}, []string{models.ColName}, []string{models.AggSum})
	assert.Equal(t, "numeric_value", models.CheckOf(err))
}

func TestPercentageBreakdown_ZeroTotalAndEmpty(t *testing.T) {
	rows := Records([]models.ValuedHolding{valued("A", "World", "", 0), valued("B", "Europe", "", 0)})
	got, err := PercentageBreakdown(rows, []string{models.ColRegion}, []string{models.ColValue}, []string{models.AggSum})
	require.NoError(t, err)
	for _, r := range got[0].Rows {
		assert.Equal(t, 0.0, r.Percentage)
	}

	got, err = PercentageBreakdown(nil, []string{models.ColRegion}, []string{models.ColValue}, []string{models.AggSum})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Rows)
}

func TestFilterByDate(t *testing.T) {
	today := models.NewDate(2021, time.June, 15)
	points := []models.MonthAmount{
		{Month: models.NewDate(2020, time.December, 1), Amount: 1},
		{Month: models.NewDate(2021, time.March, 15), Amount: 2},
		{Month: models.NewDate(2021, time.April, 1), Amount: 3},
		{Month: models.NewDate(2021, time.June, 1), Amount: 4},
	}

	assert.Len(t, FilterByDate(points, AllTime, today), 4)

	got := FilterByDate(points, 3, today)
	require.Len(t, got, 3, "cut-off is inclusive")
	assert.Equal(t, 2.0, got[0].Amount)

	assert.Len(t, FilterByDate(points, 1, today), 1)
	assert.Empty(t, FilterByDate(points, 0, today))
}

func TestFilterByInstrument(t *testing.T) {
	points := []models.TimeSeriesPoint{{Name: "X"}, {Name: "Y"}, {Name: models.OverallPortfolio}, {Name: "X"}}
	assert.Len(t, FilterByInstrument(points, "X"), 2)
	assert.Len(t, FilterByInstrument(points, models.OverallPortfolio), 1)
	assert.Empty(t, FilterByInstrument(points, "x"))
}

type regionOnly struct{ region string }

func (r regionOnly) Field(name string) (any, bool) {
	if name == models.ColRegion {
		return r.region, true
	}
	return nil, false
}

func TestFilterRecordsByName(t *testing.T) {
	rows := Records([]models.ValuedHolding{valued("A", "World", "", 1), valued("B", "World", "", 1)})
	got, err := FilterRecordsByName(rows, "B")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = FilterRecordsByName([]models.Record{regionOnly{"World"}}, "B")
	require.Error(t, err)
	assert.Equal(t, "name_column", models.CheckOf(err))
}
