package chart

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/finhub/internal/models"
)

var pngMagic = []byte("\x89PNG")

func month(m time.Month) models.Date { return models.NewDate(2021, m, 1) }

func TestRenderBreakdown(t *testing.T) {
	png, err := RenderBreakdown(models.Breakdown{
		GroupColumn: models.ColRegion,
		ValueColumn: models.ColValue,
		Rows: []models.BreakdownRow{
			{Group: "Emerging", Sum: 125, Percentage: 31.6},
			{Group: "World", Sum: 270, Percentage: 68.4},
		},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

}

func TestRenderBreakdown_NoPositiveGroups(t *testing.T) {
	for _, b := range []models.Breakdown{
		{GroupColumn: models.ColRegion, ValueColumn: models.ColValue},
		{GroupColumn: models.ColRegion, ValueColumn: models.ColValue, Rows: []models.BreakdownRow{{Group: "World"}}},
	} {
		png, err := RenderBreakdown(b)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(png, pngMagic))
	}
}

func TestRenderTimeSeries(t *testing.T) {
	var points []models.TimeSeriesPoint
	for i, m := range []time.Month{time.January, time.February, time.March} {
		v := float64(100 * (i + 1))
		points = append(points,
			models.TimeSeriesPoint{Date: month(m), Name: "World", Investment: v, Value: v * 1.1},
			models.TimeSeriesPoint{Date: month(m), Name: models.OverallPortfolio, Investment: v, Value: v * 1.1},
		)
	}

	png, err := RenderTimeSeries(points, []string{"World", models.OverallPortfolio}, "EUR")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

}

func TestRenderTimeSeries_SparseInput(t *testing.T) {
	march := []models.TimeSeriesPoint{
		{Date: month(time.March), Name: "World", Investment: 300, Value: 330},
		{Date: month(time.March), Name: models.OverallPortfolio, Investment: 300, Value: 330},
	}
	tests := []struct {
		name   string
		points []models.TimeSeriesPoint
		names  []string
	}{
		{"single month", march, []string{"World", models.OverallPortfolio}},
		{"single month flat at zero", []models.TimeSeriesPoint{{Date: month(time.March), Name: "World"}}, []string{"World"}},
		{"no points", nil, []string{models.OverallPortfolio}},
		{"no names", march, nil},
		{"name without points", march, []string{"EM"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			png, err := RenderTimeSeries(tt.points, tt.names, "EUR")
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(png, pngMagic))
		})
	}
}

func TestRenderMonthly(t *testing.T) {
	png, err := RenderMonthly("groceries", []models.MonthAmount{
		{Month: month(time.January), Amount: -50},
		{Month: month(time.February), Amount: -70},
	}, "EUR")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	png, err = RenderMonthly("zero", []models.MonthAmount{{Month: month(time.January)}}, "EUR")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	png, err = RenderMonthly("empty", nil, "EUR")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestRenderCategorized(t *testing.T) {
	table := models.CategorizedTable{
		Categories: []string{"home", "food_healthy"},
		Months: []models.CategorizedMonth{
			{Month: month(time.January), Amounts: map[string]float64{"home": -800, "food_healthy": -50}},
			{Month: month(time.February), Amounts: map[string]float64{"home": 0, "food_healthy": 0}},
			{Month: month(time.March), Amounts: map[string]float64{"home": -800, "food_healthy": -70}},
		},
	}
	png, err := RenderCategorized("Expenses", table)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	png, err = RenderCategorized("Expenses", models.CategorizedTable{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}
