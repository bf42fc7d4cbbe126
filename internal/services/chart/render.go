// Package chart renders dashboard views as PNG images.
package chart

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/models"
)

const (
	width  = 900
	height = 400
)

var palette = []drawing.Color{
	drawing.ColorFromHex("2563eb"), // blue-600
	drawing.ColorFromHex("16a34a"), // green-600
	drawing.ColorFromHex("dc2626"), // red-600
	drawing.ColorFromHex("ca8a04"), // yellow-600
	drawing.ColorFromHex("9333ea"), // purple-600
	drawing.ColorFromHex("0891b2"), // cyan-600
	drawing.ColorFromHex("ea580c"), // orange-600
	drawing.ColorFromHex("4b5563"), // gray-600
}

func color(i int) drawing.Color { return palette[i%len(palette)] }

// NoDataLabel is drawn in place of a chart whose timeframe holds no rows.
const NoDataLabel = "No data"

// renderNoData renders an empty frame carrying only the title and
// NoDataLabel.
func renderNoData(title string, w, h int) ([]byte, error) {
	graph := chart.Chart{
		Title:  title,
		Width:  w,
		Height: h,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		XAxis: chart.XAxis{Style: chart.Hidden(), Range: &chart.ContinuousRange{Min: 0, Max: 1}},
		YAxis: chart.YAxis{Style: chart.Hidden(), Range: &chart.ContinuousRange{Min: 0, Max: 1}},
		Series: []chart.Series{chart.AnnotationSeries{
			Annotations: []chart.Value2{{XValue: 0.5, YValue: 0.5, Label: NoDataLabel}},
		}},
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderBreakdown renders one percentage breakdown as a pie chart. Slices
// are labelled with group and percentage. A breakdown without positive
// groups renders as a no-data frame.
func RenderBreakdown(b models.Breakdown) ([]byte, error) {
	title := fmt.Sprintf("%s by %s", b.ValueColumn, b.GroupColumn)
	values := make([]chart.Value, 0, len(b.Rows))
	for i, r := range b.Rows {
		if r.Sum <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.1f%%", r.Group, r.Percentage),
			Value: r.Sum,
			Style: chart.Style{FillColor: color(i), StrokeColor: drawing.ColorWhite},
		})
	}
	if len(values) == 0 {
		return renderNoData(title, height, height)
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  height,
		Height: height,
		Values: values,
	}
	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderTimeSeries renders the cumulative value of each named instrument.
// The Overall Portfolio series, if named, also gets its invested amount as
// a dashed line. Single-month series are drawn as dots; names without
// points are left out, and nothing left renders as a no-data frame.
func RenderTimeSeries(points []models.TimeSeriesPoint, names []string, currency string) ([]byte, error) {
	const title = "Portfolio Value"
	var series []chart.Series
	var first, last time.Time
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, name := range names {
		var xs []time.Time
		var values, invested []float64
		for _, p := range points {
			if p.Name != name {
				continue
			}
			xs = append(xs, p.Date.Time())
			values = append(values, p.Value)
			invested = append(invested, p.Investment)
		}
		if len(xs) == 0 {
			continue
		}
		if first.IsZero() || xs[0].Before(first) {
			first = xs[0]
		}
		if xs[len(xs)-1].After(last) {
			last = xs[len(xs)-1]
		}
		style := chart.Style{StrokeColor: color(i), StrokeWidth: 2.5}
		if len(xs) == 1 {
			style.DotColor = color(i)
			style.DotWidth = 5
		}
		series = append(series, chart.TimeSeries{
			Name:    name,
			Style:   style,
			XValues: xs,
			YValues: values,
		})
		lo, hi = bounds(lo, hi, values)
		if name == models.OverallPortfolio {
			series = append(series, chart.TimeSeries{
				Name: name + " invested",
				Style: chart.Style{
					StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
					StrokeWidth:     1.5,
					StrokeDashArray: []float64{5.0, 3.0},
					DotColor:        drawing.ColorFromHex("9ca3af"),
					DotWidth:        style.DotWidth,
				},
				XValues: xs,
				YValues: invested,
			})
			lo, hi = bounds(lo, hi, invested)
		}
	}
	if len(series) == 0 {
		return renderNoData(title, width, height)
	}

	// Pad degenerate spans; go-chart rejects a zero x span.
	var xRange, yRange chart.Range
	if !last.After(first) {
		xRange = &chart.ContinuousRange{
			Min: chart.TimeToFloat64(first.AddDate(0, -1, 0)),
			Max: chart.TimeToFloat64(first.AddDate(0, 1, 0)),
		}
	}
	if hi == lo {
		yRange = &chart.ContinuousRange{Min: math.Min(0, lo), Max: math.Max(0, hi)}
		if hi == 0 {
			yRange = &chart.ContinuousRange{Min: 0, Max: 1}
		}
	}

	graph := chart.Chart{
		Title:  title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Range:        xRange,
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis:  chart.YAxis{Range: yRange, ValueFormatter: moneyFormatter(currency)},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderMonthly renders a single monthly series as bars of absolute amounts,
// so expenses and income share one orientation.
func RenderMonthly(title string, series []models.MonthAmount, currency string) ([]byte, error) {
	if len(series) == 0 {
		return renderNoData(title, width, height)
	}
	bars := make([]chart.Value, len(series))
	top := 0.0
	for i, m := range series {
		v := math.Abs(m.Amount)
		top = math.Max(top, v)
		bars[i] = chart.Value{
			Label: m.Month.MonthKey(),
			Value: v,
			Style: chart.Style{FillColor: color(0), StrokeColor: color(0)},
		}
	}
	if top == 0 {
		top = 1
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    width,
		Height:   height,
		BarWidth: barWidth(len(bars)),
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: moneyFormatter(currency),
		},
		Bars: bars,
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderCategorized renders the category shares of each month as stacked
// bars of absolute amounts. Months without any amount are skipped.
func RenderCategorized(title string, table models.CategorizedTable) ([]byte, error) {
	bars := make([]chart.StackedBar, 0, len(table.Months))
	for _, m := range table.Months {
		bar := chart.StackedBar{Name: m.Month.MonthKey(), Width: barWidth(len(table.Months))}
		for i, c := range table.Categories {
			v := math.Abs(m.Amounts[c])
			if v == 0 {
				continue
			}
			bar.Values = append(bar.Values, chart.Value{
				Label: c,
				Value: v,
				Style: chart.Style{FillColor: color(i), StrokeColor: color(i)},
			})
		}
		if len(bar.Values) == 0 {
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return renderNoData(title, width, height)
	}

	graph := chart.StackedBarChart{
		Title:  title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Bars: bars,
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// bounds widens [lo, hi] to cover values.
func bounds(lo, hi float64, values []float64) (float64, float64) {
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func barWidth(n int) int {
	w := (width - 100) / (n + 1)
	if w > 60 {
		return 60
	}
	if w < 4 {
		return 4
	}
	return w
}

func moneyFormatter(currency string) chart.ValueFormatter {
	return func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return common.FormatMoney(math.Round(f), currency)
		}
		return ""
	}
}
