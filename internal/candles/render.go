package candles

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	colorBull = "#34d399"
	colorBear = "#f87171"

	chartWidthPx   = 1400
	klineHeightPx  = 560
	volumeHeightPx = 200
)

// Render writes an HTML page with a candlestick and volume chart for each of
// symbols that has candles in store.
func Render(w io.Writer, store *Store, symbols []string, interval time.Duration) error {
	if len(symbols) == 0 {
		symbols = store.Symbols()
	}

	page := components.NewPage()
	page.PageTitle = "trade history"
	page.SetLayout(components.PageFlexLayout)

	var rendered int
	for _, symbol := range symbols {
		candles := store.Get(symbol)
		if len(candles) == 0 {
			continue
		}
		xAxis := buildXAxis(candles)
		page.AddCharts(
			buildKline(symbol, interval, xAxis, candles),
			buildVolume(symbol, xAxis, candles),
		)
		rendered++
	}
	if rendered == 0 {
		return fmt.Errorf("no candles to render for %v", symbols)
	}
	return page.Render(w)
}

func buildXAxis(candles []Candle) []string {
	x := make([]string, len(candles))
	for i, c := range candles {
		x[i] = time.UnixMilli(c.Start).UTC().Format("2006-01-02 15:04")
	}
	return x
}

func buildKline(symbol string, interval time.Duration, xAxis []string, candles []Candle) *charts.Kline {
	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", klineHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s %s", symbol, Label(interval)),
			Subtitle: fmt.Sprintf("%s to %s", xAxis[0], xAxis[len(xAxis)-1]),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)

	data := make([]opts.KlineData, 0, len(candles))
	for _, c := range candles {
		data = append(data, opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}})
	}
	kline.SetXAxis(xAxis).AddSeries(symbol, data)
	return kline
}

func buildVolume(symbol string, xAxis []string, candles []Candle) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", volumeHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s volume", symbol)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	vols := make([]opts.BarData, len(candles))
	for i, c := range candles {
		color := colorBear
		if c.Close >= c.Open {
			color = colorBull
		}
		vols[i] = opts.BarData{
			Value:     c.Volume,
			ItemStyle: &opts.ItemStyle{Color: color, Opacity: opts.Float(0.6)},
		}
	}
	bar.SetXAxis(xAxis).AddSeries("Volume", vols)
	return bar
}
