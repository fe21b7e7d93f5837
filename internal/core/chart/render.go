package chart

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNothingToRender 窗口内没有可绘制的点
var ErrNothingToRender = errors.New("nothing to render in the current window")

// WriteHTML 输出可交互的 echarts 页面，dataZoom 滑块定位到当前窗口
// 浏览器端自行缩放，因此这里输出全量数据，仅按宽度降采样
func (t *Timeline) WriteHTML(w io.Writer, title string) error {
	line := charts.NewLine()
	legend := make([]string, 0, len(t.series))
	for _, s := range t.series {
		legend = append(legend, s.Name)
	}
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Scale: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Data: legend}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:  "slider",
			Start: float32(t.zoom.Start),
			End:   float32(t.zoom.End),
		}),
	)

	threshold := int(t.geo.PlotWidth)
	for _, s := range t.series {
		pts := decimate(s.Points, threshold)
		items := make([]opts.LineData, 0, len(pts))
		for _, p := range pts {
			items = append(items, opts.LineData{Value: []interface{}{p.Timestamp.UnixMilli(), p.Value}})
		}
		line.AddSeries(s.Name, items,
			charts.WithLineStyleOpts(opts.LineStyle{Width: 2, Color: s.Color}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
		)
	}

	// 快照最后添加，绘制在最上层
	if len(t.snapSeries.Snapshots) > 0 {
		scatter := charts.NewScatter()
		items := make([]opts.ScatterData, 0, len(t.snapSeries.Snapshots))
		for _, s := range t.snapSeries.Snapshots {
			items = append(items, opts.ScatterData{
				Name:       s.ID(),
				Value:      []interface{}{s.VideoTime.UnixMilli(), 0},
				Symbol:     "triangle",
				SymbolSize: 14,
			})
		}
		scatter.AddSeries(t.snapSeries.Name, items, charts.WithItemStyleOpts(opts.ItemStyle{Color: SnapshotColor}))
		line.Overlap(scatter)
	}
	return line.Render(w)
}

// WritePNG 输出当前窗口的静态图片
func (t *Timeline) WritePNG(w io.Writer, width, height int) error {
	if width <= 0 {
		width = int(t.geo.CanvasWidth)
	}
	if height <= 0 {
		height = 320
	}
	lo, hi := t.Window()
	series, legend := t.pngSeries(width)
	if len(series) == 0 || !hi.After(lo) {
		return ErrNothingToRender
	}

	ch := gochart.Chart{
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 14, Left: 16, Right: 12, Bottom: 14}},
		XAxis: gochart.XAxis{
			Range:          &gochart.ContinuousRange{Min: gochart.TimeToFloat64(lo), Max: gochart.TimeToFloat64(hi)},
			ValueFormatter: elapsedFormatter,
		},
		Series: series,
	}
	// 图例只列信号，不含快照
	legendChart := ch
	legendChart.Series = legend
	ch.Elements = []gochart.Renderable{gochart.Legend(&legendChart)}
	return ch.Render(gochart.PNG, w)
}

// pngSeries 返回全部绘制序列，以及其中进入图例的序列
func (t *Timeline) pngSeries(width int) (series, legend []gochart.Series) {
	series = make([]gochart.Series, 0, len(t.series)+1)
	legend = make([]gochart.Series, 0, len(t.series))
	for _, s := range t.Render(width) {
		if len(s.Points) == 0 {
			continue
		}
		xs := make([]time.Time, 0, len(s.Points)+1)
		ys := make([]float64, 0, len(s.Points)+1)
		for _, p := range s.Points {
			xs = append(xs, p.Timestamp)
			ys = append(ys, p.Value)
		}
		// 单点序列补一个点，避免坐标范围为零
		if len(xs) == 1 {
			xs = append(xs, xs[0].Add(time.Millisecond))
			ys = append(ys, ys[0])
		}
		color := hexColor(s.Color)
		style := gochart.Style{StrokeColor: color, StrokeWidth: 1.5}
		if s.Snapshot {
			style = gochart.Style{StrokeColor: drawing.ColorTransparent, StrokeWidth: 0, DotWidth: 4, DotColor: color}
		}
		ts := gochart.TimeSeries{Name: s.Name, XValues: xs, YValues: ys, Style: style}
		series = append(series, ts)
		if !s.Snapshot {
			legend = append(legend, ts)
		}
	}
	return series, legend
}

func elapsedFormatter(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return FormatTimestamp(time.Unix(0, int64(x)).UTC())
	case time.Time:
		return FormatTimestamp(x)
	default:
		return ""
	}
}

func hexColor(s string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
}
