// Package chart 遥测时间轴图表
//
// 维护信号曲线、快照标记、缩放窗口与绘图区几何信息。缩放窗口以全量时间范围的百分比表示，
// 只有用户手势（滚轮、拖拽平移、重置）会发布 ZoomRangeChanged，程序设置不发布。
// 非并发安全，由所属会话的事件循环驱动。
package chart

import (
	"math"
	"time"

	"github.com/ridecare/ridecare/internal/core/bus"
	"github.com/ridecare/ridecare/internal/core/signal"
	"github.com/ridecare/ridecare/internal/core/snapshot"
	"github.com/ridecare/ridecare/pkg/lttb"
)

// MinZoomWidth 缩放窗口最小宽度（百分比）
const MinZoomWidth = 0.01

// LegendHeight 图例条高度，点击落在其中不触发跳转
const LegendHeight = 30

// ZoomRange 缩放窗口 [Start, End]，0 <= Start < End <= 100
type ZoomRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Width End - Start
func (z ZoomRange) Width() float64 {
	return z.End - z.Start
}

// Contains 闭区间判断
func (z ZoomRange) Contains(p float64) bool {
	return p >= z.Start && p <= z.End
}

// FullRange 未缩放
var FullRange = ZoomRange{Start: 0, End: 100}

// Geometry 画布与绘图区，单位像素
type Geometry struct {
	CanvasWidth float64 `json:"canvas_width"`
	PlotLeft    float64 `json:"plot_left"` // 左侧图例/坐标轴宽度
	PlotWidth   float64 `json:"plot_width"`
}

// DefaultGeometry 没有客户端上报时使用
var DefaultGeometry = Geometry{CanvasWidth: 1000, PlotLeft: 0, PlotWidth: 1000}

// Series 一条可绘制的曲线
type Series struct {
	Name      string              `json:"name"`
	Dataset   string              `json:"dataset"`
	Color     string              `json:"color"`
	Snapshot  bool                `json:"snapshot"`
	Points    []signal.Point      `json:"points"`
	Snapshots []snapshot.Snapshot `json:"snapshots,omitempty"`
}

// Timeline 时间轴图表
type Timeline struct {
	root      *signal.Group
	snapshots []snapshot.Snapshot

	series     []Series
	snapSeries Series

	bounds    signal.Bounds
	hasBounds bool

	zoom   ZoomRange
	geo    Geometry
	picker ColorPicker

	zoomChanged     bus.Topic[ZoomRange]
	durationChanged bus.Topic[float64]
}

// NewTimeline 空图表
func NewTimeline() *Timeline {
	return &Timeline{
		root:       signal.NewGroup(""),
		zoom:       FullRange,
		geo:        DefaultGeometry,
		snapSeries: Series{Name: "Snapshots", Color: SnapshotColor, Snapshot: true},
	}
}

// ZoomRangeChanged 用户手势结束后发布
func (t *Timeline) ZoomRangeChanged() *bus.Topic[ZoomRange] {
	return &t.zoomChanged
}

// TotalDurationChanged 信号变化后发布总时长（秒）
func (t *Timeline) TotalDurationChanged() *bus.Topic[float64] {
	return &t.durationChanged
}

// Signals 当前信号树
func (t *Timeline) Signals() *signal.Group {
	return t.root
}

// Snapshots 当前快照列表
func (t *Timeline) Snapshots() []snapshot.Snapshot {
	return t.snapshots
}

// SetSignals 重建曲线、范围并发布总时长
// 停用的信号同样消耗颜色，保证勾选切换时其它曲线颜色不变
func (t *Timeline) SetSignals(root *signal.Group) {
	if root == nil {
		root = signal.NewGroup("")
	}
	t.root = root
	t.picker.Reset()
	t.series = t.series[:0]
	root.Walk(func(top string, s *signal.Signal) {
		color := t.picker.Next(CategoryOf(top))
		if !s.Enabled {
			return
		}
		t.series = append(t.series, Series{
			Name:    s.Name,
			Dataset: top,
			Color:   color,
			Points:  s.Values,
		})
	})

	t.bounds, t.hasBounds = root.Bounds()
	t.zoom = normalize(t.zoom)
	t.durationChanged.Publish(t.TotalDuration())
}

// RefreshSignals 信号勾选变化后重建
func (t *Timeline) RefreshSignals() {
	t.SetSignals(t.root)
}

// SetSnapshots 重建快照曲线，只包含启用的快照
func (t *Timeline) SetSnapshots(list []snapshot.Snapshot) {
	t.snapshots = list
	pts := make([]signal.Point, 0, len(list))
	enabled := make([]snapshot.Snapshot, 0, len(list))
	for _, s := range list {
		if !s.Enabled {
			continue
		}
		enabled = append(enabled, s)
		pts = append(pts, signal.Point{Timestamp: s.VideoTime})
	}
	t.snapSeries.Points = pts
	t.snapSeries.Snapshots = enabled
}

// SetSnapshotsEnabled 统一切换快照显示
func (t *Timeline) SetSnapshotsEnabled(enabled bool) {
	snapshot.SetEnabled(t.snapshots, enabled)
	t.SetSnapshots(t.snapshots)
}

// Series 全部曲线，快照曲线总在最后
func (t *Timeline) Series() []Series {
	out := make([]Series, 0, len(t.series)+1)
	out = append(out, t.series...)
	if len(t.snapSeries.Points) > 0 {
		out = append(out, t.snapSeries)
	}
	return out
}

// Bounds 信号时间范围
func (t *Timeline) Bounds() (signal.Bounds, bool) {
	return t.bounds, t.hasBounds
}

// TotalDuration 总时长（秒），无数据为 0
func (t *Timeline) TotalDuration() float64 {
	if !t.hasBounds {
		return 0
	}
	return t.bounds.Duration().Seconds()
}

// ZoomRange 当前窗口
func (t *Timeline) ZoomRange() ZoomRange {
	return t.zoom
}

// SetZoomRange 程序设置窗口，不发布事件
func (t *Timeline) SetZoomRange(r ZoomRange) {
	t.zoom = normalize(r)
}

// Zoom 以 center 为不动点缩放，factor > 1 放大
func (t *Timeline) Zoom(factor, center float64) {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return
	}
	center = clamp(center, 0, 100)
	z := t.zoom
	w := z.Width() / factor
	start := center - (center-z.Start)/factor
	t.applyGesture(ZoomRange{Start: start, End: start + w})
}

// ZoomAtX 滚轮缩放，x 为画布像素坐标
func (t *Timeline) ZoomAtX(x, factor float64) {
	t.Zoom(factor, t.PercentAtX(x))
}

// Pan 平移窗口，保持宽度
func (t *Timeline) Pan(delta float64) {
	if math.IsNaN(delta) {
		return
	}
	z := t.zoom
	t.applyGesture(ZoomRange{Start: z.Start + delta, End: z.End + delta})
}

// PanPixels 拖拽平移，向右拖动查看更早的数据
func (t *Timeline) PanPixels(dx float64) {
	if t.geo.PlotWidth <= 0 {
		return
	}
	t.Pan(-dx / t.geo.PlotWidth * t.zoom.Width())
}

// ResetZoom 恢复全量窗口
func (t *Timeline) ResetZoom() {
	t.applyGesture(FullRange)
}

func (t *Timeline) applyGesture(r ZoomRange) {
	t.zoom = normalize(r)
	t.zoomChanged.Publish(t.zoom)
}

// SetGeometry 客户端上报的画布尺寸，非法值回退默认
func (t *Timeline) SetGeometry(g Geometry) {
	if g.CanvasWidth <= 0 || g.PlotWidth <= 0 || g.PlotLeft < 0 {
		g = DefaultGeometry
	}
	t.geo = g
}

// Geometry 当前几何信息
func (t *Timeline) Geometry() Geometry {
	return t.geo
}

// LegendWidthPercent 绘图区左侧宽度占画布百分比
func (t *Timeline) LegendWidthPercent() float64 {
	return t.geo.PlotLeft / t.geo.CanvasWidth * 100
}

// PlotWidthPercent 绘图区宽度占画布百分比
func (t *Timeline) PlotWidthPercent() float64 {
	return t.geo.PlotWidth / t.geo.CanvasWidth * 100
}

// PercentAtX 画布 x 坐标换算为全量范围百分比
func (t *Timeline) PercentAtX(x float64) float64 {
	rel := clamp((x-t.geo.PlotLeft)/t.geo.PlotWidth, 0, 1)
	return t.zoom.Start + rel*t.zoom.Width()
}

// XOfPercent PercentAtX 的逆运算，结果可能落在绘图区外
func (t *Timeline) XOfPercent(p float64) float64 {
	return t.geo.PlotLeft + (p-t.zoom.Start)/t.zoom.Width()*t.geo.PlotWidth
}

// ScaleToTimestamp 百分比换算为时间
func (t *Timeline) ScaleToTimestamp(p float64) time.Time {
	if !t.hasBounds {
		return signal.Baseline
	}
	d := float64(t.bounds.Duration()) * p / 100
	return t.bounds.Min.Add(time.Duration(d))
}

// ScaleToPercentage 时间换算为百分比，不截断
func (t *Timeline) ScaleToPercentage(ts time.Time) float64 {
	if !t.hasBounds || t.bounds.Duration() <= 0 {
		return 0
	}
	return float64(ts.Sub(t.bounds.Min)) / float64(t.bounds.Duration()) * 100
}

// Window 当前窗口对应的时间区间
func (t *Timeline) Window() (time.Time, time.Time) {
	return t.ScaleToTimestamp(t.zoom.Start), t.ScaleToTimestamp(t.zoom.End)
}

// Render 截取窗口内数据并按像素宽度降采样，不修改原始数据
// widthPx <= 0 时使用绘图区宽度
func (t *Timeline) Render(widthPx int) []Series {
	if widthPx <= 0 {
		widthPx = int(t.geo.PlotWidth)
	}
	lo, hi := t.Window()

	out := make([]Series, 0, len(t.series)+1)
	for _, s := range t.series {
		r := s
		r.Points = decimate(window(s.Points, lo, hi), widthPx)
		out = append(out, r)
	}
	if len(t.snapSeries.Points) > 0 {
		r := t.snapSeries
		r.Points = window(r.Points, lo, hi)
		r.Snapshots = nil
		for _, s := range t.snapSeries.Snapshots {
			if !s.VideoTime.Before(lo) && !s.VideoTime.After(hi) {
				r.Snapshots = append(r.Snapshots, s)
			}
		}
		out = append(out, r)
	}
	return out
}

// LegendItem 图例项
type LegendItem struct {
	Name    string `json:"name"`
	Dataset string `json:"dataset"`
	Color   string `json:"color"`
}

// Legend 只包含信号曲线，不含快照
func (t *Timeline) Legend() []LegendItem {
	out := make([]LegendItem, 0, len(t.series))
	for _, s := range t.series {
		out = append(out, LegendItem{Name: s.Name, Dataset: s.Dataset, Color: s.Color})
	}
	return out
}

// SnapshotAtX 命中测试，返回半径内最近的快照
func (t *Timeline) SnapshotAtX(x, radius float64) (snapshot.Snapshot, bool) {
	var best snapshot.Snapshot
	bestDist := math.Inf(1)
	for _, s := range t.snapSeries.Snapshots {
		p := t.ScaleToPercentage(s.VideoTime)
		if !t.zoom.Contains(p) {
			continue
		}
		if d := math.Abs(t.XOfPercent(p) - x); d <= radius && d < bestDist {
			best, bestDist = s, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

func window(pts []signal.Point, lo, hi time.Time) []signal.Point {
	out := make([]signal.Point, 0, len(pts))
	for _, p := range pts {
		if p.Timestamp.Before(lo) || p.Timestamp.After(hi) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func decimate(pts []signal.Point, threshold int) []signal.Point {
	if threshold < 3 || len(pts) <= threshold {
		return pts
	}
	in := make([]lttb.Point, len(pts))
	for i, p := range pts {
		in[i] = lttb.Point{X: float64(p.Timestamp.UnixNano()), Y: p.Value}
	}
	idx := lttb.Downsample(in, threshold)
	out := make([]signal.Point, len(idx))
	for i, j := range idx {
		out[i] = pts[j]
	}
	return out
}

func normalize(r ZoomRange) ZoomRange {
	if math.IsNaN(r.Start) || math.IsNaN(r.End) {
		return FullRange
	}
	if r.Start > r.End {
		r.Start, r.End = r.End, r.Start
	}
	w := clamp(r.End-r.Start, MinZoomWidth, 100)
	start := clamp(r.Start, 0, 100-w)
	return ZoomRange{Start: start, End: math.Min(100, start+w)}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
