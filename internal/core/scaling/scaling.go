// Package scaling 图表时间轴与视频时间轴之间的百分比换算
//
// 遥测跨度通常长于视频，video = chart * factor，factor = 图表时长 / 视频时长。
package scaling

import (
	"math"

	"github.com/ridecare/ridecare/internal/core/bus"
)

// Source 本次变更的发起方
type Source int

const (
	SourceChart Source = iota + 1 // 图表点击等，视频需要跳转
	SourceVideo                   // 视频自身播放进度
)

// Change 每次百分比变更发布一次
type Change struct {
	Source Source  `json:"source"`
	Chart  float64 `json:"chart"`
	Video  float64 `json:"video"`
}

// Bridge 图表/视频百分比换算
type Bridge struct {
	factor float64
	chart  float64

	changes bus.Topic[Change]
}

// NewBridge factor 为 1 的空状态
func NewBridge() *Bridge {
	return &Bridge{factor: 1}
}

// Changes 百分比变更事件
func (b *Bridge) Changes() *bus.Topic[Change] {
	return &b.changes
}

// SetScalingFactor 任一时长非正或非有限值时 factor 取 1
// 当前图表百分比按新的定义域重新截断，不发布事件
func (b *Bridge) SetScalingFactor(chartSeconds, videoSeconds float64) {
	if !positive(chartSeconds) || !positive(videoSeconds) {
		b.factor = 1
	} else {
		b.factor = chartSeconds / videoSeconds
	}
	b.chart = clamp(b.chart, 0, b.maxChart())
}

// Factor chart -> video 系数
func (b *Bridge) Factor() float64 {
	return b.factor
}

// VideoToChartRatio 视频时长占图表时长的比例
func (b *Bridge) VideoToChartRatio() float64 {
	return 1 / b.factor
}

// ChartPercentage [0, min(100, 100/factor)]
func (b *Bridge) ChartPercentage() float64 {
	return b.chart
}

// VideoPercentage [0, 100]
func (b *Bridge) VideoPercentage() float64 {
	return clamp(b.chart*b.factor, 0, 100)
}

// SetChartPercentage 由图表侧发起
func (b *Bridge) SetChartPercentage(p float64) {
	b.chart = clamp(p, 0, b.maxChart())
	b.publish(SourceChart)
}

// SetVideoPercentage 由视频播放进度发起
func (b *Bridge) SetVideoPercentage(p float64) {
	p = clamp(p, 0, 100)
	b.chart = clamp(p/b.factor, 0, b.maxChart())
	b.publish(SourceVideo)
}

func (b *Bridge) publish(src Source) {
	b.changes.Publish(Change{Source: src, Chart: b.chart, Video: b.VideoPercentage()})
}

func (b *Bridge) maxChart() float64 {
	return math.Min(100, 100/b.factor)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
