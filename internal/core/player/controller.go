// Package player 视频播放与时间轴同步控制
//
// Controller 是视频、图表、百分比换算与标注之间的中枢：
// 视频进度经 scaling.Bridge 换算到图表播放头，图表点击反向驱动视频跳转，
// 倒放由周期任务逐帧回退。所有方法必须在同一协程中调用。
package player

import (
	"errors"
	"math"
	"time"

	"github.com/ridecare/ridecare/internal/core/bus"
	"github.com/ridecare/ridecare/internal/core/chart"
	"github.com/ridecare/ridecare/internal/core/label"
	"github.com/ridecare/ridecare/internal/core/scaling"
	"github.com/ridecare/ridecare/internal/core/snapshot"
)

const (
	DefaultFPS          = 15
	DefaultDragThrottle = 25 * time.Millisecond
	DefaultMarkerWidth  = 2
	SnapshotHitRadius   = 6
)

var ErrInvalidRate = errors.New("playback rate must be a positive number")

// PlayState 播放状态
type PlayState int

const (
	Paused PlayState = iota
	PlayingForward
	PlayingReverse
)

func (s PlayState) String() string {
	switch s {
	case PlayingForward:
		return "forward"
	case PlayingReverse:
		return "reverse"
	default:
		return "paused"
	}
}

// MarshalText 输出 paused/forward/reverse
func (s PlayState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Playhead 图表上的播放头，Left 为画布百分比
type Playhead struct {
	Left   float64 `json:"left"`
	Hidden bool    `json:"hidden"`
}

// Options 控制器参数，零值字段使用默认值
type Options struct {
	FPS          float64
	Scheduler    Scheduler
	Now          func() time.Time
	DragThrottle time.Duration
	MarkerWidth  float64 // 播放头宽度，像素
}

// Controller 播放控制器
type Controller struct {
	media  Media
	chart  *chart.Timeline
	bridge *scaling.Bridge
	labels *label.Store
	sched  Scheduler
	now    func() time.Time

	fps          float64
	rate         float64
	markerWidth  float64
	dragThrottle time.Duration

	state   PlayState
	reverse Task
	drag    *Drag

	zoom     chart.ZoomRange
	maxStart float64
	playhead Playhead

	currentTime    float64
	currentFrame   float64
	totalTime      float64
	chartTotalTime float64

	frameChanged    bus.Topic[float64]
	stateChanged    bus.Topic[PlayState]
	playheadChanged bus.Topic[Playhead]

	unsubs []func()
}

var _ MediaEvents = (*Controller)(nil)

// NewController 订阅图表与换算事件，调用方负责把 media 的回调接到控制器
func NewController(media Media, tl *chart.Timeline, labels *label.Store, opts Options) *Controller {
	if !(opts.FPS > 0) {
		opts.FPS = DefaultFPS
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DragThrottle <= 0 {
		opts.DragThrottle = DefaultDragThrottle
	}
	if opts.MarkerWidth <= 0 {
		opts.MarkerWidth = DefaultMarkerWidth
	}
	c := &Controller{
		media:        media,
		chart:        tl,
		bridge:       scaling.NewBridge(),
		labels:       labels,
		sched:        opts.Scheduler,
		now:          opts.Now,
		fps:          opts.FPS,
		rate:         1,
		markerWidth:  opts.MarkerWidth,
		dragThrottle: opts.DragThrottle,
		reverse:      noopTask{},
		zoom:         tl.ZoomRange(),
	}
	c.maxStart = 100 - c.zoom.Width()
	c.chartTotalTime = tl.TotalDuration()
	c.totalTime = media.Duration()
	c.updateScaling()

	c.unsubs = append(c.unsubs,
		tl.TotalDurationChanged().Subscribe(func(d float64) {
			c.chartTotalTime = d
			c.updateScaling()
			c.updatePlayhead()
		}),
		tl.ZoomRangeChanged().Subscribe(c.zoomChangedByChart),
		c.bridge.Changes().Subscribe(c.onScalingChange),
	)
	c.updatePlayhead()
	return c
}

// FrameChanged 每次 timeupdate 发布当前帧号
func (c *Controller) FrameChanged() *bus.Topic[float64] { return &c.frameChanged }

// StateChanged 播放状态变化
func (c *Controller) StateChanged() *bus.Topic[PlayState] { return &c.stateChanged }

// PlayheadChanged 播放头位置或可见性变化
func (c *Controller) PlayheadChanged() *bus.Topic[Playhead] { return &c.playheadChanged }

// Scaling 百分比换算
func (c *Controller) Scaling() *scaling.Bridge { return c.bridge }

// Chart 图表
func (c *Controller) Chart() *chart.Timeline { return c.chart }

// Labels 标注
func (c *Controller) Labels() *label.Store { return c.labels }

// State 当前播放状态
func (c *Controller) State() PlayState { return c.state }

// FPS 帧率
func (c *Controller) FPS() float64 { return c.fps }

// Close 取消所有订阅与任务
func (c *Controller) Close() {
	c.stopReverse()
	c.cancelDrag()
	for _, fn := range c.unsubs {
		fn()
	}
	c.unsubs = nil
}

// HandleDurationChange implements MediaEvents.
func (c *Controller) HandleDurationChange() {
	c.totalTime = c.media.Duration()
	c.updateScaling()
	c.updatePlayhead()
}

// HandleTimeUpdate implements MediaEvents.
// 顺序固定：计算帧号，更新换算与播放头，发布帧号
func (c *Controller) HandleTimeUpdate() {
	c.currentTime = c.media.CurrentTime()
	c.currentFrame = c.currentTime * c.fps

	var pct float64
	if c.totalTime > 0 {
		pct = c.currentTime / c.totalTime * 100
	}
	c.bridge.SetVideoPercentage(pct)

	c.frameChanged.Publish(c.currentFrame)
}

// HandleEnded implements MediaEvents.
func (c *Controller) HandleEnded() {
	c.stopReverse()
	c.setState(Paused)
}

// TogglePlay 播放中（含倒放）则暂停，否则正向播放
func (c *Controller) TogglePlay() {
	if !c.media.Paused() || c.state == PlayingReverse {
		c.pause()
		return
	}
	c.play()
}

// Forward 取消倒放后正向播放，已在正向播放时保持不变
func (c *Controller) Forward() {
	c.stopReverse()
	if c.media.Paused() {
		c.play()
	}
}

// Pause 暂停
func (c *Controller) Pause() {
	c.pause()
}

// Reverse 倒放，每个周期回退一帧，回到 0 时自动暂停
func (c *Controller) Reverse() {
	c.stopReverse()
	if !c.media.Paused() {
		c.media.Pause()
	}
	if c.media.CurrentTime() <= 0 || c.sched == nil {
		c.setState(Paused)
		return
	}
	c.setState(PlayingReverse)
	c.reverse = c.sched.Every(c.reversePeriod(), c.stepBack)
}

// ReversePeriod 倒放周期 1000/(rate*fps) 毫秒
func (c *Controller) ReversePeriod() time.Duration {
	return c.reversePeriod()
}

func (c *Controller) reversePeriod() time.Duration {
	return time.Duration(float64(time.Second) / (c.rate * c.fps))
}

func (c *Controller) stepBack() {
	cur := c.media.CurrentTime()
	if cur <= 0 {
		c.stopReverse()
		return
	}
	next := (cur*c.fps - 1) / c.fps
	// 不足半帧按 0 处理，避免浮点误差多走一拍
	if next*c.fps < 0.5 {
		next = 0
	}
	c.media.SetCurrentTime(next)
	if next <= 0 {
		c.stopReverse()
	}
}

// SetPlaybackRate rate 必须为正；倒放中会按新周期重启倒放任务
func (c *Controller) SetPlaybackRate(rate float64) error {
	if !(rate > 0) || math.IsInf(rate, 0) {
		return ErrInvalidRate
	}
	c.rate = rate
	c.media.SetPlaybackRate(rate)
	if c.state == PlayingReverse {
		c.reverse.Cancel()
		c.reverse = c.sched.Every(c.reversePeriod(), c.stepBack)
	}
	return nil
}

// PlaybackRate 当前倍速
func (c *Controller) PlaybackRate() float64 { return c.rate }

// SeekFrames 暂停后跳转 n 帧
func (c *Controller) SeekFrames(n int) {
	frame := math.Round(c.media.CurrentTime() * c.fps)
	c.SeekTo((frame + float64(n)) / c.fps)
}

// SeekTo 暂停后跳转到指定秒
func (c *Controller) SeekTo(seconds float64) {
	c.pause()
	c.media.SetCurrentTime(seconds)
}

// ClickResult 图表点击结果
type ClickResult struct {
	Snapshot        *snapshot.Snapshot `json:"snapshot,omitempty"` // 命中快照，客户端复制其 ID
	Seeked          bool               `json:"seeked"`
	ChartPercentage float64            `json:"chart_percentage"`
}

// SeekChart 图表点击
// 命中快照时只返回快照；点在图例条下方时暂停并跳转到对应位置
func (c *Controller) SeekChart(x, y float64) ClickResult {
	if s, ok := c.chart.SnapshotAtX(x, SnapshotHitRadius); ok {
		return ClickResult{Snapshot: &s, ChartPercentage: c.bridge.ChartPercentage()}
	}
	if y <= chart.LegendHeight {
		return ClickResult{ChartPercentage: c.bridge.ChartPercentage()}
	}
	c.pause()
	c.bridge.SetChartPercentage(c.chart.PercentAtX(x))
	// 图表变化通知全部送达后再驱动视频，视频回传的变化排在其后
	c.media.SetCurrentTime(c.totalTime * c.bridge.VideoPercentage() / 100)
	return ClickResult{Seeked: true, ChartPercentage: c.bridge.ChartPercentage()}
}

// SlideScrollBar 拖动缩放滑块，窗口宽度不变
func (c *Controller) SlideScrollBar(start float64) {
	w := c.zoom.Width()
	c.chart.SetZoomRange(chart.ZoomRange{Start: start, End: start + w})
	c.zoomChangedByChart(c.chart.ZoomRange())
}

// SetZoomRange 程序设置窗口
func (c *Controller) SetZoomRange(z chart.ZoomRange) {
	c.chart.SetZoomRange(z)
	c.zoomChangedByChart(c.chart.ZoomRange())
}

// ZoomRange 控制器记录的窗口
func (c *Controller) ZoomRange() chart.ZoomRange { return c.zoom }

// MaxStartPercentage 滑块起点上限
func (c *Controller) MaxStartPercentage() float64 { return c.maxStart }

// Playhead 当前播放头
func (c *Controller) Playhead() Playhead { return c.playhead }

func (c *Controller) zoomChangedByChart(z chart.ZoomRange) {
	c.zoom = z
	c.maxStart = 100 - z.Width()
	c.updatePlayhead()
}

func (c *Controller) onScalingChange(scaling.Change) {
	c.updatePlayhead()
}

func (c *Controller) updateScaling() {
	c.bridge.SetScalingFactor(c.chartTotalTime, c.totalTime)
}

func (c *Controller) updatePlayhead() {
	p := c.bridge.ChartPercentage()
	z := c.zoom
	next := Playhead{Hidden: true}
	if z.Contains(p) && z.Width() > 0 {
		geo := c.chart.Geometry()
		half := c.markerWidth / 2 / geo.CanvasWidth * 100
		next = Playhead{
			Left: c.chart.LegendWidthPercent() + (p-z.Start)/z.Width()*c.chart.PlotWidthPercent() - half,
		}
	}
	if next != c.playhead {
		c.playhead = next
		c.playheadChanged.Publish(next)
	}
}

// Focus 键盘事件发生时的焦点
type Focus int

const (
	FocusNone Focus = iota
	FocusTextInput
)

// KeyDown 空格播放/暂停，左右方向键逐帧跳转；文本输入框有焦点时不处理
func (c *Controller) KeyDown(code string, focus Focus) bool {
	if focus == FocusTextInput {
		return false
	}
	switch code {
	case "Space":
		c.TogglePlay()
	case "ArrowLeft":
		c.SeekFrames(-1)
	case "ArrowRight":
		c.SeekFrames(1)
	default:
		return false
	}
	return true
}

// LabelBar 标注在视频进度条上的投影，单位百分比
type LabelBar struct {
	ID         string  `json:"id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Width      float64 `json:"width"`
	Visibility bool    `json:"visibility"`
}

// LabelBars 所有标注的投影
func (c *Controller) LabelBars() []LabelBar {
	list := c.labels.List()
	out := make([]LabelBar, 0, len(list))
	for _, l := range list {
		b := LabelBar{ID: l.ID, Visibility: l.Visibility}
		if c.totalTime > 0 {
			b.Start = l.Start.Seconds / c.totalTime * 100
			b.End = l.End.Seconds / c.totalTime * 100
			b.Width = b.End - b.Start
		}
		out = append(out, b)
	}
	return out
}

// Status 控制器状态快照
type Status struct {
	State              PlayState       `json:"state"`
	CurrentTime        float64         `json:"current_time"`
	CurrentFrame       float64         `json:"current_frame"`
	TotalTime          float64         `json:"total_time"`
	ChartTotalTime     float64         `json:"chart_total_time"`
	PlaybackRate       float64         `json:"playback_rate"`
	FPS                float64         `json:"fps"`
	ChartPercentage    float64         `json:"chart_percentage"`
	VideoPercentage    float64         `json:"video_percentage"`
	Zoom               chart.ZoomRange `json:"zoom"`
	MaxStartPercentage float64         `json:"max_start_percentage"`
	Playhead           Playhead        `json:"playhead"`
}

// Status 当前状态
func (c *Controller) Status() Status {
	return Status{
		State:              c.state,
		CurrentTime:        c.currentTime,
		CurrentFrame:       c.currentFrame,
		TotalTime:          c.totalTime,
		ChartTotalTime:     c.chartTotalTime,
		PlaybackRate:       c.rate,
		FPS:                c.fps,
		ChartPercentage:    c.bridge.ChartPercentage(),
		VideoPercentage:    c.bridge.VideoPercentage(),
		Zoom:               c.zoom,
		MaxStartPercentage: c.maxStart,
		Playhead:           c.playhead,
	}
}

func (c *Controller) play() {
	c.media.Play()
	if c.media.Paused() {
		c.setState(Paused)
		return
	}
	c.setState(PlayingForward)
}

func (c *Controller) pause() {
	c.stopReverse()
	c.media.Pause()
	c.setState(Paused)
}

func (c *Controller) stopReverse() {
	c.reverse.Cancel()
	c.reverse = noopTask{}
	if c.state == PlayingReverse {
		c.setState(Paused)
	}
}

func (c *Controller) setState(s PlayState) {
	if c.state == s {
		return
	}
	c.state = s
	c.stateChanged.Publish(s)
}
