// Package review 录像审阅会话
// 一个会话对应一个打开的录像，持有一个控制器，所有调用在会话的事件循环上串行执行
package review

import (
	"bytes"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ridecare/ridecare/internal/core/chart"
	"github.com/ridecare/ridecare/internal/core/label"
	"github.com/ridecare/ridecare/internal/core/player"
	"github.com/ridecare/ridecare/internal/core/recording"
	"github.com/ridecare/ridecare/internal/core/scaling"
	"github.com/ridecare/ridecare/internal/core/signal"
	"github.com/ridecare/ridecare/internal/core/snapshot"
)

// SnapshotsSignal 默认显示列表中代表快照标记的名称
const SnapshotsSignal = "Snapshots"

// Options 会话参数，零值字段使用控制器默认值
type Options struct {
	FPS                   float64
	DefaultVisibleSignals []string
	MarkerWidth           float64
	DragThrottle          time.Duration
	TimeUpdateInterval    time.Duration
	// Scheduler 为空时使用事件循环上的 TickerScheduler
	Scheduler player.Scheduler
	Now       func() time.Time
}

// Data 打开会话所需的数据，Signals 为空表示没有遥测
type Data struct {
	Recording *recording.Recording
	Signals   *signal.Group
	VideoURL  string
	Warnings  []string
}

// Event 推送给订阅者的会话事件
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	EventFrame    = "frame"
	EventState    = "state"
	EventPlayhead = "playhead"
	EventZoom     = "zoom"
	EventDuration = "duration"
	EventScaling  = "scaling"
	EventLabels   = "labels"
	EventSelected = "selected"
)

// Session 审阅会话
type Session struct {
	ID          string
	RecordingID string
	CreatedAt   time.Time

	loop *Loop

	// 以下字段只在事件循环上访问
	recording        *recording.Recording
	videoURL         string
	warnings         []string
	media            *player.VirtualMedia
	chart            *chart.Timeline
	labels           *label.Store
	sidebar          *label.Sidebar
	ctrl             *player.Controller
	snapshotsEnabled bool
	unsubs           []func()

	lastActive atomic.Int64

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewSession 在新的事件循环上组装控制器
func NewSession(id string, data Data, opts Options) *Session {
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		loop:      NewLoop(),
		subs:      make(map[int]chan Event),
	}
	if data.Recording != nil {
		s.RecordingID = data.Recording.ID
	}
	s.touch()
	_ = s.loop.Do(func() { s.setup(data, opts) })
	return s
}

func (s *Session) setup(data Data, opts Options) {
	sched := opts.Scheduler
	if sched == nil {
		sched = player.NewTickerScheduler(s.loop)
	}
	if !(opts.FPS > 0) {
		opts.FPS = player.DefaultFPS
	}
	visible := opts.DefaultVisibleSignals
	if visible == nil {
		visible = signal.DefaultVisibleSignals
	}

	s.recording = data.Recording
	s.videoURL = data.VideoURL
	s.warnings = slices.Clone(data.Warnings)

	s.chart = chart.NewTimeline()
	s.labels = label.NewStore()
	s.media = player.NewVirtualMedia(sched, opts.TimeUpdateInterval)
	s.ctrl = player.NewController(s.media, s.chart, s.labels, player.Options{
		FPS:          opts.FPS,
		Scheduler:    sched,
		Now:          opts.Now,
		DragThrottle: opts.DragThrottle,
		MarkerWidth:  opts.MarkerWidth,
	})
	s.media.Attach(s.ctrl)
	s.sidebar = label.NewSidebar(s.labels, s.ctrl.FPS())

	s.unsubs = append(s.unsubs,
		s.ctrl.FrameChanged().Subscribe(s.sidebar.HandleFrame),
		s.ctrl.FrameChanged().Subscribe(func(f float64) { s.broadcast(EventFrame, f) }),
		s.ctrl.StateChanged().Subscribe(func(st player.PlayState) { s.broadcast(EventState, st) }),
		s.ctrl.PlayheadChanged().Subscribe(func(p player.Playhead) { s.broadcast(EventPlayhead, p) }),
		s.ctrl.Scaling().Changes().Subscribe(func(c scaling.Change) { s.broadcast(EventScaling, c) }),
		s.chart.ZoomRangeChanged().Subscribe(func(z chart.ZoomRange) { s.broadcast(EventZoom, z) }),
		s.chart.TotalDurationChanged().Subscribe(func(d float64) { s.broadcast(EventDuration, d) }),
		s.labels.Labels().Subscribe(func(l []label.Label) { s.broadcast(EventLabels, l) }),
		s.labels.Selected().Subscribe(func(i int) { s.broadcast(EventSelected, i) }),
	)

	if data.Signals != nil {
		data.Signals.ApplyDefaults(visible)
		s.chart.SetSignals(data.Signals)
	}
	s.snapshotsEnabled = slices.Contains(visible, SnapshotsSignal)
	if rec := data.Recording; rec != nil {
		if len(rec.SnapshotPaths) > 0 {
			snaps, err := snapshot.ParseAt(rec.SnapshotPaths, rec.StartedAt.Time, s.ctrl.FPS())
			if err != nil {
				s.warnings = append(s.warnings, err.Error())
			} else {
				snapshot.SetEnabled(snaps, s.snapshotsEnabled)
				s.chart.SetSnapshots(snaps)
			}
		}
		s.media.Load(rec.Duration)
	}
}

// Do 在事件循环上执行 fn，用于组合多个操作
func (s *Session) Do(fn func()) error {
	s.touch()
	return s.loop.Do(fn)
}

// Close 取消任务与订阅并停止事件循环
func (s *Session) Close() {
	_ = s.loop.Do(func() {
		s.ctrl.Close()
		s.media.Pause()
		for _, fn := range s.unsubs {
			fn()
		}
		s.unsubs = nil
	})
	s.loop.Close()

	s.subMu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subMu.Unlock()
}

// Done 会话关闭后关闭
func (s *Session) Done() <-chan struct{} {
	return s.loop.Done()
}

// IdleSince 距最后一次操作的时长
func (s *Session) IdleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastActive.Load()))
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// Subscribe 订阅会话事件，缓冲区满时丢弃事件
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	s.subMu.Lock()
	select {
	case <-s.loop.Done():
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if c, ok := s.subs[id]; ok {
				close(c)
				delete(s.subs, id)
			}
		})
	}
}

func (s *Session) broadcast(typ string, data any) {
	ev := Event{Type: typ, Data: data}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// View 会话状态快照
type View struct {
	ID               string                      `json:"id"`
	Recording        *recording.Recording        `json:"recording"`
	VideoURL         string                      `json:"video_url"`
	Warnings         []string                    `json:"warnings"`
	Player           player.Status               `json:"player"`
	Labels           []label.Label               `json:"labels"`
	Selected         int                         `json:"selected"`
	Boundary         label.BoundaryKind          `json:"boundary"`
	LabelBars        []player.LabelBar           `json:"label_bars"`
	Legend           []chart.LegendItem          `json:"legend"`
	Selection        map[string]signal.Selection `json:"selection"`
	SnapshotsEnabled bool                        `json:"snapshots_enabled"`
	Geometry         chart.Geometry              `json:"geometry"`
}

// View 当前状态
func (s *Session) View() (View, error) {
	var v View
	err := s.Do(func() {
		v = View{
			ID:               s.ID,
			Recording:        s.recording,
			VideoURL:         s.videoURL,
			Warnings:         slices.Clone(s.warnings),
			Player:           s.ctrl.Status(),
			Labels:           s.labels.List(),
			Selected:         s.labels.SelectedIndex(),
			Boundary:         s.sidebar.Boundary(),
			LabelBars:        s.ctrl.LabelBars(),
			Legend:           s.chart.Legend(),
			Selection:        make(map[string]signal.Selection),
			SnapshotsEnabled: s.snapshotsEnabled,
			Geometry:         s.chart.Geometry(),
		}
		if root := s.chart.Signals(); root != nil {
			for _, g := range root.Groups {
				v.Selection[g.Name] = g.Selection()
			}
		}
	})
	return v, err
}

// Status 播放状态
func (s *Session) Status() (player.Status, error) {
	var st player.Status
	err := s.Do(func() { st = s.ctrl.Status() })
	return st, err
}

// TogglePlay 播放/暂停
func (s *Session) TogglePlay() error {
	return s.Do(s.ctrl.TogglePlay)
}

// Forward 正向播放
func (s *Session) Forward() error {
	return s.Do(s.ctrl.Forward)
}

// Reverse 倒放
func (s *Session) Reverse() error {
	return s.Do(s.ctrl.Reverse)
}

// Pause 暂停
func (s *Session) Pause() error {
	return s.Do(s.ctrl.Pause)
}

// SeekFrames 逐帧跳转
func (s *Session) SeekFrames(n int) error {
	return s.Do(func() { s.ctrl.SeekFrames(n) })
}

// SeekTo 跳转到视频秒数
func (s *Session) SeekTo(seconds float64) error {
	return s.Do(func() { s.ctrl.SeekTo(seconds) })
}

// Click 图表点击，x、y 为画布内像素坐标
func (s *Session) Click(x, y float64) (player.ClickResult, error) {
	var out player.ClickResult
	err := s.Do(func() { out = s.ctrl.SeekChart(x, y) })
	return out, err
}

// SetPlaybackRate 倍速
func (s *Session) SetPlaybackRate(rate float64) error {
	var inner error
	if err := s.Do(func() { inner = s.ctrl.SetPlaybackRate(rate) }); err != nil {
		return err
	}
	return inner
}

// KeyDown 键盘事件，返回是否被处理
func (s *Session) KeyDown(code string, focus player.Focus) (bool, error) {
	var handled bool
	err := s.Do(func() { handled = s.ctrl.KeyDown(code, focus) })
	return handled, err
}

// Zoom 以 center 百分比为中心缩放，factor > 1 放大
func (s *Session) Zoom(factor, center float64) error {
	return s.Do(func() { s.chart.Zoom(factor, center) })
}

// ZoomAtX 以画布像素 x 为中心缩放
func (s *Session) ZoomAtX(x, factor float64) error {
	return s.Do(func() { s.chart.ZoomAtX(x, factor) })
}

// Pan 平移百分比
func (s *Session) Pan(delta float64) error {
	return s.Do(func() { s.chart.Pan(delta) })
}

// PanPixels 平移像素
func (s *Session) PanPixels(dx float64) error {
	return s.Do(func() { s.chart.PanPixels(dx) })
}

// ResetZoom 恢复全范围
func (s *Session) ResetZoom() error {
	return s.Do(s.chart.ResetZoom)
}

// SetZoomRange 程序设置窗口，不触发 ZoomRangeChanged
func (s *Session) SetZoomRange(z chart.ZoomRange) (chart.ZoomRange, error) {
	var out chart.ZoomRange
	err := s.Do(func() {
		s.ctrl.SetZoomRange(z)
		out = s.ctrl.ZoomRange()
	})
	return out, err
}

// SlideScrollBar 拖动滑块
func (s *Session) SlideScrollBar(start float64) (chart.ZoomRange, error) {
	var out chart.ZoomRange
	err := s.Do(func() {
		s.ctrl.SlideScrollBar(start)
		out = s.ctrl.ZoomRange()
	})
	return out, err
}

// SetGeometry 画布尺寸变化
func (s *Session) SetGeometry(g chart.Geometry) error {
	return s.Do(func() {
		s.chart.SetGeometry(g)
		s.ctrl.SetZoomRange(s.chart.ZoomRange())
	})
}

// SetSignalEnabled 勾选信号，signalName 为空时作用于整组，groupName 也为空时作用于全部
func (s *Session) SetSignalEnabled(groupName, signalName string, enabled bool) error {
	var inner error
	err := s.Do(func() {
		root := s.chart.Signals()
		if groupName == "" && signalName == SnapshotsSignal {
			s.setSnapshotsEnabled(enabled)
			return
		}
		if root == nil {
			inner = signal.ErrUnknown
			return
		}
		if inner = root.SetEnabled(groupName, signalName, enabled); inner != nil {
			return
		}
		s.chart.RefreshSignals()
	})
	if err != nil {
		return err
	}
	return inner
}

// SetSnapshotsEnabled 切换全部快照标记
func (s *Session) SetSnapshotsEnabled(enabled bool) error {
	return s.Do(func() { s.setSnapshotsEnabled(enabled) })
}

func (s *Session) setSnapshotsEnabled(enabled bool) {
	s.snapshotsEnabled = enabled
	s.chart.SetSnapshotsEnabled(enabled)
}

// Labels 标注列表与选中下标
func (s *Session) Labels() ([]label.Label, int, error) {
	var (
		list []label.Label
		sel  int
	)
	err := s.Do(func() {
		list = s.labels.List()
		sel = s.labels.SelectedIndex()
	})
	return list, sel, err
}

// AddLabel l 为空时在播放头处新建并选中
func (s *Session) AddLabel(l *label.Label) (int, label.Label, error) {
	var (
		i   int
		out label.Label
	)
	err := s.Do(func() {
		if l == nil {
			i, out = s.sidebar.AddAtPlayhead()
			return
		}
		l.Activities.Normalize()
		i, out = s.labels.Add(*l)
	})
	return i, out, err
}

// UpdateLabel 替换下标 i 的标注
func (s *Session) UpdateLabel(i int, l label.Label) (label.Label, error) {
	var (
		out   label.Label
		inner error
	)
	err := s.Do(func() {
		l.Activities.Normalize()
		if inner = s.labels.Update(i, l); inner != nil {
			return
		}
		out, inner = s.labels.Get(i)
	})
	if err != nil {
		return out, err
	}
	return out, inner
}

// DeleteLabel 删除下标 i 的标注
func (s *Session) DeleteLabel(i int) error {
	return s.doErr(func() error { return s.labels.Delete(i) })
}

// SelectLabel 选中标注，label.NoSelection 取消选中
func (s *Session) SelectLabel(i int) error {
	return s.doErr(func() error { return s.labels.SetSelectedIndex(i) })
}

// SelectBoundary 选定后续帧号写入的边界
func (s *Session) SelectBoundary(kind label.BoundaryKind) error {
	return s.doErr(func() error { return s.sidebar.SelectBoundary(kind) })
}

// SetLabelVisibility 标注在进度条上的可见性
func (s *Session) SetLabelVisibility(i int, visible bool) error {
	return s.doErr(func() error { return s.sidebar.SetVisibility(i, visible) })
}

// BeginDrag 开始拖拽选中标注的边界
func (s *Session) BeginDrag(kind label.BoundaryKind, pageX, barLeft, barRight float64) error {
	return s.doErr(func() error {
		_, err := s.ctrl.BeginDrag(kind, pageX, barLeft, barRight)
		return err
	})
}

// MoveDrag 指针移动，节流丢弃时 moved 为 false
func (s *Session) MoveDrag(pageX float64) (l label.Label, moved bool, err error) {
	var inner error
	err = s.Do(func() {
		d, ok := s.ctrl.ActiveDrag()
		if !ok {
			inner = player.ErrDragEnded
			return
		}
		l, moved, inner = d.Move(pageX)
	})
	if err != nil {
		return l, false, err
	}
	return l, moved, inner
}

// EndDrag 指针抬起
func (s *Session) EndDrag() error {
	return s.Do(func() {
		if d, ok := s.ctrl.ActiveDrag(); ok {
			d.End()
		}
	})
}

// Tooltip 画布像素 x 处的提示
func (s *Session) Tooltip(x float64) (chart.Tooltip, error) {
	var out chart.Tooltip
	err := s.Do(func() { out = s.chart.TooltipAtX(x, player.SnapshotHitRadius) })
	return out, err
}

// Series 当前窗口内按像素宽度抽样后的曲线
func (s *Session) Series(widthPx int) ([]chart.Series, error) {
	var out []chart.Series
	err := s.Do(func() { out = s.chart.Render(widthPx) })
	return out, err
}

// Window 当前窗口对应的时间区间
func (s *Session) Window() (lo, hi time.Time, err error) {
	err = s.Do(func() { lo, hi = s.chart.Window() })
	return lo, hi, err
}

// RenderHTML 交互式图表
func (s *Session) RenderHTML() ([]byte, error) {
	var buf bytes.Buffer
	err := s.doErr(func() error {
		return s.chart.WriteHTML(&buf, s.title())
	})
	return buf.Bytes(), err
}

// RenderPNG 静态图表
func (s *Session) RenderPNG(width, height int) ([]byte, error) {
	var buf bytes.Buffer
	err := s.doErr(func() error {
		return s.chart.WritePNG(&buf, width, height)
	})
	return buf.Bytes(), err
}

func (s *Session) title() string {
	if s.recording == nil {
		return s.ID
	}
	return fmt.Sprintf("%s %s", s.recording.ID, chart.FormatTimestamp(s.recording.StartedAt.Time))
}

func (s *Session) doErr(fn func() error) error {
	var inner error
	if err := s.Do(func() { inner = fn() }); err != nil {
		return err
	}
	return inner
}
