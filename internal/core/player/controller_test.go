package player

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/ridecare/ridecare/internal/core/chart"
	"github.com/ridecare/ridecare/internal/core/label"
	"github.com/ridecare/ridecare/internal/core/scaling"
	"github.com/ridecare/ridecare/internal/core/signal"
)

type manualTask struct {
	period    time.Duration
	fn        func()
	cancelled bool
}

func (t *manualTask) Cancel() { t.cancelled = true }

type manualScheduler struct {
	tasks []*manualTask
}

func (s *manualScheduler) Every(period time.Duration, fn func()) Task {
	t := &manualTask{period: period, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *manualScheduler) tick() {
	for _, t := range slices.Clone(s.tasks) {
		if !t.cancelled {
			t.fn()
		}
	}
}

func (s *manualScheduler) active() []*manualTask {
	var out []*manualTask
	for _, t := range s.tasks {
		if !t.cancelled {
			out = append(out, t)
		}
	}
	return out
}

type fixture struct {
	sched  *manualScheduler
	media  *VirtualMedia
	tl     *chart.Timeline
	labels *label.Store
	c      *Controller
	clock  time.Time
}

func newFixture(t *testing.T, telemetrySeconds, videoSeconds float64) *fixture {
	t.Helper()
	f := &fixture{sched: &manualScheduler{}, clock: time.Unix(0, 0)}
	f.tl = chart.NewTimeline()
	f.labels = label.NewStore()
	f.media = NewVirtualMedia(f.sched, 250*time.Millisecond)
	f.c = NewController(f.media, f.tl, f.labels, Options{
		FPS:       15,
		Scheduler: f.sched,
		Now:       func() time.Time { return f.clock },
	})
	f.media.Attach(f.c)
	t.Cleanup(f.c.Close)

	if telemetrySeconds > 0 {
		root := signal.NewGroup("")
		for s := 0.0; s <= telemetrySeconds; s++ {
			signal.AppendTo(root, "CHC", "CameraViewBlocked", signal.Point{
				Timestamp: signal.Baseline.Add(time.Duration(s * float64(time.Second))),
			})
		}
		f.tl.SetSignals(root)
	}
	f.media.Load(videoSeconds)
	return f
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

// 10 分钟遥测、9 分钟视频：视频 50% 对应图表 45%
func TestScalingBetweenVideoAndChart(t *testing.T) {
	f := newFixture(t, 600, 540)
	if !near(f.c.Scaling().VideoToChartRatio(), 0.9) {
		t.Fatalf("ratio = %v", f.c.Scaling().VideoToChartRatio())
	}

	f.media.SetCurrentTime(270)
	st := f.c.Status()
	if !near(st.VideoPercentage, 50) || !near(st.ChartPercentage, 45) {
		t.Fatalf("video=%v chart=%v", st.VideoPercentage, st.ChartPercentage)
	}
	// 默认几何 1000px，播放头 2px
	if ph := f.c.Playhead(); ph.Hidden || !near(ph.Left, 44.9) {
		t.Fatalf("playhead %+v", ph)
	}

	// 用户缩放到 [50,100]，45% 不在窗口内
	f.tl.Zoom(2, 100)
	if z := f.c.ZoomRange(); !near(z.Start, 50) || !near(z.End, 100) {
		t.Fatalf("controller zoom %+v", z)
	}
	if !f.c.Playhead().Hidden {
		t.Fatal("playhead must be hidden outside the zoom window")
	}
	if !near(f.c.MaxStartPercentage(), 50) {
		t.Fatalf("max start = %v", f.c.MaxStartPercentage())
	}
}

func TestKeyboardShortcuts(t *testing.T) {
	f := newFixture(t, 0, 60)
	f.media.SetCurrentTime(100.0 / 15)

	var frames []float64
	f.c.FrameChanged().Subscribe(func(fr float64) { frames = append(frames, fr) })

	if !f.c.KeyDown("ArrowRight", FocusNone) {
		t.Fatal("ArrowRight not handled")
	}
	if len(frames) != 1 || !near(frames[0], 101) {
		t.Fatalf("frames %v", frames)
	}
	if !near(f.media.CurrentTime(), 101.0/15) {
		t.Fatalf("current time %v", f.media.CurrentTime())
	}

	if f.c.KeyDown("ArrowLeft", FocusTextInput) {
		t.Fatal("keys must be ignored while a text input has focus")
	}
	if len(frames) != 1 {
		t.Fatal("ignored key changed the frame")
	}

	f.c.KeyDown("Space", FocusNone)
	if f.c.State() != PlayingForward {
		t.Fatalf("state = %v", f.c.State())
	}
	f.c.KeyDown("Space", FocusNone)
	if f.c.State() != Paused {
		t.Fatalf("state = %v", f.c.State())
	}
	if f.c.KeyDown("KeyQ", FocusNone) {
		t.Fatal("unknown key handled")
	}
}

func TestReverseStopsAtZero(t *testing.T) {
	f := newFixture(t, 0, 10)
	f.media.SetCurrentTime(2.0 / 15)

	var states []PlayState
	f.c.StateChanged().Subscribe(func(s PlayState) { states = append(states, s) })

	f.c.Reverse()
	if f.c.State() != PlayingReverse {
		t.Fatalf("state = %v", f.c.State())
	}
	tasks := f.sched.active()
	if len(tasks) != 1 || tasks[0].period != time.Second/15 {
		t.Fatalf("unexpected reverse task %+v", tasks)
	}

	f.sched.tick()
	if f.c.State() != PlayingReverse || !near(f.media.CurrentTime(), 1.0/15) {
		t.Fatalf("after first tick: state=%v time=%v", f.c.State(), f.media.CurrentTime())
	}
	f.sched.tick()
	if f.c.State() != Paused || f.media.CurrentTime() != 0 {
		t.Fatalf("after second tick: state=%v time=%v", f.c.State(), f.media.CurrentTime())
	}
	if len(f.sched.active()) != 0 {
		t.Fatal("reverse task must cancel itself")
	}
	if !slices.Equal(states, []PlayState{PlayingReverse, Paused}) {
		t.Fatalf("states %v", states)
	}
}

func TestForwardCancelsReverse(t *testing.T) {
	f := newFixture(t, 0, 10)
	f.media.SetCurrentTime(5)
	f.c.Reverse()
	f.c.Forward()
	if f.c.State() != PlayingForward || f.media.Paused() {
		t.Fatalf("state = %v paused = %v", f.c.State(), f.media.Paused())
	}
	// 只剩视频播放任务
	if n := len(f.sched.active()); n != 1 {
		t.Fatalf("active tasks = %d", n)
	}
	f.c.Forward()
	if f.c.State() != PlayingForward {
		t.Fatal("forward must be idempotent")
	}
}

func TestPlaybackRateRestartsReverse(t *testing.T) {
	f := newFixture(t, 0, 10)
	f.media.SetCurrentTime(5)
	f.c.Reverse()

	var states []PlayState
	f.c.StateChanged().Subscribe(func(s PlayState) { states = append(states, s) })
	if err := f.c.SetPlaybackRate(2); err != nil {
		t.Fatal(err)
	}
	tasks := f.sched.active()
	if len(tasks) != 1 || tasks[0].period != time.Second/30 {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	// 只重启倒放任务，状态不变
	if len(states) != 0 || f.c.State() != PlayingReverse {
		t.Fatalf("states %v, state %v", states, f.c.State())
	}
	if err := f.c.SetPlaybackRate(0); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
}

func TestEndedPauses(t *testing.T) {
	f := newFixture(t, 0, 0.5)
	f.c.TogglePlay()
	f.sched.tick()
	f.sched.tick()
	if f.c.State() != Paused || f.media.CurrentTime() != 0.5 {
		t.Fatalf("state=%v time=%v", f.c.State(), f.media.CurrentTime())
	}
}

func TestSeekChart(t *testing.T) {
	f := newFixture(t, 600, 540)
	f.c.TogglePlay()

	res := f.c.SeekChart(500, 10)
	if res.Seeked {
		t.Fatal("click in the legend strip must not seek")
	}

	res = f.c.SeekChart(500, 100)
	if !res.Seeked || !near(res.ChartPercentage, 50) {
		t.Fatalf("unexpected result %+v", res)
	}
	if !near(f.media.CurrentTime(), 300) {
		t.Fatalf("media time = %v", f.media.CurrentTime())
	}
	if f.c.State() != Paused {
		t.Fatalf("explicit seek must pause, state=%v", f.c.State())
	}
}

// 晚于控制器订阅的监听者先收到图表变更，再收到视频回传
func TestSeekChartChangeOrder(t *testing.T) {
	f := newFixture(t, 600, 540)

	var sources []scaling.Source
	f.c.Scaling().Changes().Subscribe(func(ch scaling.Change) { sources = append(sources, ch.Source) })

	f.c.SeekChart(500, 100)
	want := []scaling.Source{scaling.SourceChart, scaling.SourceVideo}
	if !slices.Equal(sources, want) {
		t.Fatalf("sources %v, want %v", sources, want)
	}
}

func TestSlideScrollBar(t *testing.T) {
	f := newFixture(t, 100, 100)
	var events int
	f.tl.ZoomRangeChanged().Subscribe(func(chart.ZoomRange) { events++ })

	f.c.SetZoomRange(chart.ZoomRange{Start: 0, End: 20})
	f.c.SlideScrollBar(70)
	z := f.c.ZoomRange()
	if !near(z.Start, 70) || !near(z.End, 90) {
		t.Fatalf("zoom %+v", z)
	}
	if tz := f.tl.ZoomRange(); tz != z {
		t.Fatalf("chart zoom %+v differs from controller %+v", tz, z)
	}
	f.c.SlideScrollBar(95)
	if z := f.c.ZoomRange(); !near(z.End, 100) || !near(z.Width(), 20) {
		t.Fatalf("zoom %+v", z)
	}
	if events != 0 {
		t.Fatal("programmatic zoom must not publish")
	}
}

func TestDragLabelBoundary(t *testing.T) {
	f := newFixture(t, 0, 100)

	if _, err := f.c.BeginDrag(label.BoundaryEnd, 0, 0, 1000); !errors.Is(err, label.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}

	i, _ := f.labels.Add(label.Label{
		Start: label.Boundary{Frame: 150, Seconds: 10},
		End:   label.Boundary{Frame: 300, Seconds: 20},
	})
	_ = f.labels.SetSelectedIndex(i)

	d, err := f.c.BeginDrag(label.BoundaryEnd, 200, 0, 1000)
	if err != nil {
		t.Fatal(err)
	}
	l, moved, err := d.Move(300)
	if err != nil || !moved {
		t.Fatalf("move: %v %v", moved, err)
	}
	if !near(l.End.Seconds, 30) || l.End.Frame != 450 {
		t.Fatalf("end boundary %+v", l.End)
	}

	// 节流窗口内
	if _, moved, _ := d.Move(900); moved {
		t.Fatal("move inside throttle window must be dropped")
	}

	f.clock = f.clock.Add(30 * time.Millisecond)
	l, _, _ = d.Move(-500)
	if !near(l.End.Seconds, l.Start.Seconds) {
		t.Fatalf("end must not cross start: %+v", l)
	}

	d.End()
	if _, _, err := d.Move(10); !errors.Is(err, ErrDragEnded) {
		t.Fatalf("expected ErrDragEnded, got %v", err)
	}
	if _, ok := f.c.ActiveDrag(); ok {
		t.Fatal("drag still active")
	}

	bars := f.c.LabelBars()
	if len(bars) != 1 || !near(bars[0].Start, 10) || !near(bars[0].Width, 0) {
		t.Fatalf("bars %+v", bars)
	}
}
