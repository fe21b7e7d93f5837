package review

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ridecare/ridecare/internal/core/label"
	"github.com/ridecare/ridecare/internal/core/player"
	"github.com/ridecare/ridecare/internal/core/recording"
	"github.com/ridecare/ridecare/internal/core/signal"
)

type manualTask struct {
	fn        func()
	cancelled bool
}

func (t *manualTask) Cancel() { t.cancelled = true }

// manualScheduler 只在事件循环上访问
type manualScheduler struct {
	tasks []*manualTask
}

func (s *manualScheduler) Every(_ time.Duration, fn func()) player.Task {
	t := &manualTask{fn: fn}
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

var videoStart = time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeRecordings struct {
	rec    *recording.Recording
	err    error
	urlErr error
}

func (f *fakeRecordings) GetRecording(context.Context, string) (*recording.Recording, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.rec
	return &cp, nil
}

func (f *fakeRecordings) VideoURL(context.Context, string) (string, error) {
	if f.urlErr != nil {
		return "", f.urlErr
	}
	return "https://cdn.example/r1.mp4", nil
}

type fakeSignals struct {
	mu       sync.Mutex
	seconds  float64
	err      error
	fallback string
}

func (f *fakeSignals) GetSignals(_ context.Context, _, fallbackID string) (*signal.Group, error) {
	f.mu.Lock()
	f.fallback = fallbackID
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	root := signal.NewGroup("All")
	for s := 0.0; s <= f.seconds; s++ {
		ts := signal.Baseline.Add(time.Duration(s * float64(time.Second)))
		signal.AppendTo(root, "CHC", "CameraViewBlocked", signal.Point{Timestamp: ts, Value: 1})
		signal.AppendTo(root, "MDF", "speed", signal.Point{Timestamp: ts, Value: s})
	}
	return root, nil
}

func newRecording() *recording.Recording {
	return &recording.Recording{
		ID:        "r1",
		StartedAt: orm.Time{Time: videoStart},
		Duration:  540,
		LQVideoID: "lq1",
		SnapshotPaths: []string{
			// 视频开始后 6 秒
			"snapshots/r1_1614592806000.jpeg",
		},
	}
}

type harness struct {
	sched *manualScheduler
	mgr   *Manager
	s     *Session
	sigs  *fakeSignals
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{sched: &manualScheduler{}, sigs: &fakeSignals{seconds: 600}}
	loader := NewLoader(&fakeRecordings{rec: newRecording()}, h.sigs)
	h.mgr = NewManager(loader, Options{FPS: 15, Scheduler: h.sched}, ManagerConfig{IdleTimeout: time.Minute, MaxSessions: 2})
	s, err := h.mgr.Open(context.Background(), "r1")
	if err != nil {
		t.Fatal(err)
	}
	h.s = s
	t.Cleanup(h.mgr.CloseAll)
	return h
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	if err := h.s.Do(h.sched.tick); err != nil {
		t.Fatal(err)
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestOpenSession(t *testing.T) {
	h := newHarness(t)
	v, err := h.s.View()
	if err != nil {
		t.Fatal(err)
	}
	if v.Player.TotalTime != 540 || v.Player.ChartTotalTime != 600 {
		t.Fatalf("video %v chart %v", v.Player.TotalTime, v.Player.ChartTotalTime)
	}
	if v.VideoURL != "https://cdn.example/r1.mp4" || len(v.Warnings) != 0 {
		t.Fatalf("url %q warnings %v", v.VideoURL, v.Warnings)
	}
	if h.sigs.fallback != "lq1" {
		t.Fatalf("fallback id %q", h.sigs.fallback)
	}
	// 默认只显示摄像头健康信号
	if len(v.Legend) != 1 || v.Legend[0].Name != "CameraViewBlocked" {
		t.Fatalf("legend %+v", v.Legend)
	}
	if v.Selection["CHC"] != signal.SelectionAll || v.Selection["MDF"] != signal.SelectionNone {
		t.Fatalf("selection %+v", v.Selection)
	}
	if !v.SnapshotsEnabled {
		t.Fatal("snapshots are visible by default")
	}
}

func TestPlaybackThroughLoop(t *testing.T) {
	h := newHarness(t)
	events, cancel := h.s.Subscribe(16)
	defer cancel()

	if err := h.s.TogglePlay(); err != nil {
		t.Fatal(err)
	}
	// 4 个 250ms 周期推进 1 秒
	for range 4 {
		h.tick(t)
	}
	st, _ := h.s.Status()
	if st.State != player.PlayingForward || !near(st.CurrentTime, 1) || !near(st.CurrentFrame, 15) {
		t.Fatalf("status %+v", st)
	}

	var gotState bool
	for len(events) > 0 {
		if ev := <-events; ev.Type == EventState && ev.Data == player.PlayingForward {
			gotState = true
		}
	}
	if !gotState {
		t.Fatal("state event not delivered")
	}

	if err := h.s.Reverse(); err != nil {
		t.Fatal(err)
	}
	for range 15 {
		h.tick(t)
	}
	st, _ = h.s.Status()
	if st.State != player.Paused || st.CurrentTime != 0 {
		t.Fatalf("reverse must stop at zero: %+v", st)
	}
}

func TestLabelFollowsPlayhead(t *testing.T) {
	h := newHarness(t)
	if err := h.s.SeekTo(10); err != nil {
		t.Fatal(err)
	}
	i, l, err := h.s.AddLabel(nil)
	if err != nil {
		t.Fatal(err)
	}
	if i != 0 || l.Start.Frame != 150 || l.End.Frame != 180 {
		t.Fatalf("label %d %+v", i, l)
	}
	if err := h.s.SelectBoundary(label.BoundaryEnd); err != nil {
		t.Fatal(err)
	}
	if err := h.s.SeekFrames(15); err != nil {
		t.Fatal(err)
	}
	list, sel, _ := h.s.Labels()
	if sel != 0 || list[0].End.Frame != 165 {
		t.Fatalf("selected %d end %+v", sel, list[0].End)
	}

	if err := h.s.DeleteLabel(3); !errors.Is(err, label.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := h.s.DeleteLabel(0); err != nil {
		t.Fatal(err)
	}
	if _, sel, _ := h.s.Labels(); sel != label.NoSelection {
		t.Fatalf("selection after delete %d", sel)
	}
}

func TestClickSnapshot(t *testing.T) {
	h := newHarness(t)
	// 6 秒 / 600 秒 = 1%，默认 1000px 绘图区
	res, err := h.s.Click(10, 100)
	if err != nil {
		t.Fatal(err)
	}
	if res.Snapshot == nil || res.Snapshot.ID() != "r1_1614592806000" || res.Seeked {
		t.Fatalf("click %+v", res)
	}
	if res.Snapshot.Frame != 90 {
		t.Fatalf("frame %d", res.Snapshot.Frame)
	}

	if err := h.s.SetSnapshotsEnabled(false); err != nil {
		t.Fatal(err)
	}
	res, _ = h.s.Click(10, 100)
	if res.Snapshot != nil || !res.Seeked {
		t.Fatalf("hidden snapshot must not be hit: %+v", res)
	}
}

func TestToggleSignals(t *testing.T) {
	h := newHarness(t)
	if err := h.s.SetSignalEnabled("MDF", "speed", true); err != nil {
		t.Fatal(err)
	}
	v, _ := h.s.View()
	if len(v.Legend) != 2 {
		t.Fatalf("legend %+v", v.Legend)
	}
	if err := h.s.SetSignalEnabled("MDF", "nope", true); err == nil {
		t.Fatal("expected unknown signal error")
	}
	if err := h.s.SetSignalEnabled("", "", false); err != nil {
		t.Fatal(err)
	}
	v, _ = h.s.View()
	if len(v.Legend) != 0 {
		t.Fatalf("legend %+v", v.Legend)
	}
}

func TestDegradedLoad(t *testing.T) {
	loader := NewLoader(&fakeRecordings{rec: newRecording(), urlErr: errors.New("no url")}, &fakeSignals{err: errors.New("timeout")})
	data, err := loader.Load(context.Background(), "r1")
	if err != nil {
		t.Fatal(err)
	}
	if data.Signals != nil || data.VideoURL != "" || len(data.Warnings) != 2 {
		t.Fatalf("data %+v", data)
	}

	s := NewSession("s1", data, Options{Scheduler: &manualScheduler{}})
	defer s.Close()
	st, err := s.Status()
	if err != nil {
		t.Fatal(err)
	}
	if st.ChartTotalTime != 0 || st.TotalTime != 540 {
		t.Fatalf("status %+v", st)
	}

	missing := NewLoader(&fakeRecordings{err: errors.New("not found")}, nil)
	if _, err := missing.Load(context.Background(), "r1"); err == nil {
		t.Fatal("recording is required")
	}
}

func TestManagerLimitsAndEviction(t *testing.T) {
	h := newHarness(t)
	if _, err := h.mgr.Open(context.Background(), "r1"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.mgr.Open(context.Background(), "r1"); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("expected ErrTooManySessions, got %v", err)
	}
	if n := h.mgr.EvictIdle(time.Now()); n != 0 {
		t.Fatalf("evicted %d active sessions", n)
	}
	if n := h.mgr.EvictIdle(time.Now().Add(2 * time.Minute)); n != 2 {
		t.Fatalf("evicted %d", n)
	}
	if _, err := h.mgr.Get(h.s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := h.s.TogglePlay(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestManagerConcurrentOpenRespectsLimit(t *testing.T) {
	loader := NewLoader(&fakeRecordings{rec: newRecording()}, &fakeSignals{seconds: 10})
	mgr := NewManager(loader, Options{FPS: 15, Scheduler: &manualScheduler{}}, ManagerConfig{MaxSessions: 2})
	defer mgr.CloseAll()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
		denied int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Open(context.Background(), "r1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				opened++
			case errors.Is(err, ErrTooManySessions):
				denied++
			default:
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if opened != 2 || denied != 6 || mgr.Len() != 2 {
		t.Fatalf("opened %d denied %d len %d", opened, denied, mgr.Len())
	}

	// 关闭后名额释放
	if err := mgr.Close(mgr.List()[0].ID); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Open(context.Background(), "r1"); err != nil {
		t.Fatal(err)
	}
}

func TestRenderChart(t *testing.T) {
	h := newHarness(t)
	html, err := h.s.RenderHTML()
	if err != nil || len(html) == 0 {
		t.Fatalf("html %d bytes, err %v", len(html), err)
	}
	png, err := h.s.RenderPNG(800, 300)
	if err != nil || len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Fatalf("png err %v", err)
	}
}
