package tui

import (
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ridecare/ridecare/internal/core/recording"
	"github.com/ridecare/ridecare/internal/core/review"
	"github.com/ridecare/ridecare/internal/core/signal"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	root := signal.NewGroup("All")
	for s := 0.0; s <= 60; s++ {
		ts := signal.Baseline.Add(time.Duration(s * float64(time.Second)))
		signal.AppendTo(root, "CHC", "CameraViewBlocked", signal.Point{Timestamp: ts, Value: math.Mod(s, 2)})
	}
	s := review.NewSession("s1", review.Data{
		Recording: &recording.Recording{
			ID:        "r42",
			StartedAt: orm.Time{Time: time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)},
			Duration:  60,
		},
		Signals: root,
	}, review.Options{FPS: 15})
	t.Cleanup(s.Close)

	m := New(s)
	t.Cleanup(m.cancel)
	return m
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeysDriveSession(t *testing.T) {
	m := newTestModel(t)
	if m.view.Player.TotalTime != 60 {
		t.Fatalf("total %v", m.view.Player.TotalTime)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyRight})
	if m.view.Player.CurrentFrame != 2 {
		t.Fatalf("frame %v", m.view.Player.CurrentFrame)
	}

	m = press(t, m, runes("a"))
	if len(m.view.Labels) != 1 || m.view.Selected != 0 {
		t.Fatalf("labels %+v selected %d", m.view.Labels, m.view.Selected)
	}

	m = press(t, m, runes("x"))
	if len(m.view.Labels) != 0 || m.err != nil {
		t.Fatalf("delete: labels %d err %v", len(m.view.Labels), m.err)
	}

	m = press(t, m, runes("+"))
	if w := m.view.Player.Zoom.Width(); !(w < 100) {
		t.Fatalf("zoom width %v", w)
	}
	m = press(t, m, runes("0"))
	if w := m.view.Player.Zoom.Width(); w != 100 {
		t.Fatalf("reset zoom width %v", w)
	}
}

func TestGoToTime(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, runes("g"))
	if !m.timeInputMode {
		t.Fatal("g opens the time input")
	}
	// 输入框有焦点时按键不作为快捷键
	m = press(t, m, runes("0"), runes("0"), runes(":"), runes("1"), runes("2"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.timeInputMode || m.view.Player.CurrentTime != 12 {
		t.Fatalf("input mode %v time %v err %v", m.timeInputMode, m.view.Player.CurrentTime, m.err)
	}

	m = press(t, m, runes("g"), runes("x"), tea.KeyMsg{Type: tea.KeyEnter})
	if !m.timeInputMode || m.err == nil {
		t.Fatal("invalid time keeps the input open")
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.timeInputMode {
		t.Fatal("esc closes the input")
	}
}

func TestViewRenders(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, runes("a"))
	out := m.View()
	for _, want := range []string{"r42", "CameraViewBlocked", "occupants 0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
}

func TestParseTime(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12", 12, true},
		{"1.5", 1.5, true},
		{"01:02.5", 62.5, true},
		{"1:00:00", 3600, true},
		{"", 0, false},
		{"a:10", 0, false},
		{"1.5:10", 0, false},
		{"-3", 0, false},
		{"1:2:3:4", 0, false},
	}
	for _, c := range cases {
		got, err := ParseTime(c.in)
		if (err == nil) != c.ok || (c.ok && got != c.want) {
			t.Errorf("ParseTime(%q) = %v, %v", c.in, got, err)
		}
	}
}
