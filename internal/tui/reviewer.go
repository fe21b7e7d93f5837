// Package tui 终端录像审阅
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ridecare/ridecare/internal/core/chart"
	"github.com/ridecare/ridecare/internal/core/label"
	"github.com/ridecare/ridecare/internal/core/review"
)

const (
	zoomStep = 0.8  // +/- 每次缩放比例
	panStep  = 0.05 // h/l 每次平移窗口的比例
)

type eventMsg review.Event

type closedMsg struct{}

// Model 审阅界面，所有操作转发到会话
type Model struct {
	session *review.Session
	events  <-chan review.Event
	cancel  func()

	view     review.View
	series   []chart.Series
	windowLo time.Time
	windowHi time.Time
	err      error

	width  int
	height int

	timeInputMode bool
	timeInput     textinput.Model
}

// New 订阅会话事件并读取初始状态
func New(s *review.Session) Model {
	ti := textinput.New()
	ti.Placeholder = "mm:ss.mmm or seconds"
	ti.CharLimit = 16
	ti.Width = 24

	events, cancel := s.Subscribe(256)
	m := Model{
		session:   s,
		events:    events,
		cancel:    cancel,
		width:     100,
		height:    30,
		timeInput: ti,
	}
	m.refresh()
	return m
}

// Run 运行终端界面直到退出
func Run(ctx context.Context, s *review.Session) error {
	m := New(s)
	defer m.cancel()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func waitEvent(ch <-chan review.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return waitEvent(m.events)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refresh()
		return m, nil
	case eventMsg:
		// 合并积压的事件，只刷新一次
		for drained := false; !drained; {
			select {
			case _, ok := <-m.events:
				if !ok {
					return m, tea.Quit
				}
			default:
				drained = true
			}
		}
		m.refresh()
		return m, waitEvent(m.events)
	case closedMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		if m.timeInputMode {
			return m.updateTimeInput(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) updateTimeInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		seconds, err := ParseTime(m.timeInput.Value())
		if err != nil {
			m.err = err
			return m, nil
		}
		m.timeInputMode = false
		m.timeInput.Reset()
		m.timeInput.Blur()
		m.apply(m.session.SeekTo(seconds))
		return m, nil
	case "esc", "ctrl+c":
		m.timeInputMode = false
		m.timeInput.Reset()
		m.timeInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.timeInput, cmd = m.timeInput.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.session
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case " ", "space":
		m.apply(s.TogglePlay())
	case "left":
		m.apply(s.SeekFrames(-1))
	case "right":
		m.apply(s.SeekFrames(1))
	case "r":
		m.apply(s.Reverse())
	case "f":
		m.apply(s.Forward())
	case "p":
		m.apply(s.Pause())
	case "+", "=":
		m.apply(s.Zoom(zoomStep, m.zoomCenter()))
	case "-":
		m.apply(s.Zoom(1/zoomStep, m.zoomCenter()))
	case "0":
		m.apply(s.ResetZoom())
	case "h":
		m.apply(s.Pan(-panStep * m.view.Player.Zoom.Width()))
	case "l":
		m.apply(s.Pan(panStep * m.view.Player.Zoom.Width()))
	case "a":
		_, _, err := s.AddLabel(nil)
		m.apply(err)
	case "x":
		m.apply(s.DeleteLabel(m.view.Selected))
	case "j":
		m.apply(m.moveSelection(1))
	case "k":
		m.apply(m.moveSelection(-1))
	case "[":
		m.apply(s.SelectBoundary(label.BoundaryStart))
	case "]":
		m.apply(s.SelectBoundary(label.BoundaryEnd))
	case "v":
		if i := m.view.Selected; i >= 0 && i < len(m.view.Labels) {
			m.apply(s.SetLabelVisibility(i, !m.view.Labels[i].Visibility))
		}
	case "s":
		m.apply(s.SetSnapshotsEnabled(!m.view.SnapshotsEnabled))
	case "g":
		m.timeInputMode = true
		m.timeInput.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

// zoomCenter 以播放头为中心缩放，播放头不在窗口内时以窗口中点为中心
func (m Model) zoomCenter() float64 {
	z := m.view.Player.Zoom
	if p := m.view.Player.ChartPercentage; z.Contains(p) {
		return p
	}
	return (z.Start + z.End) / 2
}

func (m Model) moveSelection(delta int) error {
	n := len(m.view.Labels)
	if n == 0 {
		return nil
	}
	i := m.view.Selected + delta
	if m.view.Selected == label.NoSelection {
		i = 0
	}
	return m.session.SelectLabel(min(max(i, 0), n-1))
}

func (m *Model) apply(err error) {
	m.err = err
	m.refresh()
}

func (m *Model) refresh() {
	v, err := m.session.View()
	if err != nil {
		m.err = err
		return
	}
	m.view = v
	if series, err := m.session.Series(m.plotWidth()); err == nil {
		m.series = series
	}
	if lo, hi, err := m.session.Window(); err == nil {
		m.windowLo, m.windowHi = lo, hi
	}
}

func (m Model) plotWidth() int {
	return max(m.width-legendWidth-2, 20)
}

// ParseTime 解析 mm:ss.mmm、hh:mm:ss 或秒数
func ParseTime(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty time")
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	var total float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		// 只有最后一段可以带小数
		if i < len(parts)-1 && v != float64(int(v)) {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		total = total*60 + v
	}
	return total, nil
}

func formatSeconds(sec float64) string {
	return chart.FormatElapsed(time.Duration(sec * float64(time.Second)))
}
