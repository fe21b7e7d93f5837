package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/ridecare/ridecare/internal/core/chart"
	"github.com/ridecare/ridecare/internal/core/label"
	"github.com/ridecare/ridecare/internal/core/signal"
)

const legendWidth = 24

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("58"))
	playheadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	labelBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	helpText      = "space play/pause  ←/→ frame  r reverse  f forward  +/- zoom  h/l pan  a add  x delete  j/k select  [/] boundary  g go to  q quit"
)

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	for _, w := range m.view.Warnings {
		b.WriteString(warnStyle.Render("! "+w) + "\n")
	}
	b.WriteString(m.renderChart())
	b.WriteString(m.renderScrubber())
	b.WriteString("\n")
	b.WriteString(m.renderLabels())
	if m.timeInputMode {
		b.WriteString("\ngo to: " + m.timeInput.View() + "\n")
	}
	if m.err != nil {
		b.WriteString(errStyle.Render("error: "+m.err.Error()) + "\n")
	}
	b.WriteString(dimStyle.Render(helpText))
	return b.String()
}

func (m Model) renderHeader() string {
	st := m.view.Player
	id := m.view.ID
	if rec := m.view.Recording; rec != nil {
		id = rec.ID
	}
	return fmt.Sprintf("%s  %s  %s / %s  frame %.0f  x%.2g  zoom %.1f%%-%.1f%%",
		titleStyle.Render(id),
		st.State,
		formatSeconds(st.CurrentTime),
		formatSeconds(st.TotalTime),
		st.CurrentFrame,
		st.PlaybackRate,
		st.Zoom.Start, st.Zoom.End,
	)
}

// renderChart 每条信号一行迷你图，播放头所在列高亮
func (m Model) renderChart() string {
	width := m.plotWidth()
	z := m.view.Player.Zoom
	col := -1
	if p := m.view.Player.ChartPercentage; z.Width() > 0 && z.Contains(p) {
		col = int((p - z.Start) / z.Width() * float64(width-1))
	}

	var lines []string
	for _, s := range m.series {
		name := s.Name
		if s.Snapshot {
			name = "Snapshots"
		}
		legend := lipgloss.NewStyle().Width(legendWidth).Foreground(lipgloss.Color(s.Color)).Render(truncate(name, legendWidth-1))
		lines = append(lines, legend+m.sparkline(s, width, col))
	}
	if len(lines) == 0 {
		lines = append(lines, dimStyle.Render("no signals selected"))
	}
	return boxStyle.Render(strings.Join(lines, "\n")) + "\n"
}

func (m Model) renderScrubber() string {
	width := m.plotWidth()
	cells := []rune(strings.Repeat("─", width))
	marked := make([]bool, width)
	for _, bar := range m.view.LabelBars {
		if !bar.Visibility {
			continue
		}
		lo := int(bar.Start / 100 * float64(width-1))
		hi := int(bar.End / 100 * float64(width-1))
		for i := max(lo, 0); i <= min(hi, width-1); i++ {
			marked[i] = true
		}
	}
	ph := int(m.view.Player.VideoPercentage / 100 * float64(width-1))

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", legendWidth+2))
	for i, r := range cells {
		switch {
		case i == ph:
			b.WriteString(playheadStyle.Render("┃"))
		case marked[i]:
			b.WriteString(labelBarStyle.Render("━"))
		default:
			b.WriteString(dimStyle.Render(string(r)))
		}
	}
	return b.String()
}

func (m Model) renderLabels() string {
	if len(m.view.Labels) == 0 {
		return dimStyle.Render("no labels, press a to add one at the playhead") + "\n"
	}
	var b strings.Builder
	for i, l := range m.view.Labels {
		line := fmt.Sprintf("%2d  %s  %s  %s", i+1,
			boundaryText(l.Start, m.view.Boundary == label.BoundaryStart && i == m.view.Selected),
			boundaryText(l.End, m.view.Boundary == label.BoundaryEnd && i == m.view.Selected),
			activityText(l),
		)
		if !l.Visibility {
			line += dimStyle.Render("  hidden")
		}
		if i == m.view.Selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func boundaryText(bd label.Boundary, active bool) string {
	s := fmt.Sprintf("%6d %s", bd.Frame, formatSeconds(bd.Seconds))
	if active {
		return "[" + s + "]"
	}
	return " " + s + " "
}

func activityText(l label.Label) string {
	a := l.Activities
	parts := []string{fmt.Sprintf("occupants %d", a.Occupants)}
	if a.Driving {
		parts = append(parts, "driving")
	}
	if a.NonPhysicalAggression != label.SeverityNone {
		parts = append(parts, "verbal "+a.NonPhysicalAggression.String())
	}
	if a.PhysicalAggression.Severity != label.SeverityNone {
		p := "physical " + a.PhysicalAggression.Severity.String()
		if a.PhysicalAggression.Weapon {
			p += " weapon"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}

// sparkline 按时间落到列上，值按该曲线的最小最大值归一化
func (m Model) sparkline(s chart.Series, width, playhead int) string {
	cells := []rune(strings.Repeat(" ", width))
	if s.Snapshot {
		for _, snap := range s.Snapshots {
			if c, ok := m.column(snap.VideoTime, width); ok {
				cells[c] = '◆'
			}
		}
		return withPlayhead(cells, playhead)
	}
	lo, hi := valueRange(s.Points)
	for _, p := range s.Points {
		c, ok := m.column(p.Timestamp, width)
		if !ok {
			continue
		}
		level := 0
		if hi > lo {
			level = int((p.Value - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		cells[c] = sparkRunes[level]
	}
	return withPlayhead(cells, playhead)
}

// column 时间戳在窗口内对应的列
func (m Model) column(ts time.Time, width int) (int, bool) {
	span := m.windowHi.Sub(m.windowLo)
	if span <= 0 || ts.Before(m.windowLo) || ts.After(m.windowHi) {
		return 0, false
	}
	return int(float64(ts.Sub(m.windowLo)) / float64(span) * float64(width-1)), true
}

func withPlayhead(cells []rune, playhead int) string {
	if playhead < 0 || playhead >= len(cells) {
		return string(cells)
	}
	return string(cells[:playhead]) + playheadStyle.Render(string(cells[playhead])) + string(cells[playhead+1:])
}

func valueRange(pts []signal.Point) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		lo = min(lo, p.Value)
		hi = max(hi, p.Value)
	}
	return lo, hi
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
