package chart

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/ridecare/ridecare/internal/core/signal"
)

// FormatElapsed mm:ss.mmm，超过一小时为 HH:mm:ss.mmm
func FormatElapsed(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	ms %= 1000
	if h > 0 {
		return fmt.Sprintf("%s%02d:%02d:%02d.%03d", sign, h, m, s, ms)
	}
	return fmt.Sprintf("%s%02d:%02d.%03d", sign, m, s, ms)
}

// FormatTimestamp 基准日时间戳格式化
func FormatTimestamp(ts time.Time) string {
	return FormatElapsed(ts.Sub(signal.Baseline))
}

// Tooltip 悬停提示
type Tooltip struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// TooltipAtX 快照命中时显示快照信息，否则显示各曲线最近点的值
func (t *Timeline) TooltipAtX(x, hitRadius float64) Tooltip {
	if s, ok := t.SnapshotAtX(x, hitRadius); ok {
		return Tooltip{
			Title: "Snapshot at " + FormatTimestamp(s.VideoTime),
			Lines: []string{
				"Recorded: " + s.RecordTime.UTC().Format(time.RFC3339Nano),
				"Name: " + s.Name,
				"Frame: " + strconv.Itoa(s.Frame),
				"Click to copy snapshot ID",
			},
		}
	}

	ts := t.ScaleToTimestamp(t.PercentAtX(x))
	tip := Tooltip{Title: FormatTimestamp(ts)}
	for _, s := range t.series {
		p, ok := nearest(s.Points, ts)
		if !ok {
			continue
		}
		tip.Lines = append(tip.Lines, fmt.Sprintf("%s: %s", s.Name, strconv.FormatFloat(p.Value, 'f', -1, 64)))
	}
	return tip
}

func nearest(pts []signal.Point, ts time.Time) (signal.Point, bool) {
	var best signal.Point
	bestDist := time.Duration(math.MaxInt64)
	for _, p := range pts {
		d := p.Timestamp.Sub(ts)
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, len(pts) > 0
}
