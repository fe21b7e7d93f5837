package scaling

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func TestVideoShorterThanTelemetry(t *testing.T) {
	b := NewBridge()
	b.SetScalingFactor(600, 540)

	if !near(b.VideoToChartRatio(), 0.9) {
		t.Fatalf("ratio = %v", b.VideoToChartRatio())
	}

	b.SetVideoPercentage(50)
	if !near(b.ChartPercentage(), 45) {
		t.Fatalf("chart = %v, want 45", b.ChartPercentage())
	}
	if !near(b.VideoPercentage(), 50) {
		t.Fatalf("video = %v, want 50", b.VideoPercentage())
	}

	// 超出图表定义域的点击截断到视频末尾
	b.SetChartPercentage(95)
	if !near(b.ChartPercentage(), 90) || !near(b.VideoPercentage(), 100) {
		t.Fatalf("chart=%v video=%v", b.ChartPercentage(), b.VideoPercentage())
	}
}

func TestRoundTrip(t *testing.T) {
	b := NewBridge()
	b.SetScalingFactor(1200, 300)
	for _, p := range []float64{0, 1, 12.5, 25} {
		b.SetChartPercentage(p)
		video := b.VideoPercentage()
		b.SetVideoPercentage(video)
		if !near(b.ChartPercentage(), p) {
			t.Errorf("round trip %v -> %v", p, b.ChartPercentage())
		}
	}
}

func TestClampOutOfRange(t *testing.T) {
	b := NewBridge()
	b.SetScalingFactor(100, 100)
	for _, p := range []float64{-10, 150, math.NaN(), math.Inf(1)} {
		b.SetChartPercentage(p)
		if c := b.ChartPercentage(); c < 0 || c > 100 {
			t.Errorf("chart %v out of range for input %v", c, p)
		}
		b.SetVideoPercentage(p)
		if v := b.VideoPercentage(); v < 0 || v > 100 {
			t.Errorf("video %v out of range for input %v", v, p)
		}
	}
}

func TestEmptyState(t *testing.T) {
	b := NewBridge()
	b.SetScalingFactor(0, 0)
	if b.Factor() != 1 {
		t.Fatalf("factor = %v", b.Factor())
	}
	b.SetScalingFactor(math.NaN(), 10)
	if b.Factor() != 1 {
		t.Fatalf("factor = %v", b.Factor())
	}
}

func TestOneNotificationPerMutation(t *testing.T) {
	b := NewBridge()
	var got []Change
	b.Changes().Subscribe(func(c Change) { got = append(got, c) })

	b.SetChartPercentage(10)
	b.SetVideoPercentage(20)
	b.SetScalingFactor(10, 5)

	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0].Source != SourceChart || got[1].Source != SourceVideo {
		t.Fatalf("unexpected sources %+v", got)
	}
}

func TestFactorChangeReclamps(t *testing.T) {
	b := NewBridge()
	b.SetChartPercentage(80)
	b.SetScalingFactor(200, 100)
	if !near(b.ChartPercentage(), 50) {
		t.Fatalf("chart = %v, want 50", b.ChartPercentage())
	}
}
