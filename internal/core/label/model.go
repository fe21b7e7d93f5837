package label

import (
	"fmt"
	"strings"
)

// Boundary 标注边界
type Boundary struct {
	Frame   int     `json:"frame"`
	Seconds float64 `json:"seconds"`
}

// BoundaryKind 起点或终点
type BoundaryKind string

const (
	BoundaryNone  BoundaryKind = ""
	BoundaryStart BoundaryKind = "start"
	BoundaryEnd   BoundaryKind = "end"
)

// Severity 攻击行为等级
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

var severityNames = [...]string{"none", "low", "medium", "high"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// MarshalText 输出名称
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 接受名称
func (s *Severity) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	for i, n := range severityNames {
		if n == name {
			*s = Severity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", string(b))
}

// PhysicalAggression 肢体冲突
type PhysicalAggression struct {
	Severity Severity `json:"severity"`
	Weapon   bool     `json:"weapon"`
}

// Activity 标注区间内的行为
type Activity struct {
	NonPhysicalAggression Severity           `json:"non_physical_aggression"`
	PhysicalAggression    PhysicalAggression `json:"physical_aggression"`
	Driving               bool               `json:"driving"`
	Occupants             int                `json:"occupants"`
}

// SetOccupants 负数按 0 处理
func (a *Activity) SetOccupants(n int) {
	a.Occupants = max(n, 0)
}

// Normalize 修正越界字段
func (a *Activity) Normalize() {
	a.SetOccupants(a.Occupants)
	a.NonPhysicalAggression = clampSeverity(a.NonPhysicalAggression)
	a.PhysicalAggression.Severity = clampSeverity(a.PhysicalAggression.Severity)
}

func clampSeverity(s Severity) Severity {
	return min(max(s, SeverityNone), SeverityHigh)
}

// Label 一段标注
type Label struct {
	ID         string   `json:"id"`
	Start      Boundary `json:"start"`
	End        Boundary `json:"end"`
	Activities Activity `json:"activities"`
	Visibility bool     `json:"visibility"`
}

// Duration 秒
func (l Label) Duration() float64 {
	return l.End.Seconds - l.Start.Seconds
}

// Boundary 按类型取边界
func (l *Label) Boundary(kind BoundaryKind) *Boundary {
	switch kind {
	case BoundaryStart:
		return &l.Start
	case BoundaryEnd:
		return &l.End
	default:
		return nil
	}
}
