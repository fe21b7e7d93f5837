package signal

import (
	"errors"
	"fmt"
)

// ErrUnknown 组或信号不存在
var ErrUnknown = errors.New("unknown signal")

// DefaultVisibleSignals 首次打开录像时默认显示的信号（摄像头健康检查）
var DefaultVisibleSignals = []string{
	"interior_camera_health_response_cvb",
	"interior_camera_health_response_cve",
	"CameraViewBlocked",
	"CameraVerticalShifted",
	"Snapshots",
}

// Selection 组内勾选状态
type Selection int

const (
	SelectionNone Selection = iota
	SelectionSome
	SelectionAll
)

func (s Selection) String() string {
	switch s {
	case SelectionAll:
		return "all"
	case SelectionSome:
		return "some"
	default:
		return "none"
	}
}

// MarshalText 输出 none/some/all
func (s Selection) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ApplyDefaults 只启用名称在 visible 中的信号
func (g *Group) ApplyDefaults(visible []string) {
	set := make(map[string]struct{}, len(visible))
	for _, v := range visible {
		set[v] = struct{}{}
	}
	g.Walk(func(_ string, s *Signal) {
		_, s.Enabled = set[s.Name]
	})
}

// SelectAll 启用或停用全部信号
func (g *Group) SelectAll(enabled bool) {
	g.Walk(func(_ string, s *Signal) {
		s.Enabled = enabled
	})
}

// Selection 计算本组（含子组）勾选状态，空组为 none
func (g *Group) Selection() Selection {
	var total, on int
	g.Walk(func(_ string, s *Signal) {
		total++
		if s.Enabled {
			on++
		}
	})
	switch {
	case on == 0:
		return SelectionNone
	case on == total:
		return SelectionAll
	default:
		return SelectionSome
	}
}

// SetEnabled 切换 groupName 下 signalName 的显示
// signalName 为空时作用于整个组；groupName 为空时在 root 自身查找
func (g *Group) SetEnabled(groupName, signalName string, enabled bool) error {
	target := g
	if groupName != "" {
		c, ok := g.Group(groupName)
		if !ok {
			return fmt.Errorf("%w: group %q", ErrUnknown, groupName)
		}
		target = c
	}
	if signalName == "" {
		target.SelectAll(enabled)
		return nil
	}
	s, ok := target.Signal(signalName)
	if !ok {
		return fmt.Errorf("%w: %q in group %q", ErrUnknown, signalName, target.Name)
	}
	s.Enabled = enabled
	return nil
}
