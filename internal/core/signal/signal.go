// Package signal 遥测信号树
//
// 信号按数据集分组，组可以嵌套。点只追加，不排序、不去重。
package signal

import (
	"time"
)

// Baseline 遥测时间戳与快照视频时间统一换算到的基准日
var Baseline = time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC)

// Point 单个采样点
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Signal 一条命名的时间序列
type Signal struct {
	Name    string  `json:"name"`
	Values  []Point `json:"values"`
	Enabled bool    `json:"enabled"`
}

// NewSignal 默认启用
func NewSignal(name string) *Signal {
	return &Signal{Name: name, Enabled: true}
}

// Bounds 时间范围
func (s *Signal) Bounds() (Bounds, bool) {
	var b Bounds
	var ok bool
	for _, p := range s.Values {
		b, ok = mergeBounds(b, ok, Bounds{Min: p.Timestamp, Max: p.Timestamp}, true)
	}
	return b, ok
}

// Group 信号组
type Group struct {
	Name    string    `json:"name"`
	Groups  []*Group  `json:"groups"`
	Signals []*Signal `json:"signals"`
}

// NewGroup create group
func NewGroup(name string) *Group {
	return &Group{Name: name}
}

// Signal 按名称查找组内信号
func (g *Group) Signal(name string) (*Signal, bool) {
	for _, s := range g.Signals {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Append 找到或创建同名信号并追加点
func (g *Group) Append(signalName string, p Point) *Signal {
	s, ok := g.Signal(signalName)
	if !ok {
		s = NewSignal(signalName)
		g.Signals = append(g.Signals, s)
	}
	s.Values = append(s.Values, p)
	return s
}

// Child 找到或创建直接子组，保持插入顺序
func (g *Group) Child(name string) *Group {
	if c, ok := g.Group(name); ok {
		return c
	}
	c := NewGroup(name)
	g.Groups = append(g.Groups, c)
	return c
}

// Group 按名称查找直接子组
func (g *Group) Group(name string) (*Group, bool) {
	for _, c := range g.Groups {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// AppendTo 追加到 root 下名为 groupName 的子组
// groupName 为空时追加到 root 本身
func AppendTo(root *Group, groupName, signalName string, p Point) *Signal {
	target := root
	if groupName != "" {
		target = root.Child(groupName)
	}
	return target.Append(signalName, p)
}

// Bounds 递归计算所有后代点的时间范围，没有任何点时 ok 为 false
func (g *Group) Bounds() (Bounds, bool) {
	var b Bounds
	var ok bool
	for _, s := range g.Signals {
		sb, sok := s.Bounds()
		b, ok = mergeBounds(b, ok, sb, sok)
	}
	for _, c := range g.Groups {
		cb, cok := c.Bounds()
		b, ok = mergeBounds(b, ok, cb, cok)
	}
	return b, ok
}

// Walk 深度优先遍历：先本组信号，再子组
// top 为顶层数据集名称，root 自身的信号 top 为 root 名称
func (g *Group) Walk(fn func(top string, s *Signal)) {
	for _, s := range g.Signals {
		fn(g.Name, s)
	}
	for _, c := range g.Groups {
		c.walk(c.Name, fn)
	}
}

func (g *Group) walk(top string, fn func(string, *Signal)) {
	for _, s := range g.Signals {
		fn(top, s)
	}
	for _, c := range g.Groups {
		c.walk(top, fn)
	}
}

// Len 叶子信号总数
func (g *Group) Len() int {
	var n int
	g.Walk(func(string, *Signal) { n++ })
	return n
}

// Bounds 闭区间 [Min, Max]
type Bounds struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// Duration Max - Min
func (b Bounds) Duration() time.Duration {
	return b.Max.Sub(b.Min)
}

// Merge 合并两个范围
func (b Bounds) Merge(o Bounds) Bounds {
	out := b
	if o.Min.Before(out.Min) {
		out.Min = o.Min
	}
	if o.Max.After(out.Max) {
		out.Max = o.Max
	}
	return out
}

// mergeBounds "无数据" 与 x 合并得到 x
func mergeBounds(a Bounds, aok bool, b Bounds, bok bool) (Bounds, bool) {
	switch {
	case !aok:
		return b, bok
	case !bok:
		return a, aok
	default:
		return a.Merge(b), true
	}
}
