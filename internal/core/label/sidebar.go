package label

import (
	"errors"
	"math"
)

// DefaultLabelSeconds 在播放头新建标注的默认时长
const DefaultLabelSeconds = 2

// ErrNoSelection 操作需要选中的标注
var ErrNoSelection = errors.New("no label selected")

// Sidebar 标注侧栏状态，订阅播放帧号
type Sidebar struct {
	store    *Store
	fps      float64
	frame    float64
	boundary BoundaryKind
}

// NewSidebar fps 用于帧号与秒之间换算
func NewSidebar(store *Store, fps float64) *Sidebar {
	return &Sidebar{store: store, fps: fps}
}

// HandleFrame 接收 FrameChanged
// 已选中标注且选定了边界时，用当前帧覆盖该边界
func (s *Sidebar) HandleFrame(frame float64) {
	s.frame = frame
	if s.boundary == BoundaryNone {
		return
	}
	i := s.store.SelectedIndex()
	l, err := s.store.Get(i)
	if err != nil {
		return
	}
	*l.Boundary(s.boundary) = s.boundaryAt(frame)
	_ = s.store.Update(i, l)
}

// CurrentFrame 最近一次收到的帧号
func (s *Sidebar) CurrentFrame() float64 {
	return s.frame
}

// AddAtPlayhead 从当前帧开始新建默认时长的标注并选中
func (s *Sidebar) AddAtPlayhead() (int, Label) {
	start := s.boundaryAt(s.frame)
	end := s.boundaryAt(s.frame + DefaultLabelSeconds*s.fps)
	i, l := s.store.Add(Label{Start: start, End: end, Visibility: true})
	_ = s.store.SetSelectedIndex(i)
	return i, l
}

// SelectBoundary 选定后续帧更新写入的边界，BoundaryNone 取消
func (s *Sidebar) SelectBoundary(kind BoundaryKind) error {
	if kind != BoundaryNone && s.store.SelectedIndex() == NoSelection {
		return ErrNoSelection
	}
	s.boundary = kind
	return nil
}

// Boundary 当前选定的边界
func (s *Sidebar) Boundary() BoundaryKind {
	return s.boundary
}

// SetVisibility 切换标注在视频进度条上的显示
func (s *Sidebar) SetVisibility(i int, visible bool) error {
	l, err := s.store.Get(i)
	if err != nil {
		return err
	}
	l.Visibility = visible
	return s.store.Update(i, l)
}

func (s *Sidebar) boundaryAt(frame float64) Boundary {
	b := Boundary{Frame: int(math.Round(frame))}
	if s.fps > 0 {
		b.Seconds = frame / s.fps
	}
	return b
}
