package player

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ridecare/ridecare/internal/core/label"
)

var (
	ErrDragEnded       = errors.New("drag already ended")
	ErrInvalidBoundary = errors.New("boundary must be start or end")
	ErrInvalidBar      = errors.New("bar right edge must be greater than left edge")
)

// Drag 拖拽标注边界，指针抬起时调用 End
type Drag struct {
	c        *Controller
	kind     label.BoundaryKind
	id       string
	barLeft  float64
	barRight float64
	lastX    float64
	lastMove time.Time
	ended    bool
}

var _ Task = (*Drag)(nil)

// BeginDrag 开始拖拽选中标注的边界，会取消上一次拖拽
func (c *Controller) BeginDrag(kind label.BoundaryKind, pageX, barLeft, barRight float64) (*Drag, error) {
	if kind != label.BoundaryStart && kind != label.BoundaryEnd {
		return nil, ErrInvalidBoundary
	}
	if !(barRight > barLeft) {
		return nil, ErrInvalidBar
	}
	l, ok := c.labels.SelectedLabel()
	if !ok {
		return nil, label.ErrNoSelection
	}
	c.cancelDrag()
	d := &Drag{
		c:        c,
		kind:     kind,
		id:       l.ID,
		barLeft:  barLeft,
		barRight: barRight,
		lastX:    math.Max(barLeft, math.Min(barRight, pageX)),
	}
	c.drag = d
	return d, nil
}

// ActiveDrag 当前拖拽
func (c *Controller) ActiveDrag() (*Drag, bool) {
	return c.drag, c.drag != nil
}

func (c *Controller) cancelDrag() {
	if c.drag != nil {
		c.drag.Cancel()
	}
}

// Move 指针移动，节流窗口内的移动被忽略（返回 false）
// 被拖动的边界截断到 [0, 视频时长]，且不越过另一边界
func (d *Drag) Move(pageX float64) (label.Label, bool, error) {
	if d.ended {
		return label.Label{}, false, ErrDragEnded
	}
	now := d.c.now()
	if !d.lastMove.IsZero() && now.Sub(d.lastMove) < d.c.dragThrottle {
		return label.Label{}, false, nil
	}
	d.lastMove = now

	x := math.Max(d.barLeft, math.Min(d.barRight, pageX))
	shift := d.c.totalTime / (d.barRight - d.barLeft) * (x - d.lastX)
	d.lastX = x

	idx := d.c.labels.IndexOf(d.id)
	if idx < 0 {
		d.Cancel()
		return label.Label{}, false, fmt.Errorf("%w: id %s", label.ErrNotFound, d.id)
	}
	l, err := d.c.labels.Get(idx)
	if err != nil {
		return label.Label{}, false, err
	}

	lo, hi := 0.0, d.c.totalTime
	if d.kind == label.BoundaryStart {
		hi = math.Min(hi, l.End.Seconds)
	} else {
		lo = math.Max(lo, l.Start.Seconds)
	}
	b := l.Boundary(d.kind)
	sec := math.Max(lo, math.Min(hi, b.Seconds+shift))
	*b = label.Boundary{Seconds: sec, Frame: int(math.Round(sec * d.c.fps))}

	if err := d.c.labels.Update(idx, l); err != nil {
		return label.Label{}, false, err
	}
	return l, true, nil
}

// End 指针抬起
func (d *Drag) End() {
	d.Cancel()
}

// Cancel implements Task.
func (d *Drag) Cancel() {
	d.ended = true
	if d.c.drag == d {
		d.c.drag = nil
	}
}

// Boundary 拖拽的边界
func (d *Drag) Boundary() label.BoundaryKind {
	return d.kind
}
