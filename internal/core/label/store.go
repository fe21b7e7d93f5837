// Package label 会话内的标注列表与选中项
//
// 标注既可按下标也可按 ID 访问。每次修改同步发布新的列表与选中下标。
package label

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/ridecare/ridecare/internal/core/bus"
)

// NoSelection 未选中
const NoSelection = -1

var (
	ErrIndexOutOfRange = errors.New("label index out of range")
	ErrNotFound        = errors.New("label not found")
)

// Store 标注存储，非并发安全
type Store struct {
	labels   *bus.Value[[]Label]
	selected *bus.Value[int]
}

// NewStore 空列表，未选中
func NewStore() *Store {
	return &Store{
		labels:   bus.NewValue([]Label{}),
		selected: bus.NewValue(NoSelection),
	}
}

// Labels 列表变更流，订阅时立即收到当前列表
func (s *Store) Labels() *bus.Value[[]Label] {
	return s.labels
}

// Selected 选中下标变更流
func (s *Store) Selected() *bus.Value[int] {
	return s.selected
}

// List 返回副本
func (s *Store) List() []Label {
	return slices.Clone(s.labels.Get())
}

// Len 数量
func (s *Store) Len() int {
	return len(s.labels.Get())
}

// Get 按下标读取
func (s *Store) Get(i int) (Label, error) {
	list := s.labels.Get()
	if err := checkIndex(i, len(list)); err != nil {
		return Label{}, err
	}
	return list[i], nil
}

// Add 追加并分配 ID，返回新下标
func (s *Store) Add(l Label) (int, Label) {
	l.ID = uuid.NewString()
	l.Activities.Normalize()
	list := append(s.List(), l)
	s.labels.Set(list)
	return len(list) - 1, l
}

// Update 替换下标 i 的标注，ID 保持不变
func (s *Store) Update(i int, l Label) error {
	list := s.List()
	if err := checkIndex(i, len(list)); err != nil {
		return err
	}
	l.ID = list[i].ID
	l.Activities.Normalize()
	list[i] = l
	s.labels.Set(list)
	return nil
}

// Delete 删除下标 i
// 删除的正是选中项时取消选中；删除选中项之前的标注时选中下标前移，仍指向同一标注
func (s *Store) Delete(i int) error {
	list := s.List()
	if err := checkIndex(i, len(list)); err != nil {
		return err
	}
	list = slices.Delete(list, i, i+1)

	// 列表与选中下标都更新完再发布，订阅者读到的下标总在列表范围内
	sel := s.selected.Get()
	selChanged := true
	switch {
	case sel == i:
		sel = NoSelection
	case sel > i:
		sel--
	default:
		selChanged = false
	}
	s.labels.Put(list)
	s.selected.Put(sel)
	s.labels.Notify()
	if selChanged {
		s.selected.Notify()
	}
	return nil
}

// SelectedIndex 当前选中下标，-1 表示未选中
func (s *Store) SelectedIndex() int {
	return s.selected.Get()
}

// SetSelectedIndex i 必须是 -1 或有效下标
func (s *Store) SetSelectedIndex(i int) error {
	if i != NoSelection {
		if err := checkIndex(i, s.Len()); err != nil {
			return err
		}
	}
	s.selected.Set(i)
	return nil
}

// SelectedLabel 当前选中的标注
func (s *Store) SelectedLabel() (Label, bool) {
	i := s.SelectedIndex()
	if i == NoSelection {
		return Label{}, false
	}
	l, err := s.Get(i)
	return l, err == nil
}

// IndexOf 按 ID 查下标
func (s *Store) IndexOf(id string) int {
	return slices.IndexFunc(s.labels.Get(), func(l Label) bool { return l.ID == id })
}

// GetByID 按 ID 读取
func (s *Store) GetByID(id string) (Label, error) {
	i := s.IndexOf(id)
	if i < 0 {
		return Label{}, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return s.labels.Get()[i], nil
}

// UpdateByID 按 ID 更新
func (s *Store) UpdateByID(id string, l Label) error {
	i := s.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return s.Update(i, l)
}

// DeleteByID 按 ID 删除
func (s *Store) DeleteByID(id string) error {
	i := s.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return s.Delete(i)
}

func checkIndex(i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%w: index %d, len %d", ErrIndexOutOfRange, i, n)
	}
	return nil
}
