// Package bus 提供单生产者、有序分发的发布订阅
//
// 所有处理函数在 Publish 的调用者协程内同步执行，按订阅顺序依次调用。
package bus

import "sync"

// Topic 事件流，无当前值
type Topic[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Subscribe 注册处理函数，返回取消订阅函数，可重复调用
func (t *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscriber[T]{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.remove(id) })
	}
}

func (t *Topic[T]) remove(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.subs {
		if s.id == id {
			t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
			return
		}
	}
}

// Publish 同步通知所有订阅者
// 处理函数在锁外执行，允许在回调中取消订阅
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	subs := make([]subscriber[T], len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len 当前订阅者数量
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Value 带当前值的事件流，新订阅者会立即收到当前值
type Value[T any] struct {
	topic Topic[T]

	mu  sync.RWMutex
	cur T
}

// NewValue 以初始值创建
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial}
}

// Get 返回当前值
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cur
}

// Set 更新当前值并通知订阅者
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	v.cur = x
	v.mu.Unlock()
	v.topic.Publish(x)
}

// Put 只更新当前值，不通知，需配合 Notify 使用
// 用于多个 Value 需要一起更新后再统一发布的场景
func (v *Value[T]) Put(x T) {
	v.mu.Lock()
	v.cur = x
	v.mu.Unlock()
}

// Notify 向订阅者发布当前值
func (v *Value[T]) Notify() {
	v.topic.Publish(v.Get())
}

// Subscribe 先回放当前值，再接收后续更新
func (v *Value[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	fn(v.Get())
	return v.topic.Subscribe(fn)
}
