package review

import (
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/ridecare/ridecare/internal/core/player"
)

// ErrClosed 会话已关闭
var ErrClosed = errors.New("review session closed")

// Loop 单协程事件循环，会话的全部状态只在该协程上读写
type Loop struct {
	ch   chan func()
	done chan struct{}
	once sync.Once
}

var _ player.Dispatcher = (*Loop)(nil)

// NewLoop 启动事件循环
func NewLoop() *Loop {
	l := &Loop{
		ch:   make(chan func()),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	for {
		select {
		case <-l.done:
			return
		case fn := <-l.ch:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if err := recover(); err != nil {
			slog.Error("review loop panic", "err", err, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Dispatch implements player.Dispatcher.
func (l *Loop) Dispatch(fn func(), abort <-chan struct{}) {
	select {
	case l.ch <- fn:
	case <-abort:
	case <-l.done:
	}
}

// Do 在事件循环上执行 fn 并等待结束
// 不能在事件循环内部调用
func (l *Loop) Do(fn func()) error {
	res := make(chan struct{})
	wrapped := func() {
		defer close(res)
		fn()
	}
	select {
	case l.ch <- wrapped:
	case <-l.done:
		return ErrClosed
	}
	// 无缓冲通道，发送成功即已被事件循环接收
	<-res
	return nil
}

// Close 停止事件循环，可重复调用
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

// Done 事件循环停止后关闭
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
