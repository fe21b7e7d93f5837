package player

import (
	"sync"
	"sync/atomic"
	"time"
)

// Task 可取消的周期任务
type Task interface {
	Cancel()
}

// Scheduler 周期调度，fn 必须在控制器所属协程中执行
type Scheduler interface {
	Every(period time.Duration, fn func()) Task
}

// Dispatcher 把函数投递到控制器所属协程
// abort 关闭后放弃投递
type Dispatcher interface {
	Dispatch(fn func(), abort <-chan struct{})
}

// TickerScheduler 基于 time.Ticker，每个 tick 通过 Dispatcher 投递
type TickerScheduler struct {
	d Dispatcher
}

// NewTickerScheduler create scheduler
func NewTickerScheduler(d Dispatcher) *TickerScheduler {
	return &TickerScheduler{d: d}
}

// Every implements Scheduler.
func (s *TickerScheduler) Every(period time.Duration, fn func()) Task {
	t := &tickerTask{stop: make(chan struct{})}
	if period <= 0 {
		period = time.Millisecond
	}
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				s.d.Dispatch(func() {
					// Cancel 之后才执行到的 tick 直接丢弃
					if t.cancelled.Load() {
						return
					}
					fn()
				}, t.stop)
			}
		}
	}()
	return t
}

type tickerTask struct {
	cancelled atomic.Bool
	once      sync.Once
	stop      chan struct{}
}

// Cancel 可重复调用，不等待协程退出
func (t *tickerTask) Cancel() {
	t.once.Do(func() {
		t.cancelled.Store(true)
		close(t.stop)
	})
}

// noopTask 空任务
type noopTask struct{}

func (noopTask) Cancel() {}
