package player

import (
	"math"
	"time"
)

// Media 视频元素
type Media interface {
	CurrentTime() float64
	SetCurrentTime(seconds float64)
	Duration() float64
	Paused() bool
	Play()
	Pause()
	SetPlaybackRate(rate float64)
}

// MediaEvents 视频元素回调
type MediaEvents interface {
	HandleDurationChange()
	HandleTimeUpdate()
	HandleEnded()
}

// DefaultTimeUpdateInterval 浏览器 timeupdate 的典型间隔
const DefaultTimeUpdateInterval = 250 * time.Millisecond

// VirtualMedia 无界面的视频元素
// 播放时按固定间隔推进时间并触发 timeupdate，到结尾暂停并触发 ended
type VirtualMedia struct {
	sched    Scheduler
	interval time.Duration
	events   MediaEvents

	current  float64
	duration float64
	rate     float64
	paused   bool
	task     Task
}

var _ Media = (*VirtualMedia)(nil)

// NewVirtualMedia interval <= 0 时使用 DefaultTimeUpdateInterval
func NewVirtualMedia(sched Scheduler, interval time.Duration) *VirtualMedia {
	if interval <= 0 {
		interval = DefaultTimeUpdateInterval
	}
	return &VirtualMedia{sched: sched, interval: interval, rate: 1, paused: true, task: noopTask{}}
}

// Attach 注册回调
func (m *VirtualMedia) Attach(ev MediaEvents) {
	m.events = ev
}

// Load 设置时长并触发 durationchange，当前时间归零
func (m *VirtualMedia) Load(duration float64) {
	m.Pause()
	if !(duration > 0) || math.IsInf(duration, 0) {
		duration = 0
	}
	m.duration = duration
	m.current = 0
	if m.events != nil {
		m.events.HandleDurationChange()
		m.events.HandleTimeUpdate()
	}
}

// CurrentTime implements Media.
func (m *VirtualMedia) CurrentTime() float64 { return m.current }

// Duration implements Media.
func (m *VirtualMedia) Duration() float64 { return m.duration }

// Paused implements Media.
func (m *VirtualMedia) Paused() bool { return m.paused }

// PlaybackRate 当前倍速
func (m *VirtualMedia) PlaybackRate() float64 { return m.rate }

// SetPlaybackRate implements Media.
func (m *VirtualMedia) SetPlaybackRate(rate float64) {
	if rate > 0 {
		m.rate = rate
	}
}

// SetCurrentTime implements Media.
func (m *VirtualMedia) SetCurrentTime(seconds float64) {
	if math.IsNaN(seconds) {
		return
	}
	m.current = math.Max(0, math.Min(m.duration, seconds))
	m.timeUpdate()
}

// Play implements Media.
func (m *VirtualMedia) Play() {
	if !m.paused || m.duration <= 0 {
		return
	}
	if m.current >= m.duration {
		m.current = 0
	}
	m.paused = false
	m.task = m.sched.Every(m.interval, m.tick)
}

// Pause implements Media.
func (m *VirtualMedia) Pause() {
	m.task.Cancel()
	m.task = noopTask{}
	m.paused = true
}

func (m *VirtualMedia) tick() {
	m.current += m.interval.Seconds() * m.rate
	if m.current >= m.duration {
		m.current = m.duration
		m.Pause()
		m.timeUpdate()
		if m.events != nil {
			m.events.HandleEnded()
		}
		return
	}
	m.timeUpdate()
}

func (m *VirtualMedia) timeUpdate() {
	if m.events != nil {
		m.events.HandleTimeUpdate()
	}
}
