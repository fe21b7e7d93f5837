package review

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ixugo/goddd/pkg/conc"
)

var (
	ErrSessionNotFound = errors.New("review session not found")
	ErrTooManySessions = errors.New("too many open review sessions")
)

// ManagerConfig 会话管理参数
type ManagerConfig struct {
	IdleTimeout time.Duration // <= 0 不回收
	MaxSessions int           // <= 0 不限制
}

// Manager 管理打开的会话，空闲超时的会话被回收
type Manager struct {
	loader   *Loader
	opts     Options
	cfg      ManagerConfig
	sessions conc.Map[string, *Session]

	// 已占用的名额，含正在加载的会话
	slots atomic.Int64
	log   *slog.Logger
}

// NewManager create manager
func NewManager(loader *Loader, opts Options, cfg ManagerConfig) *Manager {
	return &Manager{
		loader: loader,
		opts:   opts,
		cfg:    cfg,
		log:    slog.With("component", "review"),
	}
}

// Open 拉取数据并创建会话
func (m *Manager) Open(ctx context.Context, recordingID string) (*Session, error) {
	if !m.reserve() {
		return nil, ErrTooManySessions
	}
	data, err := m.loader.Load(ctx, recordingID)
	if err != nil {
		m.slots.Add(-1)
		return nil, err
	}
	s := NewSession(uuid.NewString(), data, m.opts)
	m.sessions.Store(s.ID, s)
	m.log.InfoContext(ctx, "session opened", "sid", s.ID, "recording_id", recordingID, "warnings", len(data.Warnings))
	return s, nil
}

// reserve 加载前占用名额，并发 Open 不会超过 MaxSessions
func (m *Manager) reserve() bool {
	for {
		n := m.slots.Load()
		if m.cfg.MaxSessions > 0 && n >= int64(m.cfg.MaxSessions) {
			return false
		}
		if m.slots.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Get 按会话 ID 查找
func (m *Manager) Get(id string) (*Session, error) {
	s, ok := m.sessions.Load(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close 关闭会话
func (m *Manager) Close(id string) error {
	s, ok := m.sessions.LoadAndDelete(id)
	if !ok {
		return ErrSessionNotFound
	}
	m.slots.Add(-1)
	s.Close()
	m.log.Info("session closed", "sid", id)
	return nil
}

// SessionInfo 会话摘要
type SessionInfo struct {
	ID          string    `json:"id"`
	RecordingID string    `json:"recording_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// List 按创建时间排序
func (m *Manager) List() []SessionInfo {
	out := make([]SessionInfo, 0, 8)
	m.sessions.Range(func(_ string, s *Session) bool {
		out = append(out, SessionInfo{ID: s.ID, RecordingID: s.RecordingID, CreatedAt: s.CreatedAt})
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len 打开的会话数
func (m *Manager) Len() int {
	var n int
	m.sessions.Range(func(string, *Session) bool {
		n++
		return true
	})
	return n
}

// Run 定期回收空闲会话，阻塞到 ctx 结束
func (m *Manager) Run(ctx context.Context) {
	if m.cfg.IdleTimeout <= 0 {
		return
	}
	interval := max(m.cfg.IdleTimeout/4, time.Second)
	conc.Timer(ctx, interval, interval, func() {
		m.EvictIdle(time.Now())
	})
}

// EvictIdle 关闭空闲超过 IdleTimeout 的会话，返回关闭数量
func (m *Manager) EvictIdle(now time.Time) int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	var idle []string
	m.sessions.Range(func(id string, s *Session) bool {
		if s.IdleSince(now) > m.cfg.IdleTimeout {
			idle = append(idle, id)
		}
		return true
	})
	for _, id := range idle {
		_ = m.Close(id)
	}
	return len(idle)
}

// CloseAll 关闭全部会话
func (m *Manager) CloseAll() {
	m.sessions.Range(func(id string, _ *Session) bool {
		_ = m.Close(id)
		return true
	})
}
