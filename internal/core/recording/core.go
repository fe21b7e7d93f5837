package recording

import (
	"context"
	"strings"

	"github.com/ridecare/ridecare/internal/conf"
	"github.com/ridecare/ridecare/pkg/rideapi"
)

// Storer data persistence
type Storer interface {
	Recording() RecordingStorer
}

// Backend 元数据后端，解耦录像领域与 rideapi 客户端
type Backend interface {
	GetRecording(ctx context.Context, id string) (*rideapi.Recording, error)
	GetVideoURL(ctx context.Context, id string) (string, error)
	SetDescription(ctx context.Context, id, description string) error
}

// Core business domain
type Core struct {
	store   Storer
	conf    *conf.ServerRecording
	backend Backend
}

type Option func(*Core)

// WithBackend 注入元数据后端，本地缺失的录像从后端拉取并缓存
func WithBackend(b Backend) Option {
	return func(c *Core) {
		c.backend = b
	}
}

// WithConfig 注入录像配置
func WithConfig(conf *conf.ServerRecording) Option {
	return func(c *Core) {
		c.conf = conf
	}
}

// NewCore create business domain
func NewCore(store Storer, opts ...Option) Core {
	c := Core{store: store}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// HasBackend 是否配置了元数据后端
func (c Core) HasBackend() bool {
	return c.backend != nil
}

// GetFullPath 获取录像文件的完整路径
// relativePath 可能是相对于 StorageDir 的路径，也可能是完整路径
func (c Core) GetFullPath(relativePath string) string {
	if c.conf == nil || c.conf.StorageDir == "" {
		return relativePath
	}
	if strings.HasPrefix(relativePath, "/") || strings.HasPrefix(relativePath, c.conf.StorageDir) {
		return relativePath
	}
	return strings.TrimSuffix(c.conf.StorageDir, "/") + "/" + relativePath
}
