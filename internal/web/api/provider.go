package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/web"
	"github.com/ridecare/ridecare/internal/conf"
	"github.com/ridecare/ridecare/internal/core/recording"
	"github.com/ridecare/ridecare/internal/core/recording/store/recordingdb"
	"github.com/ridecare/ridecare/internal/core/review"
	"github.com/ridecare/ridecare/internal/core/telemetry"
	"github.com/ridecare/ridecare/pkg/rideapi"
	"gorm.io/gorm"
)

var (
	// ReviewProviderSet 审阅会话所需依赖，终端审阅与 http 服务共用
	ReviewProviderSet = wire.NewSet(
		NewBackend,
		NewRecordingStore, NewRecordingCore,
		NewSignalSource, NewReviewLoader, NewReviewManager,
	)
	ProviderSet = wire.NewSet(
		wire.Struct(new(Usecase), "*"),
		NewHTTPHandler,
		ReviewProviderSet,
		NewRecordingAPI, NewReviewAPI,
	)
)

type Usecase struct {
	Conf         *conf.Bootstrap
	DB           *gorm.DB
	RecordingAPI RecordingAPI
	ReviewAPI    ReviewAPI
}

// NewHTTPHandler 生成Gin框架路由内容
func NewHTTPHandler(uc *Usecase) http.Handler {
	cfg := uc.Conf.Server
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	g := gin.New()
	// 如果启用了 Pprof，设置 Pprof 监控
	if cfg.HTTP.PProf.Enabled {
		web.SetupPProf(g, &cfg.HTTP.PProf.AccessIps)
	}

	setupRouter(g, uc)
	return g
}

// NewBackend 车队后端 REST 客户端，未配置地址时 Enabled 为 false
func NewBackend(bc *conf.Bootstrap) *rideapi.Engine {
	e := rideapi.NewEngine().SetConfig(rideapi.Config{
		URL:     bc.Backend.URL,
		Timeout: bc.Backend.Timeout.Duration(),
	})
	return &e
}

// NewRecordingStore 创建录像存储层
func NewRecordingStore(db *gorm.DB) recording.Storer {
	return recordingdb.NewDB(db).AutoMigrate(orm.GetEnabledAutoMigrate())
}

// NewRecordingCore 创建录像核心服务，配置了后端时本地缺失的录像从后端拉取
func NewRecordingCore(store recording.Storer, bc *conf.Bootstrap, backend *rideapi.Engine) recording.Core {
	opts := []recording.Option{recording.WithConfig(&bc.Server.Recording)}
	if backend.Enabled() {
		opts = append(opts, recording.WithBackend(backend))
	}
	return recording.NewCore(store, opts...)
}

// NewSignalSource 未配置后端时没有遥测来源
func NewSignalSource(backend *rideapi.Engine) review.SignalSource {
	if !backend.Enabled() {
		return nil
	}
	return telemetry.NewFetcher(backend)
}

func NewReviewLoader(core recording.Core, signals review.SignalSource) *review.Loader {
	return review.NewLoader(core, signals)
}

// NewReviewManager 创建会话管理并启动空闲回收
func NewReviewManager(loader *review.Loader, bc *conf.Bootstrap, log *slog.Logger) (*review.Manager, func()) {
	cfg := bc.Review
	m := review.NewManager(loader, review.Options{
		FPS:                   cfg.FPS,
		DefaultVisibleSignals: cfg.DefaultVisibleSignals,
		MarkerWidth:           cfg.MarkerWidth,
		DragThrottle:          cfg.DragThrottle.Duration(),
		TimeUpdateInterval:    cfg.TimeUpdateInterval.Duration(),
	}, review.ManagerConfig{
		IdleTimeout: cfg.IdleTimeout.Duration(),
		MaxSessions: cfg.MaxSessions,
	})
	log.Info("review sessions", "max", cfg.MaxSessions, "idle_timeout", cfg.IdleTimeout.Duration().String())
	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	return m, func() {
		cancel()
		m.CloseAll()
	}
}
