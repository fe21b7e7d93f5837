package review

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ridecare/ridecare/internal/core/recording"
	"github.com/ridecare/ridecare/internal/core/signal"
	"golang.org/x/sync/errgroup"
)

// RecordingSource 录像元数据与视频地址
type RecordingSource interface {
	GetRecording(ctx context.Context, id string) (*recording.Recording, error)
	VideoURL(ctx context.Context, id string) (string, error)
}

// SignalSource 遥测数据，fallbackID 为低清视频 ID
type SignalSource interface {
	GetSignals(ctx context.Context, id, fallbackID string) (*signal.Group, error)
}

// Loader 并发拉取会话数据
// 录像元数据必须存在；遥测与视频地址失败时只记录告警
type Loader struct {
	recordings RecordingSource
	signals    SignalSource
}

// NewLoader signals 为空表示没有遥测后端
func NewLoader(recordings RecordingSource, signals SignalSource) *Loader {
	return &Loader{recordings: recordings, signals: signals}
}

// Load 拉取录像 id 的数据
func (l *Loader) Load(ctx context.Context, id string) (Data, error) {
	rec, err := l.recordings.GetRecording(ctx, id)
	if err != nil {
		return Data{}, err
	}
	data := Data{Recording: rec}

	var mu sync.Mutex
	warn := func(msg string, err error) {
		slog.WarnContext(ctx, msg, "recording_id", id, "err", err)
		mu.Lock()
		data.Warnings = append(data.Warnings, msg+": "+err.Error())
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	if l.signals != nil {
		g.Go(func() error {
			root, err := l.signals.GetSignals(gctx, id, rec.LQVideoID)
			if err != nil {
				warn("telemetry unavailable", err)
				return nil
			}
			mu.Lock()
			data.Signals = root
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		u, err := l.recordings.VideoURL(gctx, id)
		if err != nil {
			warn("video unavailable", err)
			return nil
		}
		mu.Lock()
		data.VideoURL = u
		mu.Unlock()
		return nil
	})
	_ = g.Wait()
	return data, nil
}
