package rideapi

import (
	"context"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// VideoRef 关联视频
type VideoRef struct {
	ID string `json:"id"`
}

// Recording 后端录像元数据
type Recording struct {
	ID             string    `json:"_id"`
	Time           string    `json:"time"` // 视频开始时间（UTC）
	DeviceID       string    `json:"deviceID"`
	TenantID       string    `json:"tenantID"`
	Length         float64   `json:"length"` // 秒
	SnapshotsPaths []string  `json:"snapshots_paths"`
	LQVideo        *VideoRef `json:"lq_video,omitempty"`
	Description    string    `json:"description"`
}

// Signals 一个时间点上的信号值，保持后端顺序
type Signals = orderedmap.OrderedMap[string, json.RawMessage]

// Dataset 时间字符串 -> 信号值
type Dataset = orderedmap.OrderedMap[string, *Signals]

// VideoSignals 同步后的遥测数据，数据集、时间点、信号均保持后端顺序
type VideoSignals struct {
	Message *orderedmap.OrderedMap[string, *Dataset] `json:"message"`
}

// Dataset 按名称取数据集
func (v *VideoSignals) Dataset(name string) (*Dataset, bool) {
	if v == nil || v.Message == nil {
		return nil, false
	}
	d, ok := v.Message.Get(name)
	return d, ok && d != nil
}

type message[T any] struct {
	Message T `json:"message"`
}

// GetRecording 单条录像元数据
func (e *Engine) GetRecording(ctx context.Context, id string) (*Recording, error) {
	var out message[Recording]
	if err := e.get(ctx, "/getTableData/"+escape(id), &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

// GetVideoSignals 遥测数据
func (e *Engine) GetVideoSignals(ctx context.Context, id string) (*VideoSignals, error) {
	var out VideoSignals
	if err := e.get(ctx, "/getVideoSignals/"+escape(id), &out); err != nil {
		return nil, err
	}
	if out.Message == nil {
		out.Message = orderedmap.New[string, *Dataset]()
	}
	return &out, nil
}

// GetVideoURL 匿名化视频地址
func (e *Engine) GetVideoURL(ctx context.Context, id string) (string, error) {
	var out message[string]
	if err := e.get(ctx, "/getAnonymizedVideoUrl/"+escape(id), &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// SetDescription 保存录像描述
func (e *Engine) SetDescription(ctx context.Context, id, description string) error {
	return e.put(ctx, "/videoDescription/"+escape(id), map[string]any{"description": description}, nil)
}
