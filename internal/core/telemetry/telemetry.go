// Package telemetry 拉取并解析录像的同步遥测数据
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ridecare/ridecare/internal/core/signal"
	"github.com/ridecare/ridecare/pkg/rideapi"
)

// 主数据缺失时从低清视频补齐的数据集，按优先级排列
var fallbackDatasets = []string{"MDF", "MDFParser"}

// SignalsAPI 遥测数据来源
type SignalsAPI interface {
	GetVideoSignals(ctx context.Context, id string) (*rideapi.VideoSignals, error)
}

// Fetcher 遥测拉取
type Fetcher struct {
	api SignalsAPI
	log *slog.Logger
}

// NewFetcher create fetcher
func NewFetcher(api SignalsAPI) *Fetcher {
	return &Fetcher{api: api, log: slog.With("component", "telemetry")}
}

// GetSignals 拉取 id 的遥测数据并解析为信号树
// 主数据既没有 MDF 也没有 MDFParser 且 fallbackID 非空时，从 fallbackID 补齐其中一个
func (f *Fetcher) GetSignals(ctx context.Context, id, fallbackID string) (*signal.Group, error) {
	primary, err := f.api.GetVideoSignals(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get video signals %s: %w", id, err)
	}
	if !hasAny(primary, fallbackDatasets) && fallbackID != "" {
		f.merge(ctx, primary, fallbackID)
	}
	return Parse(primary)
}

func (f *Fetcher) merge(ctx context.Context, primary *rideapi.VideoSignals, fallbackID string) {
	fb, err := f.api.GetVideoSignals(ctx, fallbackID)
	if err != nil {
		f.log.WarnContext(ctx, "fallback signals unavailable", "fallback_id", fallbackID, "err", err)
		return
	}
	for _, name := range fallbackDatasets {
		if d, ok := fb.Dataset(name); ok {
			primary.Message.Set(name, d)
			f.log.InfoContext(ctx, "acquired fallback dataset", "dataset", name, "fallback_id", fallbackID)
			return
		}
	}
}

func hasAny(v *rideapi.VideoSignals, names []string) bool {
	for _, n := range names {
		if _, ok := v.Dataset(n); ok {
			return true
		}
	}
	return false
}

// Parse 转换为信号树，每个数据集对应 root 下一个子组
// 无法转换为数值的值跳过
func Parse(v *rideapi.VideoSignals) (*signal.Group, error) {
	root := signal.NewGroup("All")
	if v == nil || v.Message == nil {
		return root, nil
	}
	for ds := v.Message.Oldest(); ds != nil; ds = ds.Next() {
		group := root.Child(ds.Key)
		if ds.Value == nil {
			continue
		}
		for ts := ds.Value.Oldest(); ts != nil; ts = ts.Next() {
			at, err := ParseClock(ts.Key)
			if err != nil {
				return nil, fmt.Errorf("dataset %s: %w", ds.Key, err)
			}
			if ts.Value == nil {
				continue
			}
			for sig := ts.Value.Oldest(); sig != nil; sig = sig.Next() {
				val, ok := parseValue(sig.Value)
				if !ok {
					continue
				}
				group.Append(sig.Key, signal.Point{Timestamp: at, Value: val})
			}
		}
	}
	return root, nil
}

// ParseClock 解析 hh:mm:ss[.fraction]，分隔符可为 . : ,
// 小数部分按十进制秒处理，结果落在 signal.Baseline 当天
func ParseClock(s string) (time.Time, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ':' || r == ',' })
	if len(parts) < 3 || len(parts) > 4 {
		return time.Time{}, fmt.Errorf("malformed clock timestamp %q", s)
	}
	var hms [3]int
	for i := range hms {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("malformed clock timestamp %q", s)
		}
		hms[i] = n
	}
	d := time.Duration(hms[0])*time.Hour + time.Duration(hms[1])*time.Minute + time.Duration(hms[2])*time.Second
	if len(parts) == 4 {
		frac, err := strconv.ParseFloat("0."+parts[3], 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("malformed clock timestamp %q", s)
		}
		d += time.Duration(math.Round(frac * float64(time.Second)))
	}
	return signal.Baseline.Add(d), nil
}

// parseValue 数字、数字字符串、布尔值
func parseValue(raw json.RawMessage) (float64, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case bool:
		if x {
			f = 1
		}
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	case nil:
		return 0, true
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
