// Package snapshot 解析快照文件路径，定位到视频时间轴与帧号
package snapshot

import (
	"errors"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/ridecare/ridecare/internal/core/signal"
)

var (
	ErrMalformedPath  = errors.New("malformed snapshot path")
	ErrMalformedStart = errors.New("malformed video start timestamp")
)

// Snapshot 录像期间拍摄的单帧图片
type Snapshot struct {
	Name       string    `json:"name"`        // 文件名（含扩展名）
	RecordTime time.Time `json:"record_time"` // 拍摄时间（UTC）
	VideoTime  time.Time `json:"video_time"`  // 换算到 signal.Baseline 的视频时间
	Frame      int       `json:"frame"`       // 帧号，始终非负
	Enabled    bool      `json:"enabled"`
}

// ID 去掉扩展名的文件名，复制给操作员使用
func (s Snapshot) ID() string {
	return strings.TrimSuffix(s.Name, path.Ext(s.Name))
}

// Offset 相对视频开始的偏移，拍摄早于视频开始时为负
func (s Snapshot) Offset() time.Duration {
	return s.VideoTime.Sub(signal.Baseline)
}

var startLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// ParseVideoStart 按 UTC 解析视频开始时间
// 支持 RFC3339、无时区的日期时间、毫秒时间戳
func ParseVideoStart(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrMalformedStart)
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedStart, s)
}

// Parse 解析快照路径列表
// 任一路径不合法时整体失败，错误中包含该路径
func Parse(paths []string, videoStartTimestamp string, fps float64) ([]Snapshot, error) {
	start, err := ParseVideoStart(videoStartTimestamp)
	if err != nil {
		return nil, err
	}
	return ParseAt(paths, start, fps)
}

// ParseAt 同 Parse，视频开始时间已解析
func ParseAt(paths []string, start time.Time, fps float64) ([]Snapshot, error) {
	out := make([]Snapshot, 0, len(paths))
	for _, p := range paths {
		s, err := parseOne(p, start, fps)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func parseOne(p string, start time.Time, fps float64) (Snapshot, error) {
	name := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return Snapshot{}, fmt.Errorf("%w: %q has no file name", ErrMalformedPath, p)
	}
	stem := strings.TrimSuffix(name, path.Ext(name))
	idx := strings.LastIndex(stem, "_")
	if idx < 0 {
		return Snapshot{}, fmt.Errorf("%w: %q has no timestamp token", ErrMalformedPath, p)
	}
	ms, err := strconv.ParseInt(stem[idx+1:], 10, 64)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %q timestamp token %q", ErrMalformedPath, p, stem[idx+1:])
	}

	record := time.UnixMilli(ms).UTC()
	offset := record.Sub(start)
	return Snapshot{
		Name:       name,
		RecordTime: record,
		VideoTime:  signal.Baseline.Add(offset),
		Frame:      frameOf(offset, fps),
		Enabled:    true,
	}, nil
}

// frameOf 帧号取偏移量的绝对值
func frameOf(offset time.Duration, fps float64) int {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return 0
	}
	return int(math.Round(math.Abs(offset.Seconds()) * fps))
}

// SetEnabled 统一切换所有快照的显示
func SetEnabled(list []Snapshot, enabled bool) {
	for i := range list {
		list[i].Enabled = enabled
	}
}
