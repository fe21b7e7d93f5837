package recording

import (
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/web"
)

type FindRecordingInput struct {
	web.PagerFilter
	web.DateFilter
	DeviceID string `form:"device_id"` // 设备 ID
	Key      string `form:"key"`       // 按 ID 或描述模糊搜索
}

type EditRecordingInput struct {
	DeviceID      string   `json:"device_id"`
	Path          string   `json:"path"`
	LQVideoID     string   `json:"lq_video_id"`
	SnapshotPaths []string `json:"snapshot_paths"`
}

type AddRecordingInput struct {
	ID            string   `json:"id"`
	DeviceID      string   `json:"device_id"`
	TenantID      string   `json:"tenant_id"`
	StartedAt     orm.Time `json:"started_at"` // 视频开始时间
	Duration      float64  `json:"duration"`   // 持续时长（秒）
	Path          string   `json:"path"`       // 文件相对路径
	LQVideoID     string   `json:"lq_video_id"`
	SnapshotPaths []string `json:"snapshot_paths"`
	Description   string   `json:"description"`
}

// SetDescriptionInput 录像描述
type SetDescriptionInput struct {
	Description string `json:"description"`
}

// TimelineInput 时间轴查询参数
type TimelineInput struct {
	web.DateFilter
	DeviceID string `form:"device_id"` // 设备 ID
}
