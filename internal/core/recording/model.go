package recording

import (
	"time"

	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ridecare/ridecare/internal/core/snapshot"
	"github.com/ridecare/ridecare/pkg/rideapi"
)

// Recording 行程事件录像
type Recording struct {
	ID            string   `gorm:"primaryKey;size:64" json:"id"`
	DeviceID      string   `gorm:"index;notNull;default:''" json:"device_id"`
	TenantID      string   `gorm:"notNull;default:''" json:"tenant_id"`
	StartedAt     orm.Time `gorm:"index;notNull;default:CURRENT_TIMESTAMP" json:"started_at"` // 视频开始时间
	EndedAt       orm.Time `gorm:"notNull;default:CURRENT_TIMESTAMP" json:"ended_at"`
	Duration      float64  `gorm:"notNull;default:0" json:"duration"` // 秒
	Path          string   `gorm:"notNull;default:''" json:"path"`    // 本地文件相对路径，为空表示仅在后端
	LQVideoID     string   `gorm:"column:lq_video_id;notNull;default:''" json:"lq_video_id"`
	SnapshotPaths []string `gorm:"serializer:json" json:"snapshot_paths"`
	Description   string   `gorm:"notNull;default:''" json:"description"`
	CreatedAt     orm.Time `gorm:"notNull;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     orm.Time `gorm:"notNull;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName database table name
func (*Recording) TableName() string {
	return "recordings"
}

// fromRemote 转换后端元数据，time 无法解析时保持零值
func fromRemote(r *rideapi.Recording) Recording {
	out := Recording{
		ID:            r.ID,
		DeviceID:      r.DeviceID,
		TenantID:      r.TenantID,
		Duration:      r.Length,
		SnapshotPaths: r.SnapshotsPaths,
		Description:   r.Description,
		CreatedAt:     orm.Now(),
		UpdatedAt:     orm.Now(),
	}
	if r.LQVideo != nil {
		out.LQVideoID = r.LQVideo.ID
	}
	if start, err := snapshot.ParseVideoStart(r.Time); err == nil {
		out.StartedAt = orm.Time{Time: start}
		out.EndedAt = orm.Time{Time: start.Add(time.Duration(r.Length * float64(time.Second)))}
	}
	return out
}

// TimeRange 时间轴数据项，表示一段录像的时间范围
type TimeRange struct {
	ID       string  `json:"id"`       // 录像 ID
	StartMs  int64   `json:"start_ms"` // 开始时间（毫秒时间戳）
	EndMs    int64   `json:"end_ms"`   // 结束时间（毫秒时间戳）
	Duration float64 `json:"duration"` // 时长（秒）
	Labelled bool    `json:"labelled"` // 是否填写了描述
}
