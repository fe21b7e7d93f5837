package recording

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

// RecordingStorer Instantiation interface
type RecordingStorer interface {
	Find(context.Context, *[]*Recording, orm.Pager, ...orm.QueryOption) (int64, error)
	Get(context.Context, *Recording, ...orm.QueryOption) error
	Add(context.Context, *Recording) error
	Edit(context.Context, *Recording, func(*Recording), ...orm.QueryOption) error
	Del(context.Context, *Recording, ...orm.QueryOption) error
	Count(context.Context, ...orm.QueryOption) (int64, error)

	Session(context.Context, ...func(*gorm.DB) error) error
	EditWithSession(*gorm.DB, *Recording, func(b *Recording) error, ...orm.QueryOption) error
}

// FindRecordings 分页查询录像列表，支持设备和时间范围筛选
func (c Core) FindRecordings(ctx context.Context, in *FindRecordingInput) ([]*Recording, int64, error) {
	query := orm.NewQuery(3).OrderBy("started_at DESC")

	if in.DeviceID != "" {
		query.Where("device_id = ?", in.DeviceID)
	}
	if in.Key != "" {
		key := "%" + in.Key + "%"
		query.Where("id LIKE ? OR description LIKE ?", key, key)
	}
	if in.StartMs > 0 && in.EndMs > 0 {
		query.Where("started_at >= ? AND ended_at <= ?", in.StartAt(), in.EndAt())
	}

	items := make([]*Recording, 0, in.Limit())
	total, err := c.store.Recording().Find(ctx, &items, in, query.Encode()...)
	if err != nil {
		return nil, 0, reason.ErrDB.Withf(`Find in[%+v] err[%s]`, in, err.Error())
	}
	return items, total, nil
}

// GetRecording Query a single object
// 本地不存在且配置了后端时，从后端拉取并写入本地
func (c Core) GetRecording(ctx context.Context, id string) (*Recording, error) {
	var out Recording
	err := c.store.Recording().Get(ctx, &out, orm.Where("id=?", id))
	if err == nil {
		return &out, nil
	}
	if !orm.IsErrRecordNotFound(err) {
		return nil, reason.ErrDB.Withf(`Get id[%v] err[%s]`, id, err.Error())
	}
	if c.backend == nil {
		return nil, reason.ErrNotFound.Withf(`Get id[%v] err[%s]`, id, err.Error())
	}
	return c.fetchRemote(ctx, id)
}

func (c Core) fetchRemote(ctx context.Context, id string) (*Recording, error) {
	remote, err := c.backend.GetRecording(ctx, id)
	if err != nil {
		return nil, reason.ErrNotFound.Withf(`backend recording id[%v] err[%s]`, id, err.Error())
	}
	if remote.ID == "" {
		remote.ID = id
	}
	out := fromRemote(remote)
	if err := c.store.Recording().Add(ctx, &out); err != nil {
		// 缓存失败不影响本次读取
		slog.WarnContext(ctx, "cache recording", "id", id, "err", err)
	}
	return &out, nil
}

// AddRecording Insert into database
func (c Core) AddRecording(ctx context.Context, in *AddRecordingInput) (*Recording, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, reason.ErrBadRequest.Withf("id is required")
	}
	var out Recording
	if err := copier.Copy(&out, in); err != nil {
		slog.ErrorContext(ctx, "Copy", "err", err)
	}
	if out.StartedAt.IsZero() {
		out.StartedAt = orm.Now()
	}
	out.EndedAt = orm.Time{Time: out.StartedAt.Add(time.Duration(in.Duration * float64(time.Second)))}
	out.CreatedAt = orm.Now()
	out.UpdatedAt = orm.Now()

	if err := c.store.Recording().Add(ctx, &out); err != nil {
		return nil, reason.ErrDB.Withf(`Add err[%s]`, err.Error())
	}
	return &out, nil
}

// EditRecording Update object information
func (c Core) EditRecording(ctx context.Context, in *EditRecordingInput, id string) (*Recording, error) {
	var out Recording
	if err := c.store.Recording().Edit(ctx, &out, func(b *Recording) {
		if err := copier.CopyWithOption(b, in, copier.Option{IgnoreEmpty: true}); err != nil {
			slog.ErrorContext(ctx, "Copy", "err", err)
		}
		b.UpdatedAt = orm.Now()
	}, orm.Where("id=?", id)); err != nil {
		if orm.IsErrRecordNotFound(err) {
			return nil, reason.ErrNotFound.Withf(`Edit id[%v] err[%s]`, id, err.Error())
		}
		return nil, reason.ErrDB.Withf(`Edit id[%v] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// DelRecording Delete object
func (c Core) DelRecording(ctx context.Context, id string) (*Recording, error) {
	var out Recording
	if err := c.store.Recording().Del(ctx, &out, orm.Where("id=?", id)); err != nil {
		if orm.IsErrRecordNotFound(err) {
			return nil, reason.ErrNotFound.Withf(`Del id[%v] err[%s]`, id, err.Error())
		}
		return nil, reason.ErrDB.Withf(`Del id[%v] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// SetDescription 保存描述，配置了后端时同步到后端
func (c Core) SetDescription(ctx context.Context, id string, in *SetDescriptionInput) (*Recording, error) {
	if _, err := c.GetRecording(ctx, id); err != nil {
		return nil, err
	}
	if c.backend != nil {
		if err := c.backend.SetDescription(ctx, id, in.Description); err != nil {
			return nil, reason.ErrServer.Withf(`SetDescription id[%v] err[%s]`, id, err.Error())
		}
	}
	var out Recording
	if err := c.store.Recording().Edit(ctx, &out, func(b *Recording) {
		b.Description = in.Description
		b.UpdatedAt = orm.Now()
	}, orm.Where("id=?", id)); err != nil {
		return nil, reason.ErrDB.Withf(`SetDescription id[%v] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// VideoURL 视频播放地址
// 优先使用后端的匿名化视频地址，后端不可用时回退到本地文件
func (c Core) VideoURL(ctx context.Context, id string) (string, error) {
	if c.backend != nil {
		u, err := c.backend.GetVideoURL(ctx, id)
		if err == nil && u != "" {
			return u, nil
		}
		slog.WarnContext(ctx, "backend video url unavailable", "id", id, "err", err)
	}
	rec, err := c.GetRecording(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.Path == "" {
		return "", reason.ErrNotFound.Withf(`recording id[%v] has no video`, id)
	}
	return "/static/recordings/" + strings.TrimPrefix(rec.Path, "/"), nil
}

// GetTimeline 获取时间轴数据，返回指定时间范围内的录像时段列表
func (c Core) GetTimeline(ctx context.Context, in *TimelineInput) ([]TimeRange, error) {
	if in.DeviceID == "" {
		return nil, reason.ErrBadRequest.Withf("device_id is required")
	}
	if in.StartMs <= 0 || in.EndMs <= 0 {
		return nil, reason.ErrBadRequest.Withf("start_ms and end_ms are required")
	}

	query := orm.NewQuery(2).OrderBy("started_at ASC")
	query.Where("device_id = ?", in.DeviceID)
	// 查询时间范围内有重叠的录像
	query.Where("started_at < ? AND ended_at > ?", in.EndAt(), in.StartAt())

	var recordings []*Recording
	pager := &defaultPager{limit: 1000}
	_, err := c.store.Recording().Find(ctx, &recordings, pager, query.Encode()...)
	if err != nil {
		return nil, reason.ErrDB.Withf(`GetTimeline err[%s]`, err.Error())
	}

	result := make([]TimeRange, 0, len(recordings))
	for _, r := range recordings {
		result = append(result, TimeRange{
			ID:       r.ID,
			StartMs:  r.StartedAt.UnixMilli(),
			EndMs:    r.EndedAt.UnixMilli(),
			Duration: r.Duration,
			Labelled: r.Description != "",
		})
	}
	return result, nil
}

// defaultPager 内部使用的分页器，避免传入 nil 导致空指针
type defaultPager struct {
	limit int
}

func (p *defaultPager) Offset() int { return 0 }
func (p *defaultPager) Limit() int  { return p.limit }
