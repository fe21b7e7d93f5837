package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grafov/m3u8"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
	"github.com/ridecare/ridecare/internal/conf"
	"github.com/ridecare/ridecare/internal/core/recording"
)

// RecordingAPI 为 http 提供业务方法
type RecordingAPI struct {
	recordingCore recording.Core
	conf          *conf.Bootstrap
}

func NewRecordingAPI(core recording.Core, conf *conf.Bootstrap) RecordingAPI {
	return RecordingAPI{recordingCore: core, conf: conf}
}

func RegisterRecording(g gin.IRouter, api RecordingAPI, handler ...gin.HandlerFunc) {
	{
		group := g.Group("/recordings", handler...)
		group.GET("", web.WrapH(api.findRecordings))
		group.POST("", web.WrapH(api.addRecording))
		group.GET("/timeline", web.WrapH(api.getTimeline))
		group.GET("/:id", web.WrapH(api.getRecording))
		group.PUT("/:id", web.WrapH(api.editRecording))
		group.DELETE("/:id", web.WrapH(api.delRecording))
		group.PUT("/:id/description", web.WrapH(api.setDescription))
		group.GET("/:id/video", web.WrapH(api.getVideo))
		// HLS 播放列表，本地文件包装为单片段点播
		group.GET("/:id/index.m3u8", api.playlist)
		group.GET("/:id/download", api.downloadRecording)
	}

	// 静态文件服务，用于访问本地录像 MP4 文件
	// Gin Static 支持 HTTP Range 请求，实现边下载边播放
	if api.conf != nil && api.conf.Server.Recording.StorageDir != "" {
		slog.Info("register recording static files", "path", "/static/recordings", "dir", api.conf.Server.Recording.StorageDir)
		g.Static("/static/recordings", api.conf.Server.Recording.StorageDir)
	}
}

// findRecordings 分页查询录像列表
func (a RecordingAPI) findRecordings(c *gin.Context, in *recording.FindRecordingInput) (any, error) {
	items, total, err := a.recordingCore.FindRecordings(c.Request.Context(), in)
	return gin.H{"items": items, "total": total}, err
}

// getTimeline 获取设备时间轴数据
func (a RecordingAPI) getTimeline(c *gin.Context, in *recording.TimelineInput) (any, error) {
	items, err := a.recordingCore.GetTimeline(c.Request.Context(), in)
	return gin.H{"items": items}, err
}

func (a RecordingAPI) getRecording(c *gin.Context, _ *struct{}) (*recording.Recording, error) {
	return a.recordingCore.GetRecording(c.Request.Context(), c.Param("id"))
}

func (a RecordingAPI) addRecording(c *gin.Context, in *recording.AddRecordingInput) (*recording.Recording, error) {
	return a.recordingCore.AddRecording(c.Request.Context(), in)
}

func (a RecordingAPI) editRecording(c *gin.Context, in *recording.EditRecordingInput) (*recording.Recording, error) {
	return a.recordingCore.EditRecording(c.Request.Context(), in, c.Param("id"))
}

func (a RecordingAPI) delRecording(c *gin.Context, _ *struct{}) (*recording.Recording, error) {
	return a.recordingCore.DelRecording(c.Request.Context(), c.Param("id"))
}

func (a RecordingAPI) setDescription(c *gin.Context, in *recording.SetDescriptionInput) (*recording.Recording, error) {
	return a.recordingCore.SetDescription(c.Request.Context(), c.Param("id"), in)
}

type getVideoOutput struct {
	URL string `json:"url"`
}

// getVideo 视频播放地址
func (a RecordingAPI) getVideo(c *gin.Context, _ *struct{}) (getVideoOutput, error) {
	u, err := a.recordingCore.VideoURL(c.Request.Context(), c.Param("id"))
	return getVideoOutput{URL: u}, err
}

// localFile 录像在本地存储中的路径
func (a RecordingAPI) localFile(c *gin.Context) (*recording.Recording, string, error) {
	rec, err := a.recordingCore.GetRecording(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, "", err
	}
	if rec.Path == "" {
		return nil, "", reason.ErrNotFound.SetMsg("recording file not found")
	}
	filePath := a.recordingCore.GetFullPath(rec.Path)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, "", reason.ErrNotFound.SetMsg("recording file not found")
	}
	return rec, filePath, nil
}

// downloadRecording 下载录像文件
func (a RecordingAPI) downloadRecording(c *gin.Context) {
	_, filePath, err := a.localFile(c)
	if err != nil {
		web.Fail(c, err)
		return
	}
	fileName := filepath.Base(filePath)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", fileName))
	c.File(filePath)
}

// playlist 生成 HLS m3u8 播放列表
// 路径: /recordings/:id/index.m3u8?token=xxx
func (a RecordingAPI) playlist(c *gin.Context) {
	rec, _, err := a.localFile(c)
	if err != nil {
		web.Fail(c, err)
		return
	}
	body, err := generateM3U8(rec, c.Query("token"))
	if err != nil {
		web.Fail(c, reason.ErrServer.Withf("m3u8 err[%s]", err.Error()))
		return
	}
	c.Header("Content-Type", "application/vnd.apple.mpegurl")
	c.Header("Cache-Control", "no-cache")
	c.String(http.StatusOK, body)
}

// generateM3U8 单片段点播列表，片段指向静态文件服务
func generateM3U8(rec *recording.Recording, token string) (string, error) {
	// winSize=0 表示 VOD，不使用滑动窗口
	pl, err := m3u8.NewMediaPlaylist(0, 1)
	if err != nil {
		return "", err
	}
	pl.MediaType = m3u8.VOD

	// 使用相对路径，让浏览器根据当前页面域名访问
	uri := "/static/recordings/" + strings.TrimPrefix(rec.Path, "/")
	if token != "" {
		uri += "?token=" + token
	}
	if err := pl.Append(uri, rec.Duration, rec.ID); err != nil {
		return "", err
	}
	// 添加 #EXT-X-ENDLIST 标签
	pl.Close()
	return pl.String(), nil
}
