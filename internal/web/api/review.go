package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
	"github.com/ridecare/ridecare/internal/core/chart"
	"github.com/ridecare/ridecare/internal/core/label"
	"github.com/ridecare/ridecare/internal/core/player"
	"github.com/ridecare/ridecare/internal/core/review"
	"github.com/ridecare/ridecare/internal/core/signal"
	"github.com/ridecare/ridecare/internal/core/snapshot"
)

// ReviewAPI 录像审阅会话
type ReviewAPI struct {
	manager *review.Manager
}

func NewReviewAPI(m *review.Manager) ReviewAPI {
	return ReviewAPI{manager: m}
}

func RegisterReview(g gin.IRouter, api ReviewAPI, handler ...gin.HandlerFunc) {
	group := g.Group("/reviews", handler...)
	group.GET("", web.WrapH(api.listSessions))
	group.POST("", web.WrapH(api.openSession))
	group.GET("/:sid", web.WrapH(api.getSession))
	group.DELETE("/:sid", web.WrapH(api.closeSession))
	group.GET("/:sid/events", api.events)

	// 播放控制
	group.POST("/:sid/toggle", web.WrapH(api.togglePlay))
	group.POST("/:sid/forward", web.WrapH(api.forward))
	group.POST("/:sid/reverse", web.WrapH(api.reverse))
	group.POST("/:sid/pause", web.WrapH(api.pause))
	group.POST("/:sid/seek", web.WrapH(api.seek))
	group.POST("/:sid/click", web.WrapH(api.click))
	group.PUT("/:sid/rate", web.WrapH(api.setRate))
	group.POST("/:sid/keys", web.WrapH(api.keyDown))

	// 图表
	group.POST("/:sid/zoom", web.WrapH(api.zoom))
	group.PUT("/:sid/zoom", web.WrapH(api.setZoomRange))
	group.POST("/:sid/pan", web.WrapH(api.pan))
	group.PUT("/:sid/scroll", web.WrapH(api.slideScrollBar))
	group.PUT("/:sid/geometry", web.WrapH(api.setGeometry))
	group.PUT("/:sid/signals", web.WrapH(api.setSignal))
	group.PUT("/:sid/snapshots", web.WrapH(api.setSnapshots))
	group.GET("/:sid/series", web.WrapH(api.series))
	group.GET("/:sid/tooltip", web.WrapH(api.tooltip))
	group.GET("/:sid/chart.html", api.chartHTML)
	group.GET("/:sid/chart.png", api.chartPNG)

	// 标注
	group.GET("/:sid/labels", web.WrapH(api.listLabels))
	group.POST("/:sid/labels", web.WrapH(api.addLabel))
	group.PUT("/:sid/labels/selected", web.WrapH(api.selectLabel))
	group.PUT("/:sid/labels/boundary", web.WrapH(api.selectBoundary))
	group.PUT("/:sid/labels/:index", web.WrapH(api.updateLabel))
	group.DELETE("/:sid/labels/:index", web.WrapH(api.delLabel))
	group.PUT("/:sid/labels/:index/visibility", web.WrapH(api.setLabelVisibility))
	group.POST("/:sid/drag", web.WrapH(api.beginDrag))
	group.POST("/:sid/drag/move", web.WrapH(api.moveDrag))
	group.POST("/:sid/drag/end", web.WrapH(api.endDrag))
}

// toReason 领域错误转换为接口错误
func toReason(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, review.ErrSessionNotFound), errors.Is(err, review.ErrClosed):
		return reason.ErrNotFound.SetMsg(err.Error())
	case errors.Is(err, review.ErrTooManySessions):
		return reason.ErrServer.SetMsg(err.Error())
	case errors.Is(err, label.ErrIndexOutOfRange),
		errors.Is(err, label.ErrNotFound),
		errors.Is(err, label.ErrNoSelection),
		errors.Is(err, player.ErrInvalidRate),
		errors.Is(err, player.ErrDragEnded),
		errors.Is(err, player.ErrInvalidBoundary),
		errors.Is(err, player.ErrInvalidBar),
		errors.Is(err, signal.ErrUnknown),
		errors.Is(err, snapshot.ErrMalformedPath),
		errors.Is(err, snapshot.ErrMalformedStart),
		errors.Is(err, chart.ErrNothingToRender):
		return reason.ErrBadRequest.SetMsg(err.Error())
	}
	return err
}

func (a ReviewAPI) session(c *gin.Context) (*review.Session, error) {
	s, err := a.manager.Get(c.Param("sid"))
	return s, toReason(err)
}

// view 操作成功后返回最新状态
func (a ReviewAPI) view(c *gin.Context, fn func(*review.Session) error) (review.View, error) {
	s, err := a.session(c)
	if err != nil {
		return review.View{}, err
	}
	if err := fn(s); err != nil {
		return review.View{}, toReason(err)
	}
	v, err := s.View()
	return v, toReason(err)
}

func (a ReviewAPI) listSessions(_ *gin.Context, _ *struct{}) (any, error) {
	items := a.manager.List()
	return gin.H{"items": items, "total": len(items)}, nil
}

func (a ReviewAPI) openSession(c *gin.Context, in *openReviewInput) (review.View, error) {
	if in.RecordingID == "" {
		return review.View{}, reason.ErrBadRequest.SetMsg("recording_id is required")
	}
	s, err := a.manager.Open(c.Request.Context(), in.RecordingID)
	if err != nil {
		return review.View{}, toReason(err)
	}
	v, err := s.View()
	return v, toReason(err)
}

func (a ReviewAPI) getSession(c *gin.Context, _ *struct{}) (review.View, error) {
	return a.view(c, func(*review.Session) error { return nil })
}

func (a ReviewAPI) closeSession(c *gin.Context, _ *struct{}) (gin.H, error) {
	sid := c.Param("sid")
	return gin.H{"id": sid}, toReason(a.manager.Close(sid))
}

// events SSE 推送会话事件，连接建立时先推送一次完整状态
func (a ReviewAPI) events(c *gin.Context) {
	s, err := a.session(c)
	if err != nil {
		web.Fail(c, err)
		return
	}
	// 长连接不受服务端写超时限制
	rc := http.NewResponseController(c.Writer)
	_ = rc.SetWriteDeadline(time.Time{})

	ch, cancel := s.Subscribe(64)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	if v, err := s.View(); err == nil {
		c.SSEvent("view", v)
		c.Writer.Flush()
	}

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				c.SSEvent("closed", s.ID)
				return false
			}
			c.SSEvent(ev.Type, ev.Data)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (a ReviewAPI) togglePlay(c *gin.Context, _ *struct{}) (review.View, error) {
	return a.view(c, (*review.Session).TogglePlay)
}

func (a ReviewAPI) forward(c *gin.Context, _ *struct{}) (review.View, error) {
	return a.view(c, (*review.Session).Forward)
}

func (a ReviewAPI) reverse(c *gin.Context, _ *struct{}) (review.View, error) {
	return a.view(c, (*review.Session).Reverse)
}

func (a ReviewAPI) pause(c *gin.Context, _ *struct{}) (review.View, error) {
	return a.view(c, (*review.Session).Pause)
}

func (a ReviewAPI) seek(c *gin.Context, in *seekInput) (review.View, error) {
	return a.view(c, func(s *review.Session) error {
		switch {
		case in.Frames != nil:
			return s.SeekFrames(*in.Frames)
		case in.Seconds != nil:
			return s.SeekTo(*in.Seconds)
		}
		return reason.ErrBadRequest.SetMsg("frames or seconds is required")
	})
}

func (a ReviewAPI) click(c *gin.Context, in *clickInput) (player.ClickResult, error) {
	s, err := a.session(c)
	if err != nil {
		return player.ClickResult{}, err
	}
	out, err := s.Click(in.X, in.Y)
	return out, toReason(err)
}

func (a ReviewAPI) setRate(c *gin.Context, in *rateInput) (review.View, error) {
	return a.view(c, func(s *review.Session) error { return s.SetPlaybackRate(in.Rate) })
}

func (a ReviewAPI) keyDown(c *gin.Context, in *keyInput) (gin.H, error) {
	s, err := a.session(c)
	if err != nil {
		return nil, err
	}
	handled, err := s.KeyDown(in.Code, in.focus())
	return gin.H{"handled": handled}, toReason(err)
}

func (a ReviewAPI) zoom(c *gin.Context, in *zoomInput) (review.View, error) {
	return a.view(c, func(s *review.Session) error {
		switch {
		case in.Reset:
			return s.ResetZoom()
		case !(in.Factor > 0):
			return reason.ErrBadRequest.SetMsg("factor must be positive")
		case in.X != nil:
			return s.ZoomAtX(*in.X, in.Factor)
		}
		return s.Zoom(in.Factor, in.Center)
	})
}

func (a ReviewAPI) setZoomRange(c *gin.Context, in *chart.ZoomRange) (chart.ZoomRange, error) {
	s, err := a.session(c)
	if err != nil {
		return chart.ZoomRange{}, err
	}
	out, err := s.SetZoomRange(*in)
	return out, toReason(err)
}

func (a ReviewAPI) pan(c *gin.Context, in *panInput) (review.View, error) {
	return a.view(c, func(s *review.Session) error {
		if in.Pixels != 0 {
			return s.PanPixels(in.Pixels)
		}
		return s.Pan(in.Delta)
	})
}

func (a ReviewAPI) slideScrollBar(c *gin.Context, in *scrollInput) (chart.ZoomRange, error) {
	s, err := a.session(c)
	if err != nil {
		return chart.ZoomRange{}, err
	}
	out, err := s.SlideScrollBar(in.Start)
	return out, toReason(err)
}

func (a ReviewAPI) setGeometry(c *gin.Context, in *chart.Geometry) (review.View, error) {
	if !(in.CanvasWidth > 0) || !(in.PlotWidth > 0) {
		return review.View{}, reason.ErrBadRequest.SetMsg("canvas_width and plot_width must be positive")
	}
	return a.view(c, func(s *review.Session) error { return s.SetGeometry(*in) })
}

func (a ReviewAPI) setSignal(c *gin.Context, in *signalInput) (review.View, error) {
	return a.view(c, func(s *review.Session) error {
		return s.SetSignalEnabled(in.Group, in.Signal, in.Enabled)
	})
}

func (a ReviewAPI) setSnapshots(c *gin.Context, in *enabledInput) (review.View, error) {
	return a.view(c, func(s *review.Session) error { return s.SetSnapshotsEnabled(in.Enabled) })
}

func (a ReviewAPI) series(c *gin.Context, in *seriesInput) (any, error) {
	s, err := a.session(c)
	if err != nil {
		return nil, err
	}
	items, err := s.Series(in.Width)
	return gin.H{"items": items}, toReason(err)
}

func (a ReviewAPI) tooltip(c *gin.Context, in *tooltipInput) (chart.Tooltip, error) {
	s, err := a.session(c)
	if err != nil {
		return chart.Tooltip{}, err
	}
	out, err := s.Tooltip(in.X)
	return out, toReason(err)
}

// chartHTML 交互式图表页面
func (a ReviewAPI) chartHTML(c *gin.Context) {
	s, err := a.session(c)
	if err != nil {
		web.Fail(c, err)
		return
	}
	body, err := s.RenderHTML()
	if err != nil {
		web.Fail(c, toReason(err))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}

// chartPNG 静态图表，默认 1200x400
func (a ReviewAPI) chartPNG(c *gin.Context) {
	s, err := a.session(c)
	if err != nil {
		web.Fail(c, err)
		return
	}
	var in chartImageInput
	if err := c.ShouldBindQuery(&in); err != nil {
		web.Fail(c, reason.ErrBadRequest.SetMsg(err.Error()))
		return
	}
	if in.Width <= 0 {
		in.Width = 1200
	}
	if in.Height <= 0 {
		in.Height = 400
	}
	body, err := s.RenderPNG(in.Width, in.Height)
	if err != nil {
		web.Fail(c, toReason(err))
		return
	}
	c.Data(http.StatusOK, "image/png", body)
}

func (a ReviewAPI) listLabels(c *gin.Context, _ *struct{}) (labelsOutput, error) {
	s, err := a.session(c)
	if err != nil {
		return labelsOutput{}, err
	}
	items, sel, err := s.Labels()
	return labelsOutput{Items: items, Selected: sel}, toReason(err)
}

func (a ReviewAPI) addLabel(c *gin.Context, in *addLabelInput) (addLabelOutput, error) {
	s, err := a.session(c)
	if err != nil {
		return addLabelOutput{}, err
	}
	i, l, err := s.AddLabel(in.Label)
	return addLabelOutput{Index: i, Label: l}, toReason(err)
}

func labelIndex(c *gin.Context) (int, error) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, reason.ErrBadRequest.SetMsg("index must be an integer")
	}
	return i, nil
}

func (a ReviewAPI) updateLabel(c *gin.Context, in *label.Label) (label.Label, error) {
	i, err := labelIndex(c)
	if err != nil {
		return label.Label{}, err
	}
	s, err := a.session(c)
	if err != nil {
		return label.Label{}, err
	}
	out, err := s.UpdateLabel(i, *in)
	return out, toReason(err)
}

func (a ReviewAPI) delLabel(c *gin.Context, _ *struct{}) (labelsOutput, error) {
	i, err := labelIndex(c)
	if err != nil {
		return labelsOutput{}, err
	}
	s, err := a.session(c)
	if err != nil {
		return labelsOutput{}, err
	}
	if err := s.DeleteLabel(i); err != nil {
		return labelsOutput{}, toReason(err)
	}
	items, sel, err := s.Labels()
	return labelsOutput{Items: items, Selected: sel}, toReason(err)
}

func (a ReviewAPI) setLabelVisibility(c *gin.Context, in *visibilityInput) (review.View, error) {
	i, err := labelIndex(c)
	if err != nil {
		return review.View{}, err
	}
	return a.view(c, func(s *review.Session) error { return s.SetLabelVisibility(i, in.Visible) })
}

func (a ReviewAPI) selectLabel(c *gin.Context, in *selectLabelInput) (review.View, error) {
	return a.view(c, func(s *review.Session) error { return s.SelectLabel(in.Index) })
}

func (a ReviewAPI) selectBoundary(c *gin.Context, in *boundaryInput) (review.View, error) {
	return a.view(c, func(s *review.Session) error { return s.SelectBoundary(in.Boundary) })
}

func (a ReviewAPI) beginDrag(c *gin.Context, in *beginDragInput) (gin.H, error) {
	s, err := a.session(c)
	if err != nil {
		return nil, err
	}
	err = s.BeginDrag(in.Boundary, in.PageX, in.BarLeft, in.BarRight)
	return gin.H{"boundary": in.Boundary}, toReason(err)
}

func (a ReviewAPI) moveDrag(c *gin.Context, in *moveDragInput) (moveDragOutput, error) {
	s, err := a.session(c)
	if err != nil {
		return moveDragOutput{}, err
	}
	l, moved, err := s.MoveDrag(in.PageX)
	return moveDragOutput{Label: l, Moved: moved}, toReason(err)
}

func (a ReviewAPI) endDrag(c *gin.Context, _ *struct{}) (labelsOutput, error) {
	s, err := a.session(c)
	if err != nil {
		return labelsOutput{}, err
	}
	if err := s.EndDrag(); err != nil {
		return labelsOutput{}, toReason(err)
	}
	items, sel, err := s.Labels()
	return labelsOutput{Items: items, Selected: sel}, toReason(err)
}
