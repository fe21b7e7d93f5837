package api

import (
	"github.com/ridecare/ridecare/internal/core/label"
	"github.com/ridecare/ridecare/internal/core/player"
)

type openReviewInput struct {
	RecordingID string `json:"recording_id"`
}

// seekInput frames 与 seconds 二选一，frames 优先
type seekInput struct {
	Frames  *int     `json:"frames"`
	Seconds *float64 `json:"seconds"`
}

type clickInput struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type rateInput struct {
	Rate float64 `json:"rate"`
}

type keyInput struct {
	Code  string `json:"code"`            // Space, ArrowLeft, ArrowRight
	Focus string `json:"focus,omitempty"` // text 表示文本输入框有焦点
}

func (in keyInput) focus() player.Focus {
	if in.Focus == "text" {
		return player.FocusTextInput
	}
	return player.FocusNone
}

// zoomInput x 存在时以画布像素为中心，否则以 center 百分比为中心
type zoomInput struct {
	Factor float64  `json:"factor"`
	Center float64  `json:"center"`
	X      *float64 `json:"x"`
	Reset  bool     `json:"reset"`
}

type panInput struct {
	Delta  float64 `json:"delta"`  // 百分比
	Pixels float64 `json:"pixels"` // 像素，非零时优先
}

type scrollInput struct {
	Start float64 `json:"start"`
}

type signalInput struct {
	Group   string `json:"group"`
	Signal  string `json:"signal"`
	Enabled bool   `json:"enabled"`
}

type enabledInput struct {
	Enabled bool `json:"enabled"`
}

type chartImageInput struct {
	Width  int `form:"width"`
	Height int `form:"height"`
}

type seriesInput struct {
	Width int `form:"width"`
}

type tooltipInput struct {
	X float64 `form:"x"`
}

// addLabelInput label 为空时在播放头处新建
type addLabelInput struct {
	Label *label.Label `json:"label"`
}

type selectLabelInput struct {
	Index int `json:"index"`
}

type boundaryInput struct {
	Boundary label.BoundaryKind `json:"boundary"`
}

type visibilityInput struct {
	Visible bool `json:"visible"`
}

type beginDragInput struct {
	Boundary label.BoundaryKind `json:"boundary"`
	PageX    float64            `json:"page_x"`
	BarLeft  float64            `json:"bar_left"`
	BarRight float64            `json:"bar_right"`
}

type moveDragInput struct {
	PageX float64 `json:"page_x"`
}

type moveDragOutput struct {
	Label label.Label `json:"label"`
	Moved bool        `json:"moved"`
}

type labelsOutput struct {
	Items    []label.Label `json:"items"`
	Selected int           `json:"selected"`
}

type addLabelOutput struct {
	Index int         `json:"index"`
	Label label.Label `json:"label"`
}
