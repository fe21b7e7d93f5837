// Package rideapi RideCare 元数据后端 REST 客户端
package rideapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config 后端地址
type Config struct {
	URL     string
	Timeout time.Duration
}

// Engine http 客户端
type Engine struct {
	cfg Config
	cli *http.Client
}

// NewEngine 默认超时 5 秒
func NewEngine() Engine {
	return Engine{
		cli: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        30,
				MaxIdleConnsPerHost: 30,
				MaxConnsPerHost:     100,
			},
		},
	}
}

// SetConfig 设置地址与超时
func (e Engine) SetConfig(cfg Config) Engine {
	cfg.URL = strings.TrimSuffix(cfg.URL, "/")
	e.cfg = cfg
	if cfg.Timeout > 0 {
		cli := *e.cli
		cli.Timeout = cfg.Timeout
		e.cli = &cli
	}
	return e
}

// Enabled 是否配置了后端
func (e Engine) Enabled() bool {
	return e.cfg.URL != ""
}

// StatusError 非 2xx 响应
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// do 发送请求并解码 JSON 响应，out 为 nil 时丢弃响应体
func (e *Engine) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, e.cfg.URL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.cli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// get 发送 GET 请求
func (e *Engine) get(ctx context.Context, path string, out any) error {
	return e.do(ctx, http.MethodGet, path, nil, out)
}

// put 发送 PUT 请求
func (e *Engine) put(ctx context.Context, path string, in, out any) error {
	return e.do(ctx, http.MethodPut, path, in, out)
}

func escape(id string) string {
	return url.PathEscape(id)
}
