package conf

import "time"

type Bootstrap struct {
	BuildVersion string  `toml:"-"`
	ConfigPath   string  `toml:"-"`
	Debug        bool    `toml:"-"` // 由启动参数决定
	Server       Server  `toml:"server"`
	Data         Data    `toml:"data"`
	Log          Log     `toml:"log"`
	Review       Review  `toml:"review" comment:"录像审阅会话"`
	Backend      Backend `toml:"backend" comment:"元数据后端，url 为空时仅使用本地数据库"`
}

type Server struct {
	Debug     bool            `toml:"debug"`
	HTTP      ServerHTTP      `toml:"http"`
	Recording ServerRecording `toml:"recording"`
}

type ServerHTTP struct {
	Port    int         `toml:"port"`
	Timeout Duration    `toml:"timeout" comment:"请求读写超时，不影响 SSE"`
	PProf   ServerPPROF `toml:"pprof"`
}

type ServerPPROF struct {
	Enabled   bool     `toml:"enabled"`
	AccessIps []string `toml:"access_ips"`
}

// ServerRecording 本地录像文件
type ServerRecording struct {
	StorageDir string `toml:"storage_dir" comment:"本地录像文件目录，为空时不提供静态文件"`
}

type Data struct {
	Database Database `toml:"database"`
}

type Database struct {
	Dsn             string   `toml:"dsn" comment:"postgres://... mysql://... 或 sqlite 文件路径"`
	MaxIdleConns    int32    `toml:"max_idle_conns"`
	MaxOpenConns    int32    `toml:"max_open_conns"`
	ConnMaxLifetime Duration `toml:"conn_max_lifetime"`
	SlowThreshold   Duration `toml:"slow_threshold"`
}

type Log struct {
	Dir           string `toml:"dir"`
	Level         string `toml:"level" comment:"debug/info/warn/error"`
	MaxSizeMB     int    `toml:"max_size_mb"`
	MaxBackups    int    `toml:"max_backups"`
	MaxAgeDays    int    `toml:"max_age_days"`
	DisableStdout bool   `toml:"disable_stdout"`
}

// Review 审阅会话参数
type Review struct {
	FPS                   float64  `toml:"fps"`
	DefaultVisibleSignals []string `toml:"default_visible_signals"`
	MarkerWidth           float64  `toml:"marker_width" comment:"播放头宽度，像素"`
	DragThrottle          Duration `toml:"drag_throttle"`
	TimeUpdateInterval    Duration `toml:"time_update_interval"`
	IdleTimeout           Duration `toml:"idle_timeout" comment:"会话空闲超时后释放"`
	MaxSessions           int      `toml:"max_sessions"`
}

type Backend struct {
	URL     string   `toml:"url"`
	Timeout Duration `toml:"timeout"`
}

// Duration 以 "1m30s" 形式读写配置
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
