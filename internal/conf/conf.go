package conf

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultConfig 默认配置
func DefaultConfig() Bootstrap {
	return Bootstrap{
		Server: Server{
			HTTP: ServerHTTP{
				Port:    15123,
				Timeout: Duration(60 * time.Second),
				PProf: ServerPPROF{
					AccessIps: []string{"::1", "127.0.0.1"},
				},
			},
			Recording: ServerRecording{
				StorageDir: "recordings",
			},
		},
		Data: Data{
			Database: Database{
				Dsn:             "configs/data.db",
				MaxIdleConns:    10,
				MaxOpenConns:    50,
				ConnMaxLifetime: Duration(6 * time.Hour),
				SlowThreshold:   Duration(200 * time.Millisecond),
			},
		},
		Log: Log{
			Dir:        "logs",
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 10,
			MaxAgeDays: 7,
		},
		Review: Review{
			FPS: 15,
			DefaultVisibleSignals: []string{
				"interior_camera_health_response_cvb",
				"interior_camera_health_response_cve",
				"CameraViewBlocked",
				"CameraVerticalShifted",
				"Snapshots",
			},
			MarkerWidth:        2,
			DragThrottle:       Duration(25 * time.Millisecond),
			TimeUpdateInterval: Duration(250 * time.Millisecond),
			IdleTimeout:        Duration(30 * time.Minute),
			MaxSessions:        64,
		},
		Backend: Backend{
			Timeout: Duration(10 * time.Second),
		},
	}
}

// SetupConfig 读取配置文件，文件不存在时写入默认配置
func SetupConfig(path string) (*Bootstrap, error) {
	bc := DefaultConfig()
	bc.ConfigPath = path

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &bc, WriteConfig(&bc, path)
	}
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(b, &bc); err != nil {
		return nil, err
	}
	return &bc, nil
}

// WriteConfig 将配置写入文件
func WriteConfig(bc *Bootstrap, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := toml.Marshal(bc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
