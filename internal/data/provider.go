// Package data 录像元数据的数据库连接
package data

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/wire"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/system"
	"github.com/ridecare/ridecare/internal/conf"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(SetupDB)

// DefaultSQLite 未配置 dsn 时使用的 sqlite 文件
const DefaultSQLite = "configs/data.db"

const (
	driverSQLite   = "sqlite"
	driverMySQL    = "mysql"
	driverPostgres = "postgres"
)

// SetupDB 初始化录像元数据存储
// sqlite 只允许单连接，文件所在目录不存在时自动创建
func SetupDB(c *conf.Bootstrap) (*gorm.DB, error) {
	cfg := c.Data.Database
	driver, dsn := resolveDSN(cfg.Dsn, system.Getwd())

	var dial gorm.Dialector
	switch driver {
	case driverPostgres:
		dial = postgres.New(postgres.Config{DriverName: "pgx", DSN: dsn})
	case driverMySQL:
		dial = mysql.Open(dsn)
	default:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		cfg.MaxIdleConns = 1
		cfg.MaxOpenConns = 1
		dial = sqlite.Open(dsn)
	}

	db, err := orm.New(dial, orm.Config{
		MaxIdleConns:    int(cfg.MaxIdleConns),
		MaxOpenConns:    int(cfg.MaxOpenConns),
		ConnMaxLifetime: cfg.ConnMaxLifetime.Duration(),
		SlowThreshold:   cfg.SlowThreshold.Duration(),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	slog.Info("database ready", "driver", driver, "max_open_conns", cfg.MaxOpenConns)
	return db, nil
}

// resolveDSN 根据前缀判断驱动
// mysql:// 前缀只用于识别，驱动本身不接受；sqlite 相对路径以 wd 为根
func resolveDSN(dsn, wd string) (driver, out string) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return driverPostgres, dsn
	case strings.HasPrefix(dsn, "mysql://"):
		return driverMySQL, strings.TrimPrefix(dsn, "mysql://")
	case dsn == "":
		dsn = DefaultSQLite
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:", filepath.IsAbs(dsn):
		return driverSQLite, dsn
	}
	return driverSQLite, filepath.Join(wd, dsn)
}

func ensureDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") || dsn == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
		return fmt.Errorf("create sqlite dir: %w", err)
	}
	return nil
}
