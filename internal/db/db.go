package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"alumnilink/internal/config"
	"alumnilink/internal/logger"
	"alumnilink/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Open 按配置连接数据库并（可选）自动迁移。
// TranslateError 打开后，唯一约束冲突会变成 gorm.ErrDuplicatedKey。
func Open(cfg config.DBConfig, logg *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	logg.Info("Database connection established", "driver", cfg.Driver)

	if cfg.AutoMigrate {
		if err := Migrate(gdb); err != nil {
			return nil, err
		}
		logg.Info("Database migration completed")
	}

	return gdb, nil
}

// Migrate 建表：新闻、评论、投票账本。
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.News{},
		&models.Comment{},
		&models.CommentVote{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SeedNews 本地开发时写入一篇示例新闻，方便直接调接口。
func SeedNews(gdb *gorm.DB, logg *logger.Logger) {
	var count int64
	gdb.Model(&models.News{}).Count(&count)
	if count > 0 {
		logg.Debug("News already seeded, skipping")
		return
	}

	news := []models.News{
		{Title: "校友会年度聚会通知"},
		{Title: "Alumni mentoring program opens"},
	}
	for _, n := range news {
		if err := gdb.Create(&n).Error; err != nil {
			logg.Warn("Failed to seed news", "title", n.Title, "error", err)
		}
	}
	logg.Info("Demo news seeded", "count", len(news))
}
