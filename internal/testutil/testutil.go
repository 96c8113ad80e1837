// Package testutil 给各包测试提供独立的 sqlite 内存库和日志。
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"alumnilink/internal/config"
	"alumnilink/internal/db"
	"alumnilink/internal/logger"
	"alumnilink/internal/models"

	"gorm.io/gorm"
)

var dbSeq int64

// Logger 测试环境只输出 warn 以上。
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logg, err := logger.New("test", "test-salt")
	if err != nil {
		tb.Fatalf("failed to init logger: %v", err)
	}
	return logg
}

// DB 每次调用返回一个全新的内存库。只开一个连接，事务天然串行。
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	name := atomic.AddInt64(&dbSeq, 1)
	cfg := config.DBConfig{
		Driver:       config.DriverSQLite,
		DSN:          fmt.Sprintf("file:alumnilink_test_%d?mode=memory&cache=shared&_foreign_keys=1", name),
		MaxOpenConns: 1,
		AutoMigrate:  true,
	}
	gdb, err := db.Open(cfg, logger.Nop())
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// News 写入一条新闻作为评论主体。
func News(tb testing.TB, gdb *gorm.DB, title string) models.News {
	tb.Helper()
	n := models.News{Title: title}
	if err := gdb.Create(&n).Error; err != nil {
		tb.Fatalf("failed to create news: %v", err)
	}
	return n
}
