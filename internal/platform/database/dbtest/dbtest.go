// Package dbtest 为各模块的测试提供独立的sqlite数据库。
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/SlpAus/versus-arena-backend/internal/platform/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open 在临时目录中创建一个sqlite数据库并迁移给定模型。
// 使用文件库而不是内存库，使并发测试中的多个连接看到同一份数据。
func Open(t testing.TB, models ...interface{}) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "arena_test.db") + "?_busy_timeout=10000&_txlock=immediate&_foreign_keys=on"
	db, err := database.Open(sqlite.Open(dsn), "silent")
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("迁移测试数据库失败: %v", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层连接失败: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
