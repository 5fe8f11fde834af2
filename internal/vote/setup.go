package vote

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate 创建或更新 votes 表及其唯一索引
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Vote{}); err != nil {
		return fmt.Errorf("迁移 votes 表失败: %w", err)
	}
	return nil
}
