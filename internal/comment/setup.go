package comment

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate 创建或更新 comments 表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Comment{}); err != nil {
		return fmt.Errorf("迁移 comments 表失败: %w", err)
	}
	return nil
}
