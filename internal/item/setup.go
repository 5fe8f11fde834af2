package item

import (
	"context"
	"fmt"
	"math/rand/v2"

	"gorm.io/gorm"
)

// Migrate 创建或更新 items 表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Item{}); err != nil {
		return fmt.Errorf("迁移 items 表失败: %w", err)
	}
	return nil
}

// LoadSampler 从数据库读取全部条目并构建抽样器
func LoadSampler(ctx context.Context, db *gorm.DB, rng *rand.Rand) (*Sampler, error) {
	var items []Item
	if err := db.WithContext(ctx).Select("id", "comparison_count").Order("id asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("读取条目列表失败: %w", err)
	}
	return NewSampler(items, rng)
}
