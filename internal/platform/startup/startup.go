package startup

import (
	"context"
	"fmt"

	"github.com/SlpAus/versus-arena-backend/internal/comment"
	"github.com/SlpAus/versus-arena-backend/internal/item"
	"github.com/SlpAus/versus-arena-backend/internal/user"
	"github.com/SlpAus/versus-arena-backend/internal/vote"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate 按依赖顺序迁移所有表
func Migrate(db *gorm.DB) error {
	steps := []func(*gorm.DB) error{
		item.Migrate,
		user.Migrate,
		vote.Migrate,
		comment.Migrate,
	}
	for _, migrate := range steps {
		if err := migrate(db); err != nil {
			return err
		}
	}
	return nil
}

// InitializeApplication 是应用启动时执行的总入口：迁移表结构并构建内存中的抽样器
func InitializeApplication(ctx context.Context, db *gorm.DB, logger *zap.Logger) (*item.Sampler, error) {
	logger.Info("开始应用初始化...")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	sampler, err := item.LoadSampler(ctx, db, nil)
	if err != nil {
		return nil, fmt.Errorf("构建抽样器失败: %w", err)
	}
	if sampler.Len() < 2 {
		logger.Warn("条目少于两个，/pair 接口暂时不可用，请先导入目录", zap.Int("items", sampler.Len()))
	}

	logger.Info("应用初始化完成", zap.Int("items", sampler.Len()))
	return sampler, nil
}
