package vote

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Reader 提供投票记录的只读查询
type Reader struct {
	db *gorm.DB
}

// NewReader 创建投票读取器
func NewReader(db *gorm.DB) *Reader {
	return &Reader{db: db}
}

// DecisionFor 返回用户在某个配对上的投票，没有投过票时返回 nil, nil
func (r *Reader) DecisionFor(ctx context.Context, userID, pairKey string) (*Vote, error) {
	if userID == "" {
		return nil, nil
	}
	var v Vote
	err := r.db.WithContext(ctx).Where("user_id = ? AND pair_key = ?", userID, pairKey).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询用户投票失败: %w", err)
	}
	return &v, nil
}
