package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SlpAus/versus-arena-backend/internal/platform/apperr"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service 管理用户的激活、偏好和个人统计
type Service struct {
	db       *gorm.DB
	validate *validator.Validate
	logger   *zap.Logger
}

// NewService 创建用户服务
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, validate: validator.New(), logger: logger}
}

// Activate 将一个临时的UUID持久化，已存在时不做任何事
func (s *Service) Activate(ctx context.Context, userID string) error {
	if !IsValidUUID(userID) {
		return apperr.New(apperr.CodeValidation, "无效的用户ID")
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&User{UUID: userID}).Error
	if err != nil {
		return fmt.Errorf("无法创建用户 %s: %w", userID, err)
	}
	return nil
}

// Get 返回用户；用户尚未激活时返回一个只有ID的零值用户
func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("uuid = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &User{UUID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return &u, nil
}

// UpdateNationality 设置用户的国家代码，空字符串表示清除
func (s *Service) UpdateNationality(ctx context.Context, userID, nationality string) (*User, error) {
	code := strings.ToUpper(strings.TrimSpace(nationality))
	if code != "" {
		if err := s.validate.Var(code, "iso3166_1_alpha2"); err != nil {
			return nil, apperr.New(apperr.CodeValidation, "无效的国家代码").WithDetail("nationality", nationality)
		}
	}
	if err := s.Activate(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&User{}).Where("uuid = ?", userID).Update("nationality", code).Error; err != nil {
		return nil, fmt.Errorf("更新国家代码失败: %w", err)
	}
	return s.Get(ctx, userID)
}

// RecordDecision 激活用户并累加其个人统计，在投票提交成功后调用。
// 失败只记录日志：投票本身已经提交。
func (s *Service) RecordDecision(ctx context.Context, userID, outcome string) {
	if err := s.Activate(ctx, userID); err != nil {
		s.logger.Warn("激活用户失败", zap.String("userId", userID), zap.Error(err))
		return
	}

	var column string
	switch outcome {
	case "win":
		column = "wins_count"
	case "tie":
		column = "draw_count"
	case "skip":
		column = "skip_count"
	default:
		return
	}
	err := s.db.WithContext(ctx).Model(&User{}).Where("uuid = ?", userID).
		Update(column, gorm.Expr(column+" + 1")).Error
	if err != nil {
		s.logger.Warn("更新用户统计失败", zap.String("userId", userID), zap.Error(err))
	}
}
