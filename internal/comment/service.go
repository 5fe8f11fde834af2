package comment

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SlpAus/versus-arena-backend/internal/platform/apperr"
	"github.com/SlpAus/versus-arena-backend/internal/vote"
	"github.com/SlpAus/versus-arena-backend/pkg/pairkey"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxContentLength 是评论内容的最大字符数
const MaxContentLength = 1000

// EligibilityChecker 返回用户在配对上的投票，没有投票时返回 nil
type EligibilityChecker interface {
	DecisionFor(ctx context.Context, userID, pairKey string) (*vote.Vote, error)
}

// Service 负责创建评论
type Service struct {
	db       *gorm.DB
	eligible EligibilityChecker
	logger   *zap.Logger
}

// NewService 创建评论服务
func NewService(db *gorm.DB, eligible EligibilityChecker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, eligible: eligible, logger: logger}
}

// Create 为用户在配对上的投票结果添加一条评论。
// 只有对该配对投出胜负或平局的用户可以评论，评论复制投票的结果和胜者。
func (s *Service) Create(ctx context.Context, userID, pairKey, content string) (*Comment, error) {
	if _, _, err := pairkey.Decode(pairKey); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.New(apperr.CodeValidation, "评论内容不能为空").WithDetail("field", "content")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, apperr.New(apperr.CodeValidation, "评论内容过长").
			WithDetail("field", "content").
			WithDetail("max", MaxContentLength)
	}

	v, err := s.eligible.DecisionFor(ctx, userID, pairKey)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperr.New(apperr.CodeCommentNotAllowed, "需要先对这组对决做出选择才能评论").WithDetail("pairKey", pairKey)
	}
	if !v.Outcome.Decisive() {
		return nil, apperr.New(apperr.CodeCommentNotAllowed, "跳过的对决不能评论").WithDetail("pairKey", pairKey)
	}

	c := Comment{
		ID:        uuid.Must(uuid.NewV7()).String(),
		PairKey:   pairKey,
		Outcome:   v.Outcome,
		WinnerID:  v.WinnerID,
		Content:   content,
		AuthorID:  userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("保存评论失败: %w", err)
	}
	s.logger.Debug("新增评论", zap.String("pairKey", pairKey), zap.String("commentId", c.ID))
	return &c, nil
}
