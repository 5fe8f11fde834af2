package comment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SlpAus/versus-arena-backend/internal/item"
	"github.com/SlpAus/versus-arena-backend/internal/platform/apperr"
	"github.com/SlpAus/versus-arena-backend/internal/platform/config"
	"github.com/SlpAus/versus-arena-backend/internal/platform/metrics"
	"github.com/SlpAus/versus-arena-backend/internal/privacy"
	"github.com/SlpAus/versus-arena-backend/internal/vote"
	"github.com/SlpAus/versus-arena-backend/pkg/pairkey"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	// UnknownItemName 是无法解析交叉引用时使用的占位名称
	UnknownItemName = "未知项目"
	// tieNameJoiner 连接平局评论所在配对的两个条目名称
	tieNameJoiner = " & "
)

// SurfaceRequest 是跨配对评论检索的参数
type SurfaceRequest struct {
	PairKey         string
	ItemA           string
	ItemB           string
	CurrentLimit    int
	ExpandedLimit   int
	IncludeExpanded bool
	// Cursor 是创建时间的开区间上界，为空表示从最新开始
	Cursor *time.Time
}

// SurfacedComment 是返回给调用方的一条评论
type SurfacedComment struct {
	ID       string       `json:"id"`
	PairKey  string       `json:"pairKey"`
	Outcome  vote.Outcome `json:"outcome"`
	WinnerID string       `json:"winnerId,omitempty"`
	Content  string       `json:"content"`
	// AuthorGroup 是匿名化之后的作者国家分组
	AuthorGroup string `json:"authorGroup"`
	// OtherItemName 是评论所在配对中与胜者相对的条目；平局时是两个条目的名称
	OtherItemName string    `json:"otherItemName"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SurfaceResult 是跨配对评论检索的结果
type SurfaceResult struct {
	Current    []SurfacedComment `json:"current"`
	Expanded   []SurfacedComment `json:"expanded"`
	TotalCount int               `json:"totalCount"`
	HasMore    bool              `json:"hasMore"`
	NextCursor *time.Time        `json:"nextCursor,omitempty"`
	Limits     Limits            `json:"limits"`
}

// commentRow 是查询结果的一行，AuthorNationality 来自 users 表
type commentRow struct {
	Comment
	AuthorNationality *string

	authorGroup string
}

// Surfacer 检索一个配对自身的评论以及两个条目在其他配对中的评论
type Surfacer struct {
	db           *gorm.DB
	limits       config.CommentsConfig
	minGroupSize int
	logger       *zap.Logger
}

// NewSurfacer 创建评论检索器
func NewSurfacer(db *gorm.DB, limits config.CommentsConfig, minGroupSize int, logger *zap.Logger) *Surfacer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Surfacer{db: db, limits: limits, minGroupSize: minGroupSize, logger: logger}
}

// Surface 执行一次检索
func (s *Surfacer) Surface(ctx context.Context, req SurfaceRequest) (*SurfaceResult, error) {
	start := time.Now()
	defer func() { metrics.SurfaceDuration.Observe(time.Since(start).Seconds()) }()

	// 1. 配对键必须与两个条目对应
	if req.ItemA == "" || req.ItemB == "" {
		return nil, apperr.New(apperr.CodeValidation, "缺少条目ID")
	}
	if _, _, err := pairkey.Decode(req.PairKey); err != nil {
		return nil, apperr.New(apperr.CodeValidation, "配对键无效").WithDetail("pairKey", req.PairKey).WithCause(err)
	}
	if !pairkey.SamePair(req.PairKey, req.ItemA, req.ItemB) {
		return nil, apperr.New(apperr.CodeValidation, "配对键与条目不一致").WithDetail("pairKey", req.PairKey)
	}

	limits := EffectiveLimits(req.CurrentLimit, req.ExpandedLimit, req.IncludeExpanded, s.limits)

	// 2. 并发查询两个列表
	var current, expanded []commentRow
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.query(gctx, req.Cursor, limits.Current, "comments.pair_key = ?", req.PairKey)
		current = rows
		return err
	})
	if limits.Expanded > 0 {
		g.Go(func() error {
			rows, err := s.query(gctx, req.Cursor, limits.Expanded,
				"comments.pair_key <> ? AND comments.winner_id IN ?", req.PairKey, []string{req.ItemA, req.ItemB})
			expanded = rows
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 3. 解析交叉引用名称
	all := make([]commentRow, 0, len(current)+len(expanded))
	all = append(all, current...)
	all = append(all, expanded...)
	names := s.resolveNames(ctx, all)

	// 4. 对两个列表的并集统一做匿名化，然后再拆分
	all = privacy.Protect(all, s.minGroupSize,
		func(r commentRow) string {
			if r.AuthorNationality == nil {
				return ""
			}
			return *r.AuthorNationality
		},
		func(r commentRow, label string) commentRow { r.authorGroup = label; return r })

	surfaced := make([]SurfacedComment, len(all))
	for i, r := range all {
		surfaced[i] = SurfacedComment{
			ID:            r.ID,
			PairKey:       r.PairKey,
			Outcome:       r.Outcome,
			Content:       r.Content,
			AuthorGroup:   r.authorGroup,
			OtherItemName: crossReference(r.Comment, names),
			CreatedAt:     r.CreatedAt,
		}
		if r.WinnerID != nil {
			surfaced[i].WinnerID = *r.WinnerID
		}
	}

	result := &SurfaceResult{
		Current:    surfaced[:len(current)],
		Expanded:   surfaced[len(current):],
		TotalCount: len(all),
		HasMore:    len(all) >= limits.Sum(),
		Limits:     limits,
	}
	for _, c := range surfaced {
		if result.NextCursor == nil || c.CreatedAt.Before(*result.NextCursor) {
			t := c.CreatedAt
			result.NextCursor = &t
		}
	}
	return result, nil
}

// query 按创建时间倒序读取评论，并带上作者的国家
func (s *Surfacer) query(ctx context.Context, cursor *time.Time, limit int, where string, args ...interface{}) ([]commentRow, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := s.db.WithContext(ctx).
		Table("comments").
		Select("comments.*, users.nationality AS author_nationality").
		Joins("LEFT JOIN users ON users.uuid = comments.author_id").
		Where(where, args...)
	if cursor != nil {
		q = q.Where("comments.created_at < ?", *cursor)
	}
	var rows []commentRow
	if err := q.Order("comments.created_at DESC").Order("comments.id DESC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询评论失败: %w", err)
	}
	return rows, nil
}

// resolveNames 一次性查出所有评论所在配对涉及的条目名称。
// 查询失败不影响结果，相关评论会使用占位名称。
func (s *Surfacer) resolveNames(ctx context.Context, rows []commentRow) map[string]string {
	seen := make(map[string]bool)
	ids := make([]string, 0, len(rows)*2)
	for _, r := range rows {
		low, high, err := pairkey.Decode(r.PairKey)
		if err != nil {
			continue
		}
		for _, id := range []string{low, high} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	names, err := item.NamesByIDs(ctx, s.db, ids)
	if err != nil {
		s.logger.Warn("解析评论交叉引用失败，使用占位名称", zap.Error(err))
		return map[string]string{}
	}
	return names
}

// crossReference 返回评论的对照条目名称，无法解析时返回占位名称
func crossReference(c Comment, names map[string]string) string {
	low, high, err := pairkey.Decode(c.PairKey)
	if err != nil {
		metrics.SurfaceFallbacks.Inc()
		return UnknownItemName
	}

	if c.WinnerID == nil {
		lowName, okLow := names[low]
		highName, okHigh := names[high]
		if !okLow || !okHigh {
			metrics.SurfaceFallbacks.Inc()
			return UnknownItemName
		}
		return strings.Join([]string{lowName, highName}, tieNameJoiner)
	}

	other := low
	if *c.WinnerID == low {
		other = high
	}
	name, ok := names[other]
	if !ok {
		metrics.SurfaceFallbacks.Inc()
		return UnknownItemName
	}
	return name
}
