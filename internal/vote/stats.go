package vote

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/SlpAus/versus-arena-backend/internal/privacy"
	"github.com/SlpAus/versus-arena-backend/pkg/pairkey"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GroupStats 是一个人口统计分组内的胜负分布
type GroupStats struct {
	Label          string             `json:"label"`
	Total          int                `json:"total"`
	WinCounts      map[string]int     `json:"winCounts"`
	TieCount       int                `json:"tieCount"`
	WinPercentages map[string]float64 `json:"winPercentages"`
	TiePercentage  float64            `json:"tiePercentage"`
}

// ViewerDecision 是当前查看者自己的选择
type ViewerDecision struct {
	Outcome   Outcome   `json:"outcome"`
	WinnerID  string    `json:"winnerId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// PairStats 是一个配对的投票统计。百分比以胜负和平局的总数为分母，跳过不计入。
type PairStats struct {
	PairKey        string             `json:"pairKey"`
	LowID          string             `json:"lowId"`
	HighID         string             `json:"highId"`
	TotalCount     int                `json:"totalCount"`
	WinCounts      map[string]int     `json:"winCounts"`
	TieCount       int                `json:"tieCount"`
	SkipCount      int                `json:"skipCount"`
	WinPercentages map[string]float64 `json:"winPercentages"`
	TiePercentage  float64            `json:"tiePercentage"`
	Demographics   []GroupStats       `json:"demographics"`
	ViewerDecision *ViewerDecision    `json:"viewerDecision,omitempty"`
}

// voteRow 是统计查询的一行，Nationality 来自 users 表
type voteRow struct {
	Outcome     Outcome
	WinnerID    *string
	Nationality *string

	group string
}

// StatsService 计算配对统计，可选地使用Redis缓存
type StatsService struct {
	db           *gorm.DB
	reader       *Reader
	cache        *StatsCache
	minGroupSize int
	logger       *zap.Logger
}

// NewStatsService 创建统计服务；cache 可以为 nil
func NewStatsService(db *gorm.DB, cache *StatsCache, minGroupSize int, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		db:           db,
		reader:       NewReader(db),
		cache:        cache,
		minGroupSize: minGroupSize,
		logger:       logger,
	}
}

// ComputeStats 返回配对的统计；viewerUserID 非空时附带该用户自己的选择。
// 缓存中只保存不含查看者信息的部分。
func (s *StatsService) ComputeStats(ctx context.Context, pairKey, viewerUserID string) (*PairStats, error) {
	low, high, err := pairkey.Decode(pairKey)
	if err != nil {
		return nil, err
	}

	stats, ok := s.cache.Get(ctx, pairKey)
	if !ok {
		stats, err = s.aggregate(ctx, pairKey, low, high)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, pairKey, stats)
	}

	if viewerUserID != "" {
		v, err := s.reader.DecisionFor(ctx, viewerUserID, pairKey)
		if err != nil {
			return nil, err
		}
		if v != nil {
			stats.ViewerDecision = &ViewerDecision{Outcome: v.Outcome, WinnerID: v.Winner(), CreatedAt: v.CreatedAt}
		}
	}
	return stats, nil
}

func (s *StatsService) aggregate(ctx context.Context, pairKey, low, high string) (*PairStats, error) {
	var rows []voteRow
	err := s.db.WithContext(ctx).
		Table("votes").
		Select("votes.outcome, votes.winner_id, users.nationality").
		Joins("LEFT JOIN users ON users.uuid = votes.user_id").
		Where("votes.pair_key = ?", pairKey).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询配对 %s 的投票失败: %w", pairKey, err)
	}
	return buildStats(pairKey, low, high, rows, s.minGroupSize), nil
}

// buildStats 汇总投票行。人口统计只基于胜负和平局，并先做匿名化再分组。
func buildStats(pairKey, low, high string, rows []voteRow, minGroupSize int) *PairStats {
	stats := &PairStats{
		PairKey:      pairKey,
		LowID:        low,
		HighID:       high,
		TotalCount:   len(rows),
		WinCounts:    map[string]int{low: 0, high: 0},
		Demographics: []GroupStats{},
	}

	decisive := make([]voteRow, 0, len(rows))
	for _, r := range rows {
		switch r.Outcome {
		case OutcomeWin:
			if r.WinnerID != nil {
				stats.WinCounts[*r.WinnerID]++
			}
			decisive = append(decisive, r)
		case OutcomeTie:
			stats.TieCount++
			decisive = append(decisive, r)
		case OutcomeSkip:
			stats.SkipCount++
		}
	}
	stats.WinPercentages, stats.TiePercentage = percentages(stats.WinCounts, stats.TieCount, len(decisive))

	// 匿名化必须作用于全部参与展示的记录
	decisive = privacy.Protect(decisive, minGroupSize,
		func(r voteRow) string { return derefOrEmpty(r.Nationality) },
		func(r voteRow, label string) voteRow { r.group = label; return r })

	groups := make(map[string]*GroupStats)
	for _, r := range decisive {
		g, ok := groups[r.group]
		if !ok {
			g = &GroupStats{Label: r.group, WinCounts: map[string]int{low: 0, high: 0}}
			groups[r.group] = g
		}
		g.Total++
		if r.Outcome == OutcomeTie {
			g.TieCount++
		} else if r.WinnerID != nil {
			g.WinCounts[*r.WinnerID]++
		}
	}
	for _, g := range groups {
		g.WinPercentages, g.TiePercentage = percentages(g.WinCounts, g.TieCount, g.Total)
		stats.Demographics = append(stats.Demographics, *g)
	}
	sort.Slice(stats.Demographics, func(i, j int) bool {
		a, b := stats.Demographics[i], stats.Demographics[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Label < b.Label
	})
	return stats
}

func percentages(wins map[string]int, ties, total int) (map[string]float64, float64) {
	out := make(map[string]float64, len(wins))
	for id, n := range wins {
		out[id] = percent(n, total)
	}
	return out, percent(ties, total)
}

// percent 返回保留两位小数的百分比，分母为0时返回0
func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)*10000/float64(total)) / 100
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
