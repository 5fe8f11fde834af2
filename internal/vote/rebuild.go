package vote

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SlpAus/versus-arena-backend/internal/item"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const rebuildBatchSize = 1000

// RatingChange 描述一个条目在重建前后的差异
type RatingChange struct {
	ItemID       string `json:"itemId"`
	Name         string `json:"name"`
	RatingBefore int    `json:"ratingBefore"`
	RatingAfter  int    `json:"ratingAfter"`
	CountBefore  int    `json:"countBefore"`
	CountAfter   int    `json:"countAfter"`
}

// RebuildReport 是一次重建的结果
type RebuildReport struct {
	VotesReplayed int            `json:"votesReplayed"`
	OrphanVotes   int            `json:"orphanVotes"`
	Clamped       int            `json:"clamped"`
	Changes       []RatingChange `json:"changes"`
	Applied       bool           `json:"applied"`
}

// RebuildRatings 从初始分数出发按时间顺序重放全部投票，重新计算每个条目的分数和对决次数。
// dryRun 为 true 时只计算差异，不写回数据库。
// 写回时每个条目的版本号都会加一，正在进行的提交会因此冲突并重试。
func RebuildRatings(ctx context.Context, db *gorm.DB, initialRating int, dryRun bool, logger *zap.Logger) (*RebuildReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	report := &RebuildReport{}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 读取所有条目，以初始分数作为重放起点
		var items []item.Item
		if err := tx.Order("id asc").Find(&items).Error; err != nil {
			return fmt.Errorf("读取条目失败: %w", err)
		}
		states := make(map[string]*ItemState, len(items))
		for _, it := range items {
			states[it.ID] = &ItemState{Rating: initialRating}
		}

		// 2. 按主键分批重放；ID是UUIDv7，主键顺序即写入顺序
		var batch []Vote
		res := tx.Model(&Vote{}).FindInBatches(&batch, rebuildBatchSize, func(_ *gorm.DB, _ int) error {
			for _, v := range batch {
				low, okLow := states[v.LowID]
				high, okHigh := states[v.HighID]
				if !okLow || !okHigh {
					report.OrphanVotes++
					continue
				}
				report.VotesReplayed++
				low.ComparisonCount++
				high.ComparisonCount++
				if v.Outcome == OutcomeSkip {
					continue
				}

				outcome := eloOutcomeForLow(Submission{Outcome: v.Outcome, LowID: v.LowID, WinnerID: v.Winner()})
				newLow, newHigh := UpdateRatings(low.Rating, high.Rating, outcome)
				if !IsValidRating(newLow) || !IsValidRating(newHigh) {
					report.Clamped++
				}
				low.Rating, high.Rating = clampRating(newLow), clampRating(newHigh)
			}
			return ctx.Err()
		})
		if res.Error != nil {
			return fmt.Errorf("重放投票失败: %w", res.Error)
		}

		// 3. 收集差异
		for _, it := range items {
			st := states[it.ID]
			if st.Rating == it.Rating && st.ComparisonCount == it.ComparisonCount {
				continue
			}
			report.Changes = append(report.Changes, RatingChange{
				ItemID:       it.ID,
				Name:         it.Name,
				RatingBefore: it.Rating,
				RatingAfter:  st.Rating,
				CountBefore:  it.ComparisonCount,
				CountAfter:   st.ComparisonCount,
			})
		}
		sort.Slice(report.Changes, func(i, j int) bool {
			return report.Changes[i].ItemID < report.Changes[j].ItemID
		})
		if dryRun {
			return nil
		}

		// 4. 写回有差异的条目
		now := time.Now().UTC()
		for _, ch := range report.Changes {
			err := tx.Model(&item.Item{}).Where("id = ?", ch.ItemID).Updates(map[string]interface{}{
				"rating":           ch.RatingAfter,
				"comparison_count": ch.CountAfter,
				"version":          gorm.Expr("version + 1"),
				"updated_at":       now,
			}).Error
			if err != nil {
				return fmt.Errorf("写回条目 %s 失败: %w", ch.ItemID, err)
			}
		}
		report.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if report.OrphanVotes > 0 {
		logger.Warn("部分投票引用了不存在的条目，已忽略", zap.Int("count", report.OrphanVotes))
	}
	logger.Info("分数重建完成",
		zap.Int("votes", report.VotesReplayed),
		zap.Int("changed", len(report.Changes)),
		zap.Bool("applied", report.Applied))
	return report, nil
}
