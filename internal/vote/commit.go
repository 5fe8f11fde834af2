package vote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/versus-arena-backend/internal/item"
	"github.com/SlpAus/versus-arena-backend/internal/platform/apperr"
	"github.com/SlpAus/versus-arena-backend/internal/platform/config"
	"github.com/SlpAus/versus-arena-backend/internal/platform/database"
	"github.com/SlpAus/versus-arena-backend/internal/platform/metrics"
	"github.com/SlpAus/versus-arena-backend/pkg/lifecycle"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errConflict 表示条件更新没有命中任何行，整个尝试需要重来
var errConflict = errors.New("乐观锁冲突")

// ItemState 是提交后条目的最新状态
type ItemState struct {
	Rating          int `json:"rating"`
	ComparisonCount int `json:"comparisonCount"`
}

// CommitResult 是一次成功提交的结果。跳过时分数不变，但仍然返回。
type CommitResult struct {
	Vote     Vote                 `json:"vote"`
	Ratings  map[string]int       `json:"ratings"`
	Items    map[string]ItemState `json:"-"`
	Attempts int                  `json:"-"`
}

// CommitObserver 在事务提交成功后被调用，不能影响提交结果。
// 传入的ctx保留请求的值，但不会随请求一起取消。
type CommitObserver func(ctx context.Context, result *CommitResult)

// Committer 实现带有限重试的乐观并发提交流程
type Committer struct {
	db          *gorm.DB
	maxAttempts int
	backoff     []time.Duration
	logger      *zap.Logger
	observers   []CommitObserver

	// beforeSwap 在条件更新之前、同一事务内被调用，仅供测试制造冲突
	beforeSwap func(tx *gorm.DB, s Submission) error
}

// NewCommitter 创建提交器；cfg 中的非法值回退到默认值
func NewCommitter(db *gorm.DB, cfg config.CommitConfig, logger *zap.Logger) *Committer {
	def := config.Default().Arena.Commit
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if len(cfg.Backoff) == 0 {
		cfg.Backoff = def.Backoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Committer{
		db:          db,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
		logger:      logger,
	}
}

// OnCommit 注册一个提交成功后的观察者
func (c *Committer) OnCommit(observer CommitObserver) {
	c.observers = append(c.observers, observer)
}

// delay 返回第 attempt 次失败后的等待时间，超出配置长度时沿用最后一个值
func (c *Committer) delay(attempt int) time.Duration {
	if attempt-1 < len(c.backoff) {
		return c.backoff[attempt-1]
	}
	return c.backoff[len(c.backoff)-1]
}

// Submit 校验并提交一次对决决定。
// 只有乐观锁冲突会被重试；重复提交、条目不存在和非法输入立即返回。
func (c *Committer) Submit(ctx context.Context, s Submission) (*CommitResult, error) {
	if err := ValidateSubmission(s); err != nil {
		metrics.VoteCommits.WithLabelValues(string(apperr.CodeInvalidComparison)).Inc()
		return nil, err
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, err := c.attempt(ctx, s)
		if err == nil {
			result.Attempts = attempt
			metrics.VoteCommits.WithLabelValues("ok").Inc()
			metrics.VoteCommitAttempts.Observe(float64(attempt))
			// 事务已提交，请求被取消也不能让观察者半途而废
			observeCtx := context.WithoutCancel(ctx)
			for _, observe := range c.observers {
				observe(observeCtx, result)
			}
			return result, nil
		}

		if !errors.Is(err, errConflict) {
			metrics.VoteCommits.WithLabelValues(resultLabel(err)).Inc()
			return nil, err
		}

		metrics.VoteConflicts.Inc()
		c.logger.Debug("提交遇到并发冲突",
			zap.String("pairKey", s.PairKey),
			zap.Int("attempt", attempt),
			zap.NamedError("cause", err))

		if attempt == c.maxAttempts {
			break
		}
		if err := lifecycle.Sleep(ctx, c.delay(attempt)); err != nil {
			metrics.VoteCommits.WithLabelValues("canceled").Inc()
			return nil, err
		}
	}

	metrics.VoteCommits.WithLabelValues(string(apperr.CodeRetryExhausted)).Inc()
	c.logger.Warn("提交重试次数耗尽", zap.String("pairKey", s.PairKey), zap.Int("attempts", c.maxAttempts))
	return nil, apperr.New(apperr.CodeRetryExhausted, "服务繁忙，请稍后重试").
		WithDetail("attempts", c.maxAttempts)
}

// attempt 在单个事务中执行一次完整的提交
func (c *Committer) attempt(ctx context.Context, s Submission) (*CommitResult, error) {
	var result *CommitResult

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 检查是否已经投过票
		var existing int64
		if err := tx.Model(&Vote{}).Where("user_id = ? AND pair_key = ?", s.UserID, s.PairKey).Count(&existing).Error; err != nil {
			return fmt.Errorf("查询已有投票失败: %w", err)
		}
		if existing > 0 {
			return duplicate(s)
		}

		// 2. 读取两个条目及其版本号
		var items []item.Item
		if err := tx.Where("id IN ?", []string{s.LowID, s.HighID}).Find(&items).Error; err != nil {
			return fmt.Errorf("读取条目失败: %w", err)
		}
		byID := make(map[string]item.Item, len(items))
		for _, it := range items {
			byID[it.ID] = it
		}
		low, okLow := byID[s.LowID]
		high, okHigh := byID[s.HighID]
		if !okLow || !okHigh {
			missing := s.LowID
			if okLow {
				missing = s.HighID
			}
			return apperr.New(apperr.CodeItemNotFound, "找不到对应的条目").WithDetail("itemId", missing)
		}

		// 3. 计算新分数，跳过时保持不变
		newLow, newHigh := low.Rating, high.Rating
		if s.Outcome != OutcomeSkip {
			newLow, newHigh = UpdateRatings(low.Rating, high.Rating, eloOutcomeForLow(s))
			newLow = c.checkRating(low.ID, newLow)
			newHigh = c.checkRating(high.ID, newHigh)
		}

		if c.beforeSwap != nil {
			if err := c.beforeSwap(tx, s); err != nil {
				return err
			}
		}

		// 4. 条件更新两个条目
		now := time.Now().UTC()
		if err := compareAndSwap(tx, low, newLow, now); err != nil {
			return err
		}
		if err := compareAndSwap(tx, high, newHigh, now); err != nil {
			return err
		}

		// 5. 写入投票记录
		v := Vote{
			ID:               uuid.Must(uuid.NewV7()).String(),
			PairKey:          s.PairKey,
			UserID:           s.UserID,
			LowID:            s.LowID,
			HighID:           s.HighID,
			PresentedLeftID:  s.PresentedLeftID,
			PresentedRightID: s.PresentedRightID,
			Outcome:          s.Outcome,
			CreatedAt:        now,
		}
		if s.Outcome == OutcomeWin {
			winner := s.WinnerID
			v.WinnerID = &winner
		}
		if err := tx.Create(&v).Error; err != nil {
			if database.IsDuplicateKeyError(err) {
				return duplicate(s)
			}
			if database.IsRetryableError(err) {
				return fmt.Errorf("%w: %w", errConflict, err)
			}
			return fmt.Errorf("写入投票失败: %w", err)
		}

		result = &CommitResult{
			Vote:    v,
			Ratings: map[string]int{low.ID: newLow, high.ID: newHigh},
			Items: map[string]ItemState{
				low.ID:  {Rating: newLow, ComparisonCount: low.ComparisonCount + 1},
				high.ID: {Rating: newHigh, ComparisonCount: high.ComparisonCount + 1},
			},
		}
		return nil
	})
	if err != nil {
		// 锁等待、序列化失败等瞬时错误与乐观锁冲突同样处理
		if !errors.Is(err, errConflict) && database.IsRetryableError(err) {
			return nil, fmt.Errorf("%w: %w", errConflict, err)
		}
		return nil, err
	}
	return result, nil
}

// compareAndSwap 只在版本号未变化时更新条目，并把版本号加一
func compareAndSwap(tx *gorm.DB, it item.Item, newRating int, now time.Time) error {
	res := tx.Model(&item.Item{}).
		Where("id = ? AND version = ?", it.ID, it.Version).
		Updates(map[string]interface{}{
			"rating":           newRating,
			"comparison_count": gorm.Expr("comparison_count + 1"),
			"version":          gorm.Expr("version + 1"),
			"updated_at":       now,
		})
	if res.Error != nil {
		if database.IsRetryableError(res.Error) {
			return fmt.Errorf("%w: %w", errConflict, res.Error)
		}
		return fmt.Errorf("更新条目 %s 失败: %w", it.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return errConflict
	}
	return nil
}

// checkRating 把超出范围的分数拉回合法区间并记录警告
func (c *Committer) checkRating(itemID string, r int) int {
	if IsValidRating(r) {
		return r
	}
	c.logger.Warn("计算出的分数超出合法范围，已截断", zap.String("itemId", itemID), zap.Int("rating", r))
	return clampRating(r)
}

func duplicate(s Submission) error {
	return apperr.New(apperr.CodeDuplicateComparison, "你已经对这组对决做出过选择").
		WithDetail("pairKey", s.PairKey)
}

func resultLabel(err error) string {
	if code := apperr.CodeOf(err); code != "" {
		return string(code)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}
