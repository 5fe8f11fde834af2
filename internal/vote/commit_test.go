package vote

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SlpAus/versus-arena-backend/internal/item"
	"github.com/SlpAus/versus-arena-backend/internal/platform/apperr"
	"github.com/SlpAus/versus-arena-backend/internal/platform/config"
	"github.com/SlpAus/versus-arena-backend/internal/platform/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// statsUser 是 users 表的最小映射，供统计查询的 JOIN 使用
type statsUser struct {
	UUID        string `gorm:"primarykey;type:varchar(36)"`
	Nationality string
}

func (statsUser) TableName() string { return "users" }

func openVoteDB(t *testing.T, ratings map[string]int) *gorm.DB {
	t.Helper()
	db := dbtest.Open(t, &item.Item{}, &Vote{}, &statsUser{})
	for id, r := range ratings {
		require.NoError(t, db.Create(&item.Item{ID: id, Name: "item " + id, Rating: r}).Error)
	}
	return db
}

func newTestCommitter(db *gorm.DB) *Committer {
	return NewCommitter(db, config.CommitConfig{MaxAttempts: 3, Backoff: []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}}, nil)
}

func loadItem(t *testing.T, db *gorm.DB, id string) item.Item {
	t.Helper()
	var it item.Item
	require.NoError(t, db.Where("id = ?", id).First(&it).Error)
	return it
}

func countVotes(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&Vote{}).Count(&n).Error)
	return n
}

func TestSubmitWinUpdatesRatings(t *testing.T) {
	db := openVoteDB(t, map[string]int{"a": 1200, "b": 1200})
	c := newTestCommitter(db)

	var observed []*CommitResult
	c.OnCommit(func(_ context.Context, r *CommitResult) { observed = append(observed, r) })

	res, err := c.Submit(context.Background(), NewSubmission("u1", "b", "a", OutcomeWin, "b"))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"a": 1184, "b": 1216}, res.Ratings)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "a_b", res.Vote.PairKey)
	assert.Equal(t, "b", res.Vote.PresentedLeftID)
	assert.Equal(t, "b", res.Vote.Winner())
	require.Len(t, observed, 1)
	assert.Equal(t, ItemState{Rating: 1216, ComparisonCount: 1}, observed[0].Items["b"])

	a := loadItem(t, db, "a")
	b := loadItem(t, db, "b")
	assert.Equal(t, 1184, a.Rating)
	assert.Equal(t, 1216, b.Rating)
	assert.Equal(t, 1, a.ComparisonCount)
	assert.EqualValues(t, 1, a.Version)
	assert.EqualValues(t, 1, b.Version)
}

func TestSubmitSkipOnlyCounts(t *testing.T) {
	db := openVoteDB(t, map[string]int{"a": 1300, "b": 1100})
	c := newTestCommitter(db)

	res, err := c.Submit(context.Background(), NewSubmission("u1", "a", "b", OutcomeSkip, ""))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1300, "b": 1100}, res.Ratings)
	assert.Nil(t, res.Vote.WinnerID)

	a := loadItem(t, db, "a")
	b := loadItem(t, db, "b")
	assert.Equal(t, 1300, a.Rating)
	assert.Equal(t, 1100, b.Rating)
	assert.Equal(t, 1, a.ComparisonCount)
	assert.Equal(t, 1, b.ComparisonCount)
}

func TestObserversOutliveCanceledRequest(t *testing.T) {
	db := openVoteDB(t, map[string]int{"a": 1200, "b": 1200})
	c := newTestCommitter(db)

	type ctxKey struct{}
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "req-1"))
	defer cancel()

	var observedErr error
	var observedValue interface{}
	c.OnCommit(func(_ context.Context, _ *CommitResult) { cancel() })
	c.OnCommit(func(ctx context.Context, _ *CommitResult) {
		observedErr = ctx.Err()
		observedValue = ctx.Value(ctxKey{})
	})

	_, err := c.Submit(ctx, NewSubmission("u1", "a", "b", OutcomeTie, ""))
	require.NoError(t, err)
	assert.NoError(t, observedErr)
	assert.Equal(t, "req-1", observedValue)
}

func TestSubmitDuplicateIsTerminal(t *testing.T) {
	db := openVoteDB(t, map[string]int{"a": 1200, "b": 1200})
	c := newTestCommitter(db)
	ctx := context.Background()

	_, err := c.Submit(ctx, NewSubmission("u1", "a", "b", OutcomeWin, "a"))
	require.NoError(t, err)
	before := loadItem(t, db, "a")

	// 换一个展示顺序和结果也算同一配对
	_, err = c.Submit(ctx, NewSubmission("u1", "b", "a", OutcomeTie, ""))
	require.ErrorIs(t, err, apperr.ErrDuplicateComparison)
	assert.Equal(t, 409, apperr.HTTPStatus(err))

	after := loadItem(t, db, "a")
	assert.Equal(t, before.Rating, after.Rating)
	assert.Equal(t, before.ComparisonCount, after.ComparisonCount)
	assert.EqualValues(t, 1, countVotes(t, db))
}

func TestSubmitMissingItem(t *testing.T) {
	db := openVoteDB(t, map[string]int{"a": 1200})
	c := newTestCommitter(db)

	_, err := c.Submit(context.Background(), NewSubmission("u1", "a", "z", OutcomeWin, "a"))
	require.ErrorIs(t, err, apperr.ErrItemNotFound)

	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "z", e.Details["itemId"])
	assert.Zero(t, countVotes(t, db))
	assert.Equal(t, 0, loadItem(t, db, "a").ComparisonCount)
}

func TestSubmitInvalidNeverTouchesStore(t *testing.T) {
	db := openVoteDB(t, map[string]int{"a": 1200, "b": 1200})
	c := newTestCommitter(db)

	_, err := c.Submit(context.Background(), NewSubmission("u1", "a", "b", OutcomeWin, "c"))
	require.ErrorIs(t, err, apperr.ErrInvalidComparison)
	assert.Zero(t, countVotes(t, db))
}

func TestSubmitClampsRating(t *testing.T) {
	db := openVoteDB(t, map[string]int{"a": 4000, "b": 4000})
	c := newTestCommitter(db)

	res, err := c.Submit(context.Background(), NewSubmission("u1", "a", "b", OutcomeWin, "a"))
	require.NoError(t, err)
	assert.Equal(t, 4000, res.Ratings["a"])
	assert.Equal(t, 3984, res.Ratings["b"])
}

func TestSubmitRetriesOnConflict(t *testing.T) {
	db := openVoteDB(t, map[string]int{"a": 1200, "b": 1200})
	c := newTestCommitter(db)

	calls := 0
	c.beforeSwap = func(tx *gorm.DB, s Submission) error {
		calls++
		if calls == 1 {
			// 模拟另一个写者在读取之后修改了条目
			return tx.Model(&item.Item{}).Where("id = ?", s.LowID).Update("version", gorm.Expr("version + 1")).Error
		}
		return nil
	}

	res, err := c.Submit(context.Background(), NewSubmission("u1", "a", "b", OutcomeWin, "a"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 2, calls)

	a := loadItem(t, db, "a")
	assert.Equal(t, 1216, a.Rating)
	assert.Equal(t, 1, a.ComparisonCount)
	assert.EqualValues(t, 1, countVotes(t, db))
}

func TestSubmitRetryExhausted(t *testing.T) {
	db := openVoteDB(t, map[string]int{"a": 1200, "b": 1200})
	c := newTestCommitter(db)

	calls := 0
	c.beforeSwap = func(tx *gorm.DB, s Submission) error {
		calls++
		return tx.Model(&item.Item{}).Where("id = ?", s.HighID).Update("version", gorm.Expr("version + 1")).Error
	}

	_, err := c.Submit(context.Background(), NewSubmission("u1", "a", "b", OutcomeWin, "a"))
	require.ErrorIs(t, err, apperr.ErrRetryExhausted)
	assert.Equal(t, 503, apperr.HTTPStatus(err))
	assert.Equal(t, 3, calls)

	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.True(t, e.Retryable)

	// 每次尝试都被回滚
	a := loadItem(t, db, "a")
	assert.Equal(t, 1200, a.Rating)
	assert.Equal(t, 0, a.ComparisonCount)
	assert.EqualValues(t, 0, loadItem(t, db, "b").Version)
	assert.Zero(t, countVotes(t, db))
}

func TestSubmitBackoffHonoursContext(t *testing.T) {
	db := openVoteDB(t, map[string]int{"a": 1200, "b": 1200})
	c := NewCommitter(db, config.CommitConfig{MaxAttempts: 3, Backoff: []time.Duration{time.Hour}}, nil)
	c.beforeSwap = func(tx *gorm.DB, s Submission) error {
		return tx.Model(&item.Item{}).Where("id = ?", s.LowID).Update("version", gorm.Expr("version + 1")).Error
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Submit(ctx, NewSubmission("u1", "a", "b", OutcomeWin, "a"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestConcurrentSubmissionsLoseNoUpdates(t *testing.T) {
	db := openVoteDB(t, map[string]int{"a": 1200, "b": 1200})
	c := newTestCommitter(db)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Submit(context.Background(), NewSubmission(fmt.Sprintf("user-%d", i), "a", "b", OutcomeWin, "a"))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	// 所有投票结果相同，任何串行顺序得到的分数都一样
	wantA, wantB := 1200, 1200
	for i := 0; i < n; i++ {
		wantA, wantB = UpdateRatings(wantA, wantB, EloWin)
	}

	a := loadItem(t, db, "a")
	b := loadItem(t, db, "b")
	assert.Equal(t, wantA, a.Rating)
	assert.Equal(t, wantB, b.Rating)
	assert.Equal(t, n, a.ComparisonCount)
	assert.Equal(t, n, b.ComparisonCount)
	assert.EqualValues(t, n, a.Version)
	assert.EqualValues(t, n, countVotes(t, db))
}

func TestConcurrentDuplicateFromSameUser(t *testing.T) {
	db := openVoteDB(t, map[string]int{"a": 1200, "b": 1200})
	c := newTestCommitter(db)

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Submit(context.Background(), NewSubmission("same-user", "a", "b", OutcomeTie, ""))
		}(i)
	}
	wg.Wait()

	ok, dup := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.CodeOf(err) == apperr.CodeDuplicateComparison:
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
	assert.Equal(t, 1, loadItem(t, db, "a").ComparisonCount)
}
