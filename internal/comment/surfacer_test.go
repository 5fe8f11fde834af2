package comment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/SlpAus/versus-arena-backend/internal/item"
	"github.com/SlpAus/versus-arena-backend/internal/platform/apperr"
	"github.com/SlpAus/versus-arena-backend/internal/platform/config"
	"github.com/SlpAus/versus-arena-backend/internal/platform/database/dbtest"
	"github.com/SlpAus/versus-arena-backend/internal/vote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testUser 是 users 表的最小映射
type testUser struct {
	UUID        string `gorm:"primarykey;type:varchar(36)"`
	Nationality string
}

func (testUser) TableName() string { return "users" }

var baseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t   *testing.T
	db  *gorm.DB
	seq int
}

func newFixture(t *testing.T) *fixture {
	db := dbtest.Open(t, &item.Item{}, &vote.Vote{}, &Comment{}, &testUser{})
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, db.Create(&item.Item{ID: id, Name: "Item " + id, Rating: 1200}).Error)
	}
	return &fixture{t: t, db: db}
}

// add 写入一条评论，越晚添加的评论越新
func (f *fixture) add(pairKey string, outcome vote.Outcome, winner, nationality string) Comment {
	f.t.Helper()
	f.seq++
	author := fmt.Sprintf("author-%d", f.seq)
	require.NoError(f.t, f.db.Create(&testUser{UUID: author, Nationality: nationality}).Error)

	c := Comment{
		ID:        fmt.Sprintf("c-%03d", f.seq),
		PairKey:   pairKey,
		Outcome:   outcome,
		Content:   "comment " + pairKey,
		AuthorID:  author,
		CreatedAt: baseTime.Add(time.Duration(f.seq) * time.Second),
	}
	if winner != "" {
		w := winner
		c.WinnerID = &w
	}
	require.NoError(f.t, f.db.Create(&c).Error)
	return c
}

func (f *fixture) surfacer() *Surfacer {
	return NewSurfacer(f.db, config.Default().Arena.Comments, 5, nil)
}

func TestSurfaceExpandedOnly(t *testing.T) {
	f := newFixture(t)
	f.add("a_c", vote.OutcomeWin, "a", "KR")
	f.add("b_d", vote.OutcomeWin, "b", "KR")
	f.add("a_d", vote.OutcomeWin, "d", "KR") // 胜者不是 a/b
	f.add("c_d", vote.OutcomeTie, "", "KR")  // 与 a/b 无关
	f.add("b_c", vote.OutcomeWin, "b", "KR")

	res, err := f.surfacer().Surface(context.Background(), SurfaceRequest{
		PairKey: "a_b", ItemA: "b", ItemB: "a", IncludeExpanded: true,
	})
	require.NoError(t, err)

	assert.Empty(t, res.Current)
	require.Len(t, res.Expanded, 3)
	assert.Equal(t, 3, res.TotalCount)
	assert.False(t, res.HasMore)

	// 最新的在前
	assert.Equal(t, "b_c", res.Expanded[0].PairKey)
	assert.Equal(t, "Item c", res.Expanded[0].OtherItemName)
	assert.Equal(t, "b_d", res.Expanded[1].PairKey)
	assert.Equal(t, "Item d", res.Expanded[1].OtherItemName)
	assert.Equal(t, "a_c", res.Expanded[2].PairKey)
	assert.Equal(t, "Item c", res.Expanded[2].OtherItemName)

	require.NotNil(t, res.NextCursor)
	assert.True(t, res.NextCursor.Equal(baseTime.Add(1*time.Second)))
}

func TestSurfaceCurrentTieAndPlaceholder(t *testing.T) {
	f := newFixture(t)
	f.add("a_b", vote.OutcomeTie, "", "")
	f.add("a_b", vote.OutcomeWin, "b", "")
	f.add("a_zz", vote.OutcomeWin, "a", "") // 另一侧条目已不存在

	res, err := f.surfacer().Surface(context.Background(), SurfaceRequest{
		PairKey: "a_b", ItemA: "a", ItemB: "b", IncludeExpanded: true,
	})
	require.NoError(t, err)

	require.Len(t, res.Current, 2)
	assert.Equal(t, "Item a", res.Current[0].OtherItemName)
	assert.Equal(t, "b", res.Current[0].WinnerID)
	assert.Equal(t, "Item a & Item b", res.Current[1].OtherItemName)

	require.Len(t, res.Expanded, 1)
	assert.Equal(t, UnknownItemName, res.Expanded[0].OtherItemName)

	for _, c := range append(res.Current, res.Expanded...) {
		assert.Equal(t, "Other", c.AuthorGroup)
	}
}

func TestSurfacePrivacyAppliesToUnion(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.add("a_b", vote.OutcomeWin, "a", "KR")
	}
	for i := 0; i < 2; i++ {
		f.add("a_c", vote.OutcomeWin, "a", "KR")
	}
	f.add("a_b", vote.OutcomeWin, "b", "JP")

	res, err := f.surfacer().Surface(context.Background(), SurfaceRequest{
		PairKey: "a_b", ItemA: "a", ItemB: "b", IncludeExpanded: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Current, 4)
	require.Len(t, res.Expanded, 2)

	groups := map[string]int{}
	for _, c := range append(res.Current, res.Expanded...) {
		groups[c.AuthorGroup]++
	}
	assert.Equal(t, map[string]int{"KR": 5, "Other": 1}, groups)
}

func TestSurfacePaginationAndHasMore(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.add("a_b", vote.OutcomeWin, "a", "")
	}

	s := f.surfacer()
	first, err := s.Surface(context.Background(), SurfaceRequest{
		PairKey: "a_b", ItemA: "a", ItemB: "b", CurrentLimit: 3,
	})
	require.NoError(t, err)
	require.Len(t, first.Current, 3)
	assert.Empty(t, first.Expanded)
	assert.True(t, first.HasMore)
	assert.Equal(t, Limits{Current: 3, Expanded: 0}, first.Limits)
	assert.Equal(t, "c-005", first.Current[0].ID)

	second, err := s.Surface(context.Background(), SurfaceRequest{
		PairKey: "a_b", ItemA: "a", ItemB: "b", CurrentLimit: 3, Cursor: first.NextCursor,
	})
	require.NoError(t, err)
	require.Len(t, second.Current, 2)
	assert.False(t, second.HasMore)
	assert.Equal(t, []string{"c-002", "c-001"}, []string{second.Current[0].ID, second.Current[1].ID})
}

func TestSurfaceSharedCursorFollowsOldestList(t *testing.T) {
	f := newFixture(t)
	f.add("a_c", vote.OutcomeWin, "a", "")
	for i := 0; i < 4; i++ {
		f.add("a_b", vote.OutcomeWin, "b", "")
	}
	s := f.surfacer()

	// 展开列表更旧，游标跟随它，当前配对中间的评论不会出现在下一页
	mixed, err := s.Surface(context.Background(), SurfaceRequest{
		PairKey: "a_b", ItemA: "a", ItemB: "b", CurrentLimit: 2, ExpandedLimit: 2, IncludeExpanded: true,
	})
	require.NoError(t, err)
	require.Len(t, mixed.Current, 2)
	require.Len(t, mixed.Expanded, 1)
	require.NotNil(t, mixed.NextCursor)
	assert.True(t, mixed.NextCursor.Equal(baseTime.Add(1*time.Second)))

	next, err := s.Surface(context.Background(), SurfaceRequest{
		PairKey: "a_b", ItemA: "a", ItemB: "b", CurrentLimit: 2, Cursor: mixed.NextCursor,
	})
	require.NoError(t, err)
	assert.Empty(t, next.Current)

	// 只翻当前配对时可以取到全部评论
	only, err := s.Surface(context.Background(), SurfaceRequest{
		PairKey: "a_b", ItemA: "a", ItemB: "b", CurrentLimit: 2,
	})
	require.NoError(t, err)
	next, err = s.Surface(context.Background(), SurfaceRequest{
		PairKey: "a_b", ItemA: "a", ItemB: "b", CurrentLimit: 2, Cursor: only.NextCursor,
	})
	require.NoError(t, err)
	require.Len(t, next.Current, 2)
	assert.Equal(t, []string{"c-003", "c-002"}, []string{next.Current[0].ID, next.Current[1].ID})
}

func TestSurfaceScalesOversizedLimits(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 25; i++ {
		f.add("a_b", vote.OutcomeWin, "a", "")
		f.add("a_c", vote.OutcomeWin, "a", "")
	}

	res, err := f.surfacer().Surface(context.Background(), SurfaceRequest{
		PairKey: "a_b", ItemA: "a", ItemB: "b", CurrentLimit: 50, ExpandedLimit: 100, IncludeExpanded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, Limits{Current: 13, Expanded: 25}, Limits{Current: len(res.Current), Expanded: len(res.Expanded)})
	assert.Equal(t, Limits{Current: 13, Expanded: 27}, res.Limits)
	assert.LessOrEqual(t, res.TotalCount, config.Default().Arena.Comments.AbsoluteMaxLimit)
	assert.False(t, res.HasMore)
}

func TestSurfaceRejectsMismatchedPair(t *testing.T) {
	f := newFixture(t)
	s := f.surfacer()

	tests := []SurfaceRequest{
		{PairKey: "a_b", ItemA: "a", ItemB: "c"},
		{PairKey: "a_b", ItemA: "a"},
		{PairKey: "b_a", ItemA: "a", ItemB: "b"},
		{PairKey: "", ItemA: "a", ItemB: "b"},
	}
	for _, req := range tests {
		_, err := s.Surface(context.Background(), req)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%+v", req)
	}
}
