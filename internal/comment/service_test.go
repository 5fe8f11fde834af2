package comment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/SlpAus/versus-arena-backend/internal/platform/apperr"
	"github.com/SlpAus/versus-arena-backend/internal/vote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) vote(userID string, outcome vote.Outcome, winner string) {
	f.t.Helper()
	v := vote.Vote{
		ID: "v-" + userID, PairKey: "a_b", UserID: userID,
		LowID: "a", HighID: "b", PresentedLeftID: "a", PresentedRightID: "b",
		Outcome: outcome, CreatedAt: time.Now().UTC(),
	}
	if winner != "" {
		v.WinnerID = &winner
	}
	require.NoError(f.t, f.db.Create(&v).Error)
}

func TestCreateCopiesDecision(t *testing.T) {
	f := newFixture(t)
	f.vote("winner-user", vote.OutcomeWin, "b")
	f.vote("tie-user", vote.OutcomeTie, "")
	svc := NewService(f.db, vote.NewReader(f.db), nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, "winner-user", "a_b", "  B is better  ")
	require.NoError(t, err)
	assert.Equal(t, "B is better", c.Content)
	assert.Equal(t, vote.OutcomeWin, c.Outcome)
	require.NotNil(t, c.WinnerID)
	assert.Equal(t, "b", *c.WinnerID)

	c, err = svc.Create(ctx, "tie-user", "a_b", "equal")
	require.NoError(t, err)
	assert.Equal(t, vote.OutcomeTie, c.Outcome)
	assert.Nil(t, c.WinnerID)

	// 新评论可以被检索到
	res, err := f.surfacer().Surface(ctx, SurfaceRequest{PairKey: "a_b", ItemA: "a", ItemB: "b"})
	require.NoError(t, err)
	assert.Len(t, res.Current, 2)
}

func TestCreateRequiresDecisiveVote(t *testing.T) {
	f := newFixture(t)
	f.vote("skip-user", vote.OutcomeSkip, "")
	svc := NewService(f.db, vote.NewReader(f.db), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "nobody", "a_b", "hello")
	assert.ErrorIs(t, err, apperr.ErrCommentNotAllowed)
	assert.Equal(t, 403, apperr.HTTPStatus(err))

	_, err = svc.Create(ctx, "skip-user", "a_b", "hello")
	assert.ErrorIs(t, err, apperr.ErrCommentNotAllowed)

	var n int64
	require.NoError(t, f.db.Model(&Comment{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateValidatesContent(t *testing.T) {
	f := newFixture(t)
	f.vote("u", vote.OutcomeWin, "a")
	svc := NewService(f.db, vote.NewReader(f.db), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u", "a_b", "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(ctx, "u", "a_b", strings.Repeat("评", MaxContentLength+1))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(ctx, "u", "a_b", strings.Repeat("评", MaxContentLength))
	assert.NoError(t, err)

	_, err = svc.Create(ctx, "u", "b_a", "hi")
	assert.ErrorIs(t, err, apperr.ErrMalformedKey)
}
