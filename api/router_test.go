package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SlpAus/versus-arena-backend/internal/comment"
	"github.com/SlpAus/versus-arena-backend/internal/item"
	"github.com/SlpAus/versus-arena-backend/internal/platform/config"
	"github.com/SlpAus/versus-arena-backend/internal/platform/database/dbtest"
	"github.com/SlpAus/versus-arena-backend/internal/platform/startup"
	"github.com/SlpAus/versus-arena-backend/internal/user"
	"github.com/SlpAus/versus-arena-backend/internal/vote"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type client struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == user.CookieName {
			c.cookie = ck
		}
	}
	return w
}

func setupApp(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	require.NoError(t, startup.Migrate(db))
	_, err := item.CreateCatalog(context.Background(), db, []item.NewItem{{Name: "Alpha"}, {Name: "Beta"}}, 1200)
	require.NoError(t, err)
	sampler, err := item.LoadSampler(context.Background(), db, nil)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Server.RateLimit.RequestsPerSecond = 0
	app, err := NewApp(&cfg, db, nil, sampler, zap.NewNop())
	require.NoError(t, err)

	r := NewRouter(cfg.Server, zap.NewNop())
	SetupRoutes(r, app)
	return r
}

func TestVoteStatsCommentFlow(t *testing.T) {
	c := &client{t: t, router: setupApp(t)}

	// 1. 领取对决，同时获得用户cookie
	w := c.do(http.MethodGet, "/api/items/pair", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, c.cookie)
	var pair item.PairResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))

	// 2. 评论前必须先投票
	w = c.do(http.MethodPost, "/api/pairs/"+pair.PairKey+"/comments", comment.CreateCommentRequest{Content: "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 3. 设置国家并投票
	w = c.do(http.MethodPut, "/api/users/me/nationality", user.UpdateNationalityRequest{Nationality: "kr"})
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodPost, "/api/votes", vote.SubmitVoteRequest{
		PairKey: pair.PairKey, LeftID: pair.Left.ID, RightID: pair.Right.ID,
		Signature: pair.Signature, Outcome: vote.OutcomeWin, WinnerID: pair.Right.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// 4. 统计
	w = c.do(http.MethodGet, "/api/pairs/"+pair.PairKey+"/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats vote.PairStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalCount)
	assert.Equal(t, 1, stats.WinCounts[pair.Right.ID])
	require.Len(t, stats.Demographics, 1)
	assert.Equal(t, "Other", stats.Demographics[0].Label)
	require.NotNil(t, stats.ViewerDecision)

	// 5. 评论并检索
	w = c.do(http.MethodPost, "/api/pairs/"+pair.PairKey+"/comments", comment.CreateCommentRequest{Content: "right one wins"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = c.do(http.MethodGet, "/api/pairs/"+pair.PairKey+"/comments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var surfaced comment.SurfaceResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &surfaced))
	require.Len(t, surfaced.Current, 1)
	assert.Equal(t, pair.Left.Name, surfaced.Current[0].OtherItemName)

	// 6. 个人统计
	w = c.do(http.MethodGet, "/api/users/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me user.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, 1, me.WinsCount)
	assert.Equal(t, "KR", me.Nationality)

	// 7. 排行榜反映分数变化
	w = c.do(http.MethodGet, "/api/items/ranking", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ranking []item.RankingItemResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ranking))
	require.Len(t, ranking, 2)
	assert.Equal(t, pair.Right.ID, ranking[0].ID)
	assert.Equal(t, 1216, ranking[0].Rating)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	c := &client{t: t, router: setupApp(t)}

	w := c.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
