package vote

import (
	"net/http"

	"github.com/SlpAus/versus-arena-backend/internal/platform/apperr"
	"github.com/SlpAus/versus-arena-backend/internal/user"
	"github.com/SlpAus/versus-arena-backend/pkg/token"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SubmitVoteRequest 定义了前端提交投票时请求体的JSON结构
type SubmitVoteRequest struct {
	PairKey   string  `json:"pairKey" binding:"required"`
	LeftID    string  `json:"leftId" binding:"required"`
	RightID   string  `json:"rightId" binding:"required"`
	Signature string  `json:"signature" binding:"required"`
	Outcome   Outcome `json:"outcome" binding:"required,oneof=win tie skip"`
	WinnerID  string  `json:"winnerId"`
}

// Handler 处理投票和统计相关的HTTP请求
type Handler struct {
	committer *Committer
	stats     *StatsService
	signer    *token.Signer
	logger    *zap.Logger
}

// NewHandler 创建投票处理器
func NewHandler(committer *Committer, stats *StatsService, signer *token.Signer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{committer: committer, stats: stats, signer: signer, logger: logger}
}

// SubmitVote 处理前端提交的投票结果
func (h *Handler) SubmitVote(c *gin.Context) {
	// 1. 绑定并验证请求体
	var body SubmitVoteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.BadRequest(c, err)
		return
	}

	// 2. 校验 /pair 下发的票据，确保这组对决确实由服务端给出
	payload := token.TicketPayload{PairKey: body.PairKey, LeftID: body.LeftID, RightID: body.RightID}
	if !h.signer.Verify(payload, body.Signature) {
		apperr.Respond(c, h.logger, apperr.New(apperr.CodeInvalidComparison, "对决票据无效").WithDetail("field", "signature"))
		return
	}

	// 3. 提交
	sub := NewSubmission(user.IDFromContext(c), body.LeftID, body.RightID, body.Outcome, body.WinnerID)
	if sub.PairKey != body.PairKey {
		apperr.Respond(c, h.logger, apperr.New(apperr.CodeInvalidComparison, "配对键与条目不一致").WithDetail("field", "pairKey"))
		return
	}
	result, err := h.committer.Submit(c.Request.Context(), sub)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetPairStats 返回某个配对的统计
func (h *Handler) GetPairStats(c *gin.Context) {
	stats, err := h.stats.ComputeStats(c.Request.Context(), c.Param("pairKey"), user.IDFromContext(c))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
