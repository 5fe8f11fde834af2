package item

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SlpAus/versus-arena-backend/internal/platform/apperr"
	"github.com/SlpAus/versus-arena-backend/pkg/pairkey"
	"github.com/SlpAus/versus-arena-backend/pkg/token"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- API响应模型 ---

// RankingItemResponse 是排行榜中的一行
type RankingItemResponse struct {
	Rank            int    `json:"rank"`
	ID              string `json:"id"`
	Name            string `json:"name"`
	MediaURL        string `json:"mediaUrl"`
	Rating          int    `json:"rating"`
	ComparisonCount int    `json:"comparisonCount"`
}

// PairItemResponse 是对决中展示的一侧
type PairItemResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MediaURL string `json:"mediaUrl"`
	Rating   int    `json:"rating"`
}

// PairResponse 是 /pair 的响应，Signature 在提交投票时原样带回
type PairResponse struct {
	PairKey   string           `json:"pairKey"`
	Left      PairItemResponse `json:"left"`
	Right     PairItemResponse `json:"right"`
	Signature string           `json:"signature"`
}

const maxRankingLimit = 500

// Handler 处理条目相关的HTTP请求
type Handler struct {
	db      *gorm.DB
	sampler *Sampler
	signer  *token.Signer
	logger  *zap.Logger
}

// NewHandler 创建条目处理器
func NewHandler(db *gorm.DB, sampler *Sampler, signer *token.Signer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{db: db, sampler: sampler, signer: signer, logger: logger}
}

// GetRanking 获取排行榜，可选 limit 参数
func (h *Handler) GetRanking(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			apperr.Respond(c, h.logger, apperr.New(apperr.CodeValidation, "limit 必须是非负整数"))
			return
		}
		limit = min(n, maxRankingLimit)
	}

	items, err := ListRanked(c.Request.Context(), h.db, limit)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	responses := make([]RankingItemResponse, 0, len(items))
	for i, it := range items {
		responses = append(responses, RankingItemResponse{
			Rank:            i + 1,
			ID:              it.ID,
			Name:            it.Name,
			MediaURL:        it.MediaURL,
			Rating:          it.Rating,
			ComparisonCount: it.ComparisonCount,
		})
	}
	c.JSON(http.StatusOK, responses)
}

// GetItemByID 根据ID获取单个条目
func (h *Handler) GetItemByID(c *gin.Context) {
	it, err := FindByID(c.Request.Context(), h.db, c.Param("id"))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// GetPair 获取一对用于对决的条目及其签名
func (h *Handler) GetPair(c *gin.Context) {
	// 1. 解析可选的排除参数（通常是上一组对决）
	var exclude []string
	for _, id := range []string{c.Query("excludeA"), c.Query("excludeB")} {
		if id != "" {
			exclude = append(exclude, id)
		}
	}

	// 2. 抽样；排除后不足两个时放弃排除再试一次
	leftID, rightID, err := h.sampler.NextPair(exclude...)
	if errors.Is(err, ErrNotEnoughItems) && len(exclude) > 0 {
		leftID, rightID, err = h.sampler.NextPair()
	}
	if errors.Is(err, ErrNotEnoughItems) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "可用于对决的条目不足"})
		return
	}
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	// 3. 读取条目详情
	found, err := FindByIDs(c.Request.Context(), h.db, []string{leftID, rightID})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	left, okL := found[leftID]
	right, okR := found[rightID]
	if !okL || !okR {
		apperr.Respond(c, h.logger, apperr.New(apperr.CodeItemNotFound, "抽到的条目已不存在"))
		return
	}

	// 4. 签发票据
	payload := token.TicketPayload{PairKey: pairkey.Encode(leftID, rightID), LeftID: leftID, RightID: rightID}
	signature, err := h.signer.Sign(payload)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, PairResponse{
		PairKey:   payload.PairKey,
		Left:      PairItemResponse{ID: left.ID, Name: left.Name, MediaURL: left.MediaURL, Rating: left.Rating},
		Right:     PairItemResponse{ID: right.ID, Name: right.Name, MediaURL: right.MediaURL, Rating: right.Rating},
		Signature: signature,
	})
}
