package comment

import (
	"net/http"
	"strconv"
	"time"

	"github.com/SlpAus/versus-arena-backend/internal/platform/apperr"
	"github.com/SlpAus/versus-arena-backend/internal/user"
	"github.com/SlpAus/versus-arena-backend/pkg/pairkey"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreateCommentRequest 是发表评论的请求体
type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// CommentResponse 是新评论的响应
type CommentResponse struct {
	ID        string    `json:"id"`
	PairKey   string    `json:"pairKey"`
	Outcome   string    `json:"outcome"`
	WinnerID  string    `json:"winnerId,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Handler 处理评论相关的HTTP请求
type Handler struct {
	service  *Service
	surfacer *Surfacer
	logger   *zap.Logger
}

// NewHandler 创建评论处理器
func NewHandler(service *Service, surfacer *Surfacer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, surfacer: surfacer, logger: logger}
}

// ListComments 返回配对的评论，以及两个条目在其他配对中的评论
func (h *Handler) ListComments(c *gin.Context) {
	req, err := parseSurfaceRequest(c)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	result, err := h.surfacer.Surface(c.Request.Context(), req)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateComment 为当前用户在配对上的选择发表评论
func (h *Handler) CreateComment(c *gin.Context) {
	var body CreateCommentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.BadRequest(c, err)
		return
	}
	created, err := h.service.Create(c.Request.Context(), user.IDFromContext(c), c.Param("pairKey"), body.Content)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	resp := CommentResponse{
		ID:        created.ID,
		PairKey:   created.PairKey,
		Outcome:   string(created.Outcome),
		Content:   created.Content,
		CreatedAt: created.CreatedAt,
	}
	if created.WinnerID != nil {
		resp.WinnerID = *created.WinnerID
	}
	c.JSON(http.StatusCreated, resp)
}

// parseSurfaceRequest 解析查询参数；itemA/itemB 都缺省时从配对键中取
func parseSurfaceRequest(c *gin.Context) (SurfaceRequest, error) {
	req := SurfaceRequest{
		PairKey:         c.Param("pairKey"),
		ItemA:           c.Query("itemA"),
		ItemB:           c.Query("itemB"),
		IncludeExpanded: true,
	}
	if req.ItemA == "" && req.ItemB == "" {
		low, high, err := pairkey.Decode(req.PairKey)
		if err != nil {
			return req, err
		}
		req.ItemA, req.ItemB = low, high
	}

	var err error
	if req.CurrentLimit, err = intQuery(c, "currentLimit"); err != nil {
		return req, err
	}
	if req.ExpandedLimit, err = intQuery(c, "expandedLimit"); err != nil {
		return req, err
	}
	if raw := c.Query("includeExpanded"); raw != "" {
		if req.IncludeExpanded, err = strconv.ParseBool(raw); err != nil {
			return req, apperr.New(apperr.CodeValidation, "includeExpanded 必须是布尔值")
		}
	}
	if raw := c.Query("cursor"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return req, apperr.New(apperr.CodeValidation, "cursor 必须是RFC3339时间").WithDetail("cursor", raw)
		}
		t = t.UTC()
		req.Cursor = &t
	}
	return req, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.New(apperr.CodeValidation, name+" 必须是整数")
	}
	return n, nil
}
