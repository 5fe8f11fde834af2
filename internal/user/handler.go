package user

import (
	"net/http"

	"github.com/SlpAus/versus-arena-backend/internal/platform/apperr"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UpdateNationalityRequest 是更新国家代码的请求体
type UpdateNationalityRequest struct {
	Nationality string `json:"nationality"`
}

// Handler 处理用户相关的HTTP请求
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler 创建用户处理器
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// GetMe 返回当前用户的信息和个人统计
func (h *Handler) GetMe(c *gin.Context) {
	userID := IDFromContext(c)
	if userID == "" {
		apperr.Respond(c, h.logger, apperr.New(apperr.CodeValidation, "缺少用户标识"))
		return
	}
	u, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateNationality 设置当前用户的国家代码
func (h *Handler) UpdateNationality(c *gin.Context) {
	var body UpdateNationalityRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.BadRequest(c, err)
		return
	}
	u, err := h.service.UpdateNationality(c.Request.Context(), IDFromContext(c), body.Nationality)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
