package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Respond 把错误写成JSON响应。
// 业务错误原样返回 code/message/details；其他错误记录日志后只返回通用提示。
func Respond(c *gin.Context, logger *zap.Logger, err error) {
	var e *Error
	if errors.As(err, &e) {
		body := gin.H{"error": e.Message, "code": e.Code}
		if len(e.Details) > 0 {
			body["details"] = e.Details
		}
		if e.Retryable {
			body["retryable"] = true
		}
		c.JSON(HTTPStatus(err), body)
		return
	}

	if logger != nil {
		logger.Error("请求处理失败",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
}

// BadRequest 用 VALIDATION_ERROR 响应请求格式错误
func BadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error(), "code": CodeValidation})
}
