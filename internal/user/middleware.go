package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CookieName   = "user-id"
	CookieMaxAge = 365 * 24 * 60 * 60
	UserIDKey    = "userID"
)

// IsValidUUID 检查字符串是否为合法的UUID
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// NewProvisionalID 生成一个临时的、尚未持久化的用户ID
func NewProvisionalID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// EnsureUserCookieMiddleware 确保用户的浏览器中有一个格式正确的user-id cookie。
// 如果没有或格式不正确，它会生成一个新的临时ID，设置cookie并放入上下文。
func EnsureUserCookieMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		userID, err := c.Cookie(CookieName)

		if err != nil || !IsValidUUID(userID) {
			if err != http.ErrNoCookie {
				logger.Info("检测到无效的用户Cookie", zap.String("value", userID), zap.Error(err))
			}
			userID, err = NewProvisionalID()
			if err != nil {
				logger.Error("创建临时用户ID时发生错误", zap.Error(err))
				userID = ""
			} else {
				c.SetCookie(CookieName, userID, CookieMaxAge, "/", "", false, true)
			}
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// LoadUserMiddleware 读取cookie并将其值放入Gin上下文中，不合法的值被忽略。
func LoadUserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Cookie(CookieName)
		if !IsValidUUID(userID) {
			userID = ""
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// IDFromContext 返回中间件放入的用户ID，没有时返回空字符串
func IDFromContext(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
