package health

import (
	"context"
	"net/http"
	"time"

	"github.com/SlpAus/versus-arena-backend/internal/platform/database"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Report 是 /healthz 的响应
type Report struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Handler 返回健康检查接口。数据库不可用时返回503；Redis只影响缓存，不影响整体状态。
func Handler(db *gorm.DB, redisEnabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := Report{Status: "ok", Database: "ok", Redis: "disabled"}

		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()
		if err := pingDB(ctx, db); err != nil {
			report.Status = "unavailable"
			report.Database = err.Error()
		}

		if redisEnabled {
			report.Redis = "ok"
			if !database.IsRedisHealthy() {
				report.Redis = "degraded"
			}
		}

		code := http.StatusOK
		if report.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
