package api

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/versus-arena-backend/internal/comment"
	"github.com/SlpAus/versus-arena-backend/internal/item"
	"github.com/SlpAus/versus-arena-backend/internal/platform/config"
	"github.com/SlpAus/versus-arena-backend/internal/platform/health"
	"github.com/SlpAus/versus-arena-backend/internal/platform/ratelimit"
	"github.com/SlpAus/versus-arena-backend/internal/user"
	"github.com/SlpAus/versus-arena-backend/internal/vote"
	"github.com/SlpAus/versus-arena-backend/pkg/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 持有所有已装配好的服务，供路由和后台任务使用
type App struct {
	DB         *gorm.DB
	Sampler    *item.Sampler
	Committer  *vote.Committer
	StatsCache *vote.StatsCache
	Limiter    *ratelimit.Limiter

	items    *item.Handler
	votes    *vote.Handler
	users    *user.Handler
	comments *comment.Handler

	redisEnabled bool
	logger       *zap.Logger
}

// NewApp 装配所有服务。rdb 为 nil 表示不使用Redis缓存。
func NewApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client, sampler *item.Sampler, logger *zap.Logger) (*App, error) {
	signer, err := token.NewSigner(cfg.Server.TicketSecret)
	if err != nil {
		return nil, fmt.Errorf("创建票据签名器失败: %w", err)
	}

	arena := cfg.Arena
	statsCache := vote.NewStatsCache(rdb, arena.StatsCacheTTL, logger.Named("stats-cache"))
	stats := vote.NewStatsService(db, statsCache, arena.Privacy.MinGroupSize, logger)
	userService := user.NewService(db, logger)

	// 提交成功后：刷新统计缓存、更新抽样权重、累计用户统计
	committer := vote.NewCommitter(db, arena.Commit, logger.Named("commit"))
	committer.OnCommit(statsCache.OnCommit)
	committer.OnCommit(func(_ context.Context, r *vote.CommitResult) {
		for id, state := range r.Items {
			sampler.Observe(id, state.ComparisonCount)
		}
	})
	committer.OnCommit(func(ctx context.Context, r *vote.CommitResult) {
		userService.RecordDecision(ctx, r.Vote.UserID, string(r.Vote.Outcome))
	})

	commentService := comment.NewService(db, vote.NewReader(db), logger)
	surfacer := comment.NewSurfacer(db, arena.Comments, arena.Privacy.MinGroupSize, logger)

	return &App{
		DB:           db,
		Sampler:      sampler,
		Committer:    committer,
		StatsCache:   statsCache,
		Limiter:      ratelimit.New(cfg.Server.RateLimit, logger),
		items:        item.NewHandler(db, sampler, signer, logger),
		votes:        vote.NewHandler(committer, stats, signer, logger),
		users:        user.NewHandler(userService, logger),
		comments:     comment.NewHandler(commentService, surfacer, logger),
		redisEnabled: rdb != nil,
		logger:       logger,
	}, nil
}

// NewRouter 创建gin引擎并注册中间件
func NewRouter(cfg config.ServerConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	return r
}

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, app *App) {
	router.GET("/healthz", health.Handler(app.DB, app.redisEnabled))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	write := app.Limiter.Middleware()

	api := router.Group("/api")
	{
		// 条目相关的路由
		items := api.Group("/items")
		{
			items.GET("/ranking", app.items.GetRanking)
			items.GET("/pair", user.EnsureUserCookieMiddleware(app.logger), app.items.GetPair)
			items.GET("/:id", app.items.GetItemByID)
		}

		// 投票
		api.POST("/votes", write, user.LoadUserMiddleware(), app.votes.SubmitVote)

		// 配对的统计和评论
		pairs := api.Group("/pairs/:pairKey", user.LoadUserMiddleware())
		{
			pairs.GET("/stats", app.votes.GetPairStats)
			pairs.GET("/comments", app.comments.ListComments)
			pairs.POST("/comments", write, app.comments.CreateComment)
		}

		// 当前用户
		me := api.Group("/users/me", user.EnsureUserCookieMiddleware(app.logger))
		{
			me.GET("", app.users.GetMe)
			me.PUT("/nationality", write, app.users.UpdateNationality)
		}
	}
}

// requestLogger 用zap记录每个请求
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("请求完成",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("clientIp", c.ClientIP()))
	}
}
