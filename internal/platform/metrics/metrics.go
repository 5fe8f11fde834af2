package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VoteCommits 按最终结果统计投票提交次数，result 取 apperr.Code 或 "ok"
	VoteCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "vote_commits_total",
		Help:      "Vote submissions by final result",
	}, []string{"result"})

	// VoteCommitAttempts 是每次成功提交消耗的尝试次数
	VoteCommitAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "arena",
		Name:      "vote_commit_attempts",
		Help:      "Attempts needed per committed vote",
		Buckets:   []float64{1, 2, 3, 4, 5},
	})

	// VoteConflicts 统计乐观锁冲突次数
	VoteConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "vote_cas_conflicts_total",
		Help:      "Optimistic lock conflicts while committing votes",
	})

	// StatsCacheLookups 按命中情况统计统计缓存查询
	StatsCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "stats_cache_lookups_total",
		Help:      "Pair stats cache lookups by outcome",
	}, []string{"outcome"})

	// SurfaceDuration 是跨配对评论检索的耗时
	SurfaceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "arena",
		Name:      "comment_surface_duration_seconds",
		Help:      "Latency of cross-pairing comment surfacing",
		Buckets:   prometheus.DefBuckets,
	})

	// SurfaceFallbacks 统计交叉引用解析失败而使用占位名称的次数
	SurfaceFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "comment_crossref_fallbacks_total",
		Help:      "Cross references rendered with a placeholder name",
	})
)
