package comment

import (
	"math"

	"github.com/SlpAus/versus-arena-backend/internal/platform/config"
)

// Limits 是实际生效的两个列表上限
type Limits struct {
	Current  int `json:"current"`
	Expanded int `json:"expanded"`
}

// Sum 返回两个上限之和
func (l Limits) Sum() int {
	return l.Current + l.Expanded
}

// EffectiveLimits 计算服务端实际使用的上限。
// 非正数使用默认值；请求之和超过绝对上限时按请求比例缩小（每个被请求的列表至少保留1），
// 然后再分别截断到各自的上限。不展开时 Expanded 为0。
func EffectiveLimits(current, expanded int, includeExpanded bool, cfg config.CommentsConfig) Limits {
	if current <= 0 {
		current = cfg.DefaultLimit
	}
	if !includeExpanded {
		expanded = 0
	} else if expanded <= 0 {
		expanded = cfg.DefaultLimit
	}

	if sum := current + expanded; sum > cfg.AbsoluteMaxLimit {
		if expanded == 0 {
			current = cfg.AbsoluteMaxLimit
		} else {
			scaled := int(math.Round(float64(current) * float64(cfg.AbsoluteMaxLimit) / float64(sum)))
			scaled = max(1, min(scaled, cfg.AbsoluteMaxLimit-1))
			current, expanded = scaled, cfg.AbsoluteMaxLimit-scaled
		}
	}

	return Limits{
		Current:  min(current, cfg.MaxCurrentLimit),
		Expanded: min(expanded, cfg.MaxExpandedLimit),
	}
}
