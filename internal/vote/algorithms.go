package vote

import (
	"fmt"
	"math"
)

// --- 算法常量 ---

const (
	// eloKFactor 是ELO算法中的K值，它决定了每次对战后分数变化的大小。
	eloKFactor = 32

	// MinRating/MaxRating 是合法分数的范围
	MinRating = 0
	MaxRating = 4000
)

// EloOutcome 是从第一个条目视角看到的结果
type EloOutcome int

const (
	EloWin EloOutcome = iota + 1
	EloLoss
	EloTie
)

// actualScore 返回结果对应的实际得分，未知结果视为编程错误
func (o EloOutcome) actualScore() float64 {
	switch o {
	case EloWin:
		return 1
	case EloLoss:
		return 0
	case EloTie:
		return 0.5
	}
	panic(fmt.Sprintf("vote: 未知的ELO结果 %d", int(o)))
}

// --- ELO计算 ---

// ExpectedScore 返回 self 对 other 的期望得分
func ExpectedScore(self, other int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(other-self)/400.0))
}

// UpdateRatings 计算对战后的新ELO分数，outcome 是 r1 一方的结果。
// 两侧各自四舍五入，因此决胜局的总分变化可能有 ±1 的误差。
func UpdateRatings(r1, r2 int, outcome EloOutcome) (newR1, newR2 int) {
	actual := outcome.actualScore()
	newR1 = int(math.Round(float64(r1) + eloKFactor*(actual-ExpectedScore(r1, r2))))
	newR2 = int(math.Round(float64(r2) + eloKFactor*((1-actual)-ExpectedScore(r2, r1))))
	return newR1, newR2
}

// IsValidRating 判断分数是否在合法范围内
func IsValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// clampRating 把分数限制在合法范围内
func clampRating(r int) int {
	return max(MinRating, min(MaxRating, r))
}
