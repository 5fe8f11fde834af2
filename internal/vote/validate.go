package vote

import (
	"strings"

	"github.com/SlpAus/versus-arena-backend/internal/platform/apperr"
	"github.com/SlpAus/versus-arena-backend/pkg/pairkey"
)

// Submission 是一次待提交的对决决定
type Submission struct {
	PairKey          string
	LowID            string
	HighID           string
	PresentedLeftID  string
	PresentedRightID string
	Outcome          Outcome
	// WinnerID 为空表示没有胜者
	WinnerID string
	UserID   string
}

// NewSubmission 根据展示顺序构造规范化的提交
func NewSubmission(userID, leftID, rightID string, outcome Outcome, winnerID string) Submission {
	low, high := pairkey.Order(leftID, rightID)
	return Submission{
		PairKey:          pairkey.Encode(leftID, rightID),
		LowID:            low,
		HighID:           high,
		PresentedLeftID:  leftID,
		PresentedRightID: rightID,
		Outcome:          outcome,
		WinnerID:         winnerID,
		UserID:           userID,
	}
}

func invalid(field, message string) error {
	return apperr.New(apperr.CodeInvalidComparison, message).WithDetail("field", field)
}

// ValidateSubmission 检查提交是否满足所有输入不变量，任何违反都返回 INVALID_COMPARISON
func ValidateSubmission(s Submission) error {
	if strings.TrimSpace(s.UserID) == "" {
		return invalid("userId", "缺少用户标识")
	}
	if s.LowID == "" || s.HighID == "" {
		return invalid("itemId", "缺少条目ID")
	}
	if !pairkey.ValidID(s.LowID) || !pairkey.ValidID(s.HighID) {
		return invalid("itemId", "条目ID包含非法字符")
	}
	if s.LowID >= s.HighID {
		return invalid("lowId", "条目ID未按规范顺序排列")
	}
	if s.PairKey != pairkey.Encode(s.LowID, s.HighID) {
		return invalid("pairKey", "配对键与条目不一致")
	}

	if s.PresentedLeftID == s.PresentedRightID {
		return invalid("presentedLeftId", "展示的两个条目不能相同")
	}
	if !pairkey.SamePair(s.PairKey, s.PresentedLeftID, s.PresentedRightID) {
		return invalid("presentedLeftId", "展示的条目与配对不一致")
	}

	switch s.Outcome {
	case OutcomeWin:
		if s.WinnerID == "" {
			return invalid("winnerId", "胜负结果必须指定胜者")
		}
		if s.WinnerID != s.LowID && s.WinnerID != s.HighID {
			return invalid("winnerId", "胜者必须是对决中的条目")
		}
	case OutcomeTie, OutcomeSkip:
		if s.WinnerID != "" {
			return invalid("winnerId", "平局或跳过不能指定胜者")
		}
	default:
		return invalid("outcome", "未知的对决结果")
	}
	return nil
}

// eloOutcomeForLow 把提交结果映射为 LowID 一方的ELO结果，skip 没有对应值
func eloOutcomeForLow(s Submission) EloOutcome {
	switch {
	case s.Outcome == OutcomeTie:
		return EloTie
	case s.WinnerID == s.LowID:
		return EloWin
	default:
		return EloLoss
	}
}
