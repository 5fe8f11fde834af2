package vote

import "time"

// Outcome 是一次对决的结果
type Outcome string

const (
	// OutcomeWin 表示有明确胜者，WinnerID 必须存在
	OutcomeWin Outcome = "win"
	// OutcomeTie 表示平局
	OutcomeTie Outcome = "tie"
	// OutcomeSkip 表示用户跳过了此轮对决，不影响分数
	OutcomeSkip Outcome = "skip"
)

// Valid 判断是否为已知的结果
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeWin, OutcomeTie, OutcomeSkip:
		return true
	}
	return false
}

// Decisive 判断结果是否计入胜率（胜或平）
func (o Outcome) Decisive() bool {
	return o == OutcomeWin || o == OutcomeTie
}

// Vote 是一次不可变的对决记录
// 同一用户对同一配对最多只有一条记录，由 idx_votes_user_pair 唯一索引保证
type Vote struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	// PairKey 是规范化的配对键
	PairKey string `gorm:"type:varchar(80);not null;uniqueIndex:idx_votes_user_pair,priority:2;index:idx_votes_pair_created,priority:1" json:"pairKey"`

	// UserID 是投票用户
	UserID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_votes_user_pair,priority:1" json:"userId"`

	// LowID/HighID 是规范顺序下的两个条目
	LowID  string `gorm:"type:varchar(36);not null" json:"lowId"`
	HighID string `gorm:"type:varchar(36);not null" json:"highId"`

	// PresentedLeftID/PresentedRightID 是用户实际看到的左右顺序
	PresentedLeftID  string `gorm:"type:varchar(36);not null" json:"presentedLeftId"`
	PresentedRightID string `gorm:"type:varchar(36);not null" json:"presentedRightId"`

	Outcome Outcome `gorm:"type:varchar(8);not null" json:"outcome"`

	// WinnerID 仅在 Outcome 为 win 时存在
	WinnerID *string `gorm:"type:varchar(36)" json:"winnerId,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_votes_pair_created,priority:2" json:"createdAt"`
}

// Winner 返回胜者ID，没有胜者时返回空字符串
func (v *Vote) Winner() string {
	if v.WinnerID == nil {
		return ""
	}
	return *v.WinnerID
}
