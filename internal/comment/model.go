package comment

import (
	"time"

	"github.com/SlpAus/versus-arena-backend/internal/vote"
)

// Comment 是用户对某个配对结果写下的不可变评论
type Comment struct {
	ID string `gorm:"primaryKey;type:varchar(36)"`

	PairKey string `gorm:"type:varchar(80);not null;index:idx_comments_pair_created,priority:1"`

	// Outcome 和 WinnerID 复制自作者的投票，只可能是 win 或 tie
	Outcome  vote.Outcome `gorm:"type:varchar(8);not null"`
	WinnerID *string      `gorm:"type:varchar(36);index:idx_comments_winner_created,priority:1"`

	Content  string `gorm:"type:text;not null"`
	AuthorID string `gorm:"type:varchar(36);not null;index"`

	CreatedAt time.Time `gorm:"not null;index:idx_comments_pair_created,priority:2;index:idx_comments_winner_created,priority:2"`
}
