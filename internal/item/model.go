package item

import "time"

// Item 是参与排名的条目
// Rating、ComparisonCount 和 Version 只能由 vote 模块的提交流程修改
type Item struct {
	// ID 是条目的UUID，同时用作配对键的组成部分
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	// Name 是展示名称
	Name string `gorm:"not null" json:"name"`

	// MediaURL 指向条目的图片或其他媒体
	MediaURL string `json:"mediaUrl"`

	// --- 以下是用于排名的字段 ---

	// Rating 是ELO分数，范围 [0, 4000]
	Rating int `gorm:"not null;index" json:"rating"`

	// ComparisonCount 是条目参与过的对决总数（含跳过）
	ComparisonCount int `gorm:"not null;default:0" json:"comparisonCount"`

	// Version 是单调递增的乐观锁版本号，每次提交都会加一
	Version int64 `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
