package user

import (
	"time"
)

// User 是匿名用户的持久化模型，主键来自客户端Cookie。
// 用户在第一次投票时才会被写入数据库。
type User struct {
	// UUID 是用户的主键
	UUID string `gorm:"primarykey;type:varchar(36)" json:"id"`

	// Nationality 是可选的ISO 3166-1两位国家代码，只用于匿名化后的人口统计
	Nationality string `gorm:"type:varchar(2);not null;default:''" json:"nationality"`

	// WinsCount 记录了用户选出胜者的次数
	WinsCount int `gorm:"not null;default:0" json:"winsCount"`

	// DrawCount 记录了用户选择平局的次数
	DrawCount int `gorm:"not null;default:0" json:"drawCount"`

	// SkipCount 记录了用户选择跳过的次数
	SkipCount int `gorm:"not null;default:0" json:"skipCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
