package item

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SlpAus/versus-arena-backend/internal/platform/apperr"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 本文件只包含读取和目录创建；评分字段的写入只存在于 vote 模块。

// FindByID 按ID查询单个条目
func FindByID(ctx context.Context, db *gorm.DB, id string) (*Item, error) {
	var it Item
	err := db.WithContext(ctx).Where("id = ?", id).First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.CodeItemNotFound, "找不到条目").WithDetail("itemId", id)
	}
	if err != nil {
		return nil, fmt.Errorf("查询条目 %s 失败: %w", id, err)
	}
	return &it, nil
}

// FindByIDs 批量查询条目，返回以ID为键的map；不存在的ID不会出现在结果中
func FindByIDs(ctx context.Context, db *gorm.DB, ids []string) (map[string]Item, error) {
	result := make(map[string]Item, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var items []Item
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("批量查询条目失败: %w", err)
	}
	for _, it := range items {
		result[it.ID] = it
	}
	return result, nil
}

// NamesByIDs 批量查询条目名称
func NamesByIDs(ctx context.Context, db *gorm.DB, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var rows []struct {
		ID   string
		Name string
	}
	if err := db.WithContext(ctx).Model(&Item{}).Select("id", "name").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("批量查询条目名称失败: %w", err)
	}
	for _, r := range rows {
		names[r.ID] = r.Name
	}
	return names, nil
}

// ListRanked 按分数从高到低返回条目；limit <= 0 时返回全部
func ListRanked(ctx context.Context, db *gorm.DB, limit int) ([]Item, error) {
	q := db.WithContext(ctx).Order("rating desc").Order("id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var items []Item
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("查询排行榜失败: %w", err)
	}
	return items, nil
}

// NewItem 是目录导入时的单个条目
type NewItem struct {
	ID       string `yaml:"id" json:"id" validate:"omitempty,uuid"`
	Name     string `yaml:"name" json:"name" validate:"required,max=200"`
	MediaURL string `yaml:"mediaUrl" json:"mediaUrl" validate:"omitempty,max=1000"`
}

// CreateCatalog 在一个事务中创建一批条目，所有条目以相同的初始分数起步。
// ID 为空时生成UUIDv7；非UUID的ID会被拒绝，以保证配对键可以无歧义拆分。
func CreateCatalog(ctx context.Context, db *gorm.DB, entries []NewItem, initialRating int) ([]Item, error) {
	items := make([]Item, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			u, err := uuid.NewV7()
			if err != nil {
				return nil, fmt.Errorf("无法生成条目ID: %w", err)
			}
			id = u.String()
		} else if _, err := uuid.Parse(id); err != nil {
			return nil, apperr.New(apperr.CodeValidation, "条目ID必须是UUID").WithDetail("index", i).WithDetail("itemId", id)
		}
		if seen[id] {
			return nil, apperr.New(apperr.CodeValidation, "条目ID重复").WithDetail("itemId", id)
		}
		seen[id] = true

		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, apperr.New(apperr.CodeValidation, "条目名称不能为空").WithDetail("index", i)
		}
		items = append(items, Item{
			ID:       id,
			Name:     name,
			MediaURL: strings.TrimSpace(e.MediaURL),
			Rating:   initialRating,
		})
	}
	if len(items) == 0 {
		return items, nil
	}

	if err := db.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, fmt.Errorf("创建条目失败: %w", err)
	}
	return items, nil
}
