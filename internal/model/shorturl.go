package model

import (
	"time"
)

// ShortURL 短链接模型
// 短码一经分配永不回收：停用或过期的记录仍然占用唯一索引
type ShortURL struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	ShortCode   string     `gorm:"size:20;uniqueIndex;not null" json:"short_code"`
	OriginalURL string     `gorm:"size:2048;not null" json:"original_url"`
	OwnerID     *uint      `gorm:"index:idx_owner_created,priority:1" json:"owner_id,omitempty"`
	ClickCount  int64      `gorm:"default:0" json:"click_count"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time  `gorm:"index:idx_owner_created,priority:2" json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// TableName 指定表名
func (ShortURL) TableName() string {
	return "short_urls"
}

// Resolvable 判断短链接在给定时刻是否可跳转：
// 必须处于启用状态，且未过期（无过期时间视为永久有效）
func (u *ShortURL) Resolvable(now time.Time) bool {
	if !u.IsActive {
		return false
	}
	if u.ExpiresAt != nil && !u.ExpiresAt.After(now) {
		return false
	}
	return true
}
