package model

import (
	"time"
)

// ClickEvent 点击事件模型，每次成功跳转追加一条，只增不改
type ClickEvent struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	ShortURLID uint      `gorm:"not null;index:idx_url_clicked,priority:1" json:"short_url_id"`
	ClickedAt  time.Time `gorm:"not null;index:idx_url_clicked,priority:2" json:"clicked_at"`
	IPAddress  string    `gorm:"size:45" json:"ip_address"`
	UserAgent  string    `gorm:"size:512" json:"user_agent"`
	Referer    string    `gorm:"size:512" json:"referer"`
}

// TableName 指定表名
func (ClickEvent) TableName() string {
	return "click_events"
}
