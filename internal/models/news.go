package models

import (
	"time"
)

// News 是评论所属的主体（文章）。评论模块只关心它是否存在。
type News struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (News) TableName() string {
	return "news"
}
