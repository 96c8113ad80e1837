package models

import (
	"time"
)

// Comment 评论节点。ParentID 为空表示挂在新闻下的根评论。
// LikeCount / DislikeCount 是从 CommentVote 表重新统计出来的冗余字段，不允许就地加减。
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SubjectID       uint      `gorm:"not null;index:idx_subject_parent_created" json:"subject_id"`
	ParentID        *uint     `gorm:"index:idx_subject_parent_created;index:idx_parent_created" json:"parent_id"` // Nullable for root comments
	Parent          *Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	AuthorName      string    `gorm:"size:120;not null" json:"author_name"`
	VoterBiografiID string    `gorm:"size:64;index" json:"voter_biografi_id,omitempty"`
	AuthorPhoto     string    `gorm:"size:255" json:"author_photo,omitempty"` // 只存文件名
	Content         string    `gorm:"type:text;not null" json:"content"`
	LikeCount       int64     `gorm:"not null;default:0" json:"like_count"`
	DislikeCount    int64     `gorm:"not null;default:0" json:"dislike_count"`
	CreatedAt       time.Time `gorm:"index:idx_subject_parent_created;index:idx_parent_created" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsRoot reports whether the comment hangs directly off its subject.
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}
