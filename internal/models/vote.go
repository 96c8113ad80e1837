package models

import (
	"time"
)

type VoteType string

const (
	VoteLike    VoteType = "LIKE"
	VoteDislike VoteType = "DISLIKE"
)

// Valid reports whether t is one of the known vote types.
func (t VoteType) Valid() bool {
	return t == VoteLike || t == VoteDislike
}

// Opposite returns the other vote type.
func (t VoteType) Opposite() VoteType {
	if t == VoteLike {
		return VoteDislike
	}
	return VoteLike
}

// CommentVote 投票账本：每个 (comment_id, voter_id) 最多一行，只有 Type 可变。
type CommentVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_voter" json:"comment_id"`
	Comment   Comment   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	VoterID   string    `gorm:"size:64;not null;uniqueIndex:idx_comment_voter" json:"voter_id"`
	VoterName string    `gorm:"size:120" json:"voter_name"`
	Type      VoteType  `gorm:"type:varchar(10);not null" json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
