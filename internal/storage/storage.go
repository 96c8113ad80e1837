// Package storage 描述评论与投票账本的持久化契约。
package storage

import (
	"context"
	"errors"

	"alumnilink/internal/models"
)

var (
	// ErrNotFound — 记录不存在。
	ErrNotFound = errors.New("not found")
	// ErrConflict — 唯一约束冲突或 compare-and-set 没有命中任何行。
	ErrConflict = errors.New("conflict")
)

// CommentStore 评论节点存储。Delete 只删除给定的行，级联由调用方负责。
type CommentStore interface {
	// CreateComment 写入评论并返回带 ID 和时间戳的记录。
	CreateComment(ctx context.Context, comment models.Comment) (*models.Comment, error)

	// CommentByID 不存在时返回 ErrNotFound。
	CommentByID(ctx context.Context, id uint) (*models.Comment, error)

	// UpdateContent 替换内容并刷新 updated_at。不存在时返回 ErrNotFound。
	UpdateContent(ctx context.Context, id uint, content string) (*models.Comment, error)

	// DeleteComments 删除给定 ID 的行，返回实际删除数量。
	DeleteComments(ctx context.Context, ids []uint) (int64, error)

	// ListRootsBySubject 根评论分页，created_at DESC, id DESC。
	ListRootsBySubject(ctx context.Context, subjectID uint, offset, limit int) ([]models.Comment, error)

	// CountRootsBySubject 根评论总数。
	CountRootsBySubject(ctx context.Context, subjectID uint) (int64, error)

	// ListByParent 直接回复，created_at ASC, id ASC。
	ListByParent(ctx context.Context, parentID uint) ([]models.Comment, error)

	// ListByParents 一次取出多个父节点的直接回复，排序同 ListByParent。
	ListByParents(ctx context.Context, parentIDs []uint) ([]models.Comment, error)

	// CountBySubject 主体下全部评论数（根 + 回复）。
	CountBySubject(ctx context.Context, subjectID uint) (int64, error)

	// ListCommentIDs 主体下全部评论 ID；subjectID 为 0 时返回全部评论。
	ListCommentIDs(ctx context.Context, subjectID uint) ([]uint, error)

	// LockComment 在当前事务内锁住评论行，不改动 updated_at。不存在时返回 ErrNotFound。
	LockComment(ctx context.Context, id uint) error

	// SetCounters 写入从账本重新统计的计数，同时刷新 updated_at。
	SetCounters(ctx context.Context, id uint, likes, dislikes int64) (*models.Comment, error)
}

// VoteLedger 投票账本。每个 (commentID, voterID) 最多一行。
type VoteLedger interface {
	// FindVote 不存在时返回 ErrNotFound。
	FindVote(ctx context.Context, commentID uint, voterID string) (*models.CommentVote, error)

	// InsertVote 首次投票。唯一约束冲突返回 ErrConflict。
	InsertVote(ctx context.Context, vote models.CommentVote) (*models.CommentVote, error)

	// UpdateVoteType 仅当当前类型等于 from 时改为 to，否则返回 ErrConflict。
	UpdateVoteType(ctx context.Context, commentID uint, voterID string, from, to models.VoteType, voterName string) error

	// RemoveVote 仅当当前类型等于 expected 时删除，否则返回 ErrConflict。
	RemoveVote(ctx context.Context, commentID uint, voterID string, expected models.VoteType) error

	// CountVotes 统计某评论某类型的票数。
	CountVotes(ctx context.Context, commentID uint, voteType models.VoteType) (int64, error)

	// DeleteVotesForComments 删除给定评论的全部投票。
	DeleteVotesForComments(ctx context.Context, commentIDs []uint) (int64, error)
}

// Storage 组合两个契约，并提供事务。
type Storage interface {
	CommentStore
	VoteLedger

	// Transaction 在一个事务中执行 fn；fn 返回错误时回滚。
	Transaction(ctx context.Context, fn func(tx Storage) error) error
}
