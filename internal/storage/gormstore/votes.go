package gormstore

import (
	"context"

	"alumnilink/internal/models"
	"alumnilink/internal/storage"

	"gorm.io/gorm/clause"
)

func (s *Store) FindVote(ctx context.Context, commentID uint, voterID string) (*models.CommentVote, error) {
	const op = "storage/gorm/FindVote"

	var vote models.CommentVote
	err := s.conn(ctx).
		Where("comment_id = ? AND voter_id = ?", commentID, voterID).
		First(&vote).Error
	if err != nil {
		return nil, translate(op, err)
	}
	return &vote, nil
}

func (s *Store) InsertVote(ctx context.Context, vote models.CommentVote) (*models.CommentVote, error) {
	const op = "storage/gorm/InsertVote"

	vote.ID = 0
	if err := s.conn(ctx).Omit(clause.Associations).Create(&vote).Error; err != nil {
		return nil, translate(op, err)
	}
	return &vote, nil
}

// UpdateVoteType compare-and-set：只有当前类型仍是 from 时才改。
func (s *Store) UpdateVoteType(ctx context.Context, commentID uint, voterID string, from, to models.VoteType, voterName string) error {
	const op = "storage/gorm/UpdateVoteType"

	updates := map[string]interface{}{"type": to}
	if voterName != "" {
		updates["voter_name"] = voterName
	}
	res := s.conn(ctx).Model(&models.CommentVote{}).
		Where("comment_id = ? AND voter_id = ? AND type = ?", commentID, voterID, from).
		Updates(updates)
	if res.Error != nil {
		return translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(op, storage.ErrConflict)
	}
	return nil
}

// RemoveVote compare-and-set 删除。
func (s *Store) RemoveVote(ctx context.Context, commentID uint, voterID string, expected models.VoteType) error {
	const op = "storage/gorm/RemoveVote"

	res := s.conn(ctx).
		Where("comment_id = ? AND voter_id = ? AND type = ?", commentID, voterID, expected).
		Delete(&models.CommentVote{})
	if res.Error != nil {
		return translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(op, storage.ErrConflict)
	}
	return nil
}

func (s *Store) CountVotes(ctx context.Context, commentID uint, voteType models.VoteType) (int64, error) {
	const op = "storage/gorm/CountVotes"

	var total int64
	err := s.conn(ctx).Model(&models.CommentVote{}).
		Where("comment_id = ? AND type = ?", commentID, voteType).
		Count(&total).Error
	if err != nil {
		return 0, translate(op, err)
	}
	return total, nil
}

func (s *Store) DeleteVotesForComments(ctx context.Context, commentIDs []uint) (int64, error) {
	const op = "storage/gorm/DeleteVotesForComments"

	var deleted int64
	for _, chunk := range chunkIDs(commentIDs) {
		res := s.conn(ctx).Where("comment_id IN ?", chunk).Delete(&models.CommentVote{})
		if res.Error != nil {
			return deleted, translate(op, res.Error)
		}
		deleted += res.RowsAffected
	}
	return deleted, nil
}
