package gormstore

import (
	"context"
	"time"

	"alumnilink/internal/models"
	"alumnilink/internal/storage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateComment(ctx context.Context, comment models.Comment) (*models.Comment, error) {
	const op = "storage/gorm/CreateComment"

	comment.ID = 0
	if err := s.conn(ctx).Omit(clause.Associations).Create(&comment).Error; err != nil {
		return nil, translate(op, err)
	}
	return &comment, nil
}

func (s *Store) CommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	const op = "storage/gorm/CommentByID"

	var comment models.Comment
	if err := s.conn(ctx).First(&comment, id).Error; err != nil {
		return nil, translate(op, err)
	}
	return &comment, nil
}

func (s *Store) UpdateContent(ctx context.Context, id uint, content string) (*models.Comment, error) {
	const op = "storage/gorm/UpdateContent"

	// Updates 会顺带刷新 updated_at
	res := s.conn(ctx).Model(&models.Comment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"content": content,
	})
	if res.Error != nil {
		return nil, translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, translate(op, gorm.ErrRecordNotFound)
	}
	return s.CommentByID(ctx, id)
}

func (s *Store) DeleteComments(ctx context.Context, ids []uint) (int64, error) {
	const op = "storage/gorm/DeleteComments"

	var deleted int64
	for _, chunk := range chunkIDs(ids) {
		res := s.conn(ctx).Where("id IN ?", chunk).Delete(&models.Comment{})
		if res.Error != nil {
			return deleted, translate(op, res.Error)
		}
		deleted += res.RowsAffected
	}
	return deleted, nil
}

func (s *Store) ListRootsBySubject(ctx context.Context, subjectID uint, offset, limit int) ([]models.Comment, error) {
	const op = "storage/gorm/ListRootsBySubject"

	var comments []models.Comment
	err := s.conn(ctx).
		Where("subject_id = ? AND parent_id IS NULL", subjectID).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, translate(op, err)
	}
	return comments, nil
}

func (s *Store) CountRootsBySubject(ctx context.Context, subjectID uint) (int64, error) {
	const op = "storage/gorm/CountRootsBySubject"

	var total int64
	err := s.conn(ctx).Model(&models.Comment{}).
		Where("subject_id = ? AND parent_id IS NULL", subjectID).
		Count(&total).Error
	if err != nil {
		return 0, translate(op, err)
	}
	return total, nil
}

func (s *Store) ListByParent(ctx context.Context, parentID uint) ([]models.Comment, error) {
	const op = "storage/gorm/ListByParent"

	var comments []models.Comment
	err := s.conn(ctx).
		Where("parent_id = ?", parentID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, translate(op, err)
	}
	return comments, nil
}

func (s *Store) ListByParents(ctx context.Context, parentIDs []uint) ([]models.Comment, error) {
	const op = "storage/gorm/ListByParents"

	var out []models.Comment
	for _, chunk := range chunkIDs(parentIDs) {
		var comments []models.Comment
		err := s.conn(ctx).
			Where("parent_id IN ?", chunk).
			Order("created_at ASC").Order("id ASC").
			Find(&comments).Error
		if err != nil {
			return nil, translate(op, err)
		}
		out = append(out, comments...)
	}
	return out, nil
}

func (s *Store) CountBySubject(ctx context.Context, subjectID uint) (int64, error) {
	const op = "storage/gorm/CountBySubject"

	var total int64
	err := s.conn(ctx).Model(&models.Comment{}).
		Where("subject_id = ?", subjectID).
		Count(&total).Error
	if err != nil {
		return 0, translate(op, err)
	}
	return total, nil
}

func (s *Store) ListCommentIDs(ctx context.Context, subjectID uint) ([]uint, error) {
	const op = "storage/gorm/ListCommentIDs"

	q := s.conn(ctx).Model(&models.Comment{})
	if subjectID != 0 {
		q = q.Where("subject_id = ?", subjectID)
	}
	var ids []uint
	if err := q.Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, translate(op, err)
	}
	return ids, nil
}

// LockComment 用一次空更新拿到行锁，postgres 和 sqlite 行为一致，也不会动 updated_at。
func (s *Store) LockComment(ctx context.Context, id uint) error {
	const op = "storage/gorm/LockComment"

	res := s.conn(ctx).Model(&models.Comment{}).Where("id = ?", id).
		UpdateColumn("like_count", gorm.Expr("like_count"))
	if res.Error != nil {
		return translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(op, gorm.ErrRecordNotFound)
	}
	return nil
}

// SetCounters 写入从账本重新统计的计数并刷新 updated_at。
func (s *Store) SetCounters(ctx context.Context, id uint, likes, dislikes int64) (*models.Comment, error) {
	const op = "storage/gorm/SetCounters"

	res := s.conn(ctx).Model(&models.Comment{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"like_count":    likes,
		"dislike_count": dislikes,
		"updated_at":    time.Now(),
	})
	if res.Error != nil {
		return nil, translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, translate(op, storage.ErrNotFound)
	}
	return s.CommentByID(ctx, id)
}
