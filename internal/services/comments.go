package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"alumnilink/internal/logger"
	"alumnilink/internal/models"
	"alumnilink/internal/storage"
)

type CreateRootInput struct {
	SubjectID       uint
	AuthorName      string
	VoterBiografiID string
	AuthorPhoto     string
	Content         string
}

type CreateReplyInput struct {
	ParentID        uint
	AuthorName      string
	VoterBiografiID string
	AuthorPhoto     string
	Content         string
}

// CommentService 评论生命周期：创建、编辑、级联删除、查询。
// 所有权校验不在这里做，交给 HTTP 边界。
type CommentService struct {
	store    storage.Storage
	subjects SubjectChecker
	tree     *TreeAssembler
	log      *logger.Logger
}

func NewCommentService(store storage.Storage, subjects SubjectChecker, tree *TreeAssembler, log *logger.Logger) *CommentService {
	return &CommentService{
		store:    store,
		subjects: subjects,
		tree:     tree,
		log:      log.With("service", "CommentService"),
	}
}

// CreateRoot 在主体下发表根评论。主体不存在属于校验失败。
func (s *CommentService) CreateRoot(ctx context.Context, in CreateRootInput) (*models.Comment, error) {
	const op = "services/comments/CreateRoot"

	fields, err := authorFields{
		AuthorName:      in.AuthorName,
		VoterBiografiID: in.VoterBiografiID,
		AuthorPhoto:     in.AuthorPhoto,
		Content:         in.Content,
	}.normalize(op)
	if err != nil {
		return nil, err
	}
	if in.SubjectID == 0 {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrValidation, ErrSubjectNotFound)
	}

	exists, err := s.subjects.SubjectExists(ctx, in.SubjectID)
	if err != nil {
		s.log.Error("subject lookup failed", "op", op, "subject_id", in.SubjectID, "error", err)
		return nil, storeErr(op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w: %w: %d", op, ErrValidation, ErrSubjectNotFound, in.SubjectID)
	}

	comment, err := s.store.CreateComment(ctx, models.Comment{
		SubjectID:       in.SubjectID,
		AuthorName:      fields.AuthorName,
		VoterBiografiID: fields.VoterBiografiID,
		AuthorPhoto:     fields.AuthorPhoto,
		Content:         fields.Content,
	})
	if err != nil {
		s.log.Error("create root comment failed", "op", op, "subject_id", in.SubjectID, "error", err)
		return nil, storeErr(op, err)
	}

	s.log.Info("root comment created", "comment_id", comment.ID, "subject_id", comment.SubjectID,
		"biografi_id", comment.VoterBiografiID)
	return comment, nil
}

// CreateReply 回复一条评论，主体从父评论继承。
func (s *CommentService) CreateReply(ctx context.Context, in CreateReplyInput) (*models.Comment, error) {
	const op = "services/comments/CreateReply"

	fields, err := authorFields{
		AuthorName:      in.AuthorName,
		VoterBiografiID: in.VoterBiografiID,
		AuthorPhoto:     in.AuthorPhoto,
		Content:         in.Content,
	}.normalize(op)
	if err != nil {
		return nil, err
	}

	parent, err := s.store.CommentByID(ctx, in.ParentID)
	if err != nil {
		return nil, storeErr(op, err)
	}

	parentID := parent.ID
	comment, err := s.store.CreateComment(ctx, models.Comment{
		SubjectID:       parent.SubjectID,
		ParentID:        &parentID,
		AuthorName:      fields.AuthorName,
		VoterBiografiID: fields.VoterBiografiID,
		AuthorPhoto:     fields.AuthorPhoto,
		Content:         fields.Content,
	})
	if err != nil {
		s.log.Error("create reply failed", "op", op, "parent_id", parentID, "error", err)
		return nil, storeErr(op, err)
	}

	s.log.Info("reply created", "comment_id", comment.ID, "parent_id", parentID,
		"biografi_id", comment.VoterBiografiID)
	return comment, nil
}

// EditContent 只替换内容。
func (s *CommentService) EditContent(ctx context.Context, id uint, content string) (*models.Comment, error) {
	const op = "services/comments/EditContent"

	content, err := normalizeContent(op, content)
	if err != nil {
		return nil, err
	}

	comment, err := s.store.UpdateContent(ctx, id, content)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Error("edit comment failed", "op", op, "comment_id", id, "error", err)
		}
		return nil, storeErr(op, err)
	}
	return comment, nil
}

// Delete 删除评论及其全部后代回复和它们的投票，在一个事务里完成。
// 返回删除的评论数量。
func (s *CommentService) Delete(ctx context.Context, id uint) (int64, error) {
	const op = "services/comments/Delete"

	var deleted int64
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		if _, err := tx.CommentByID(ctx, id); err != nil {
			return err
		}

		ids, err := collectSubtree(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.DeleteVotesForComments(ctx, ids); err != nil {
			return err
		}
		deleted, err = tx.DeleteComments(ctx, ids)
		return err
	})
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Error("delete comment failed", "op", op, "comment_id", id, "error", err)
		}
		return 0, storeErr(op, err)
	}

	s.log.Info("comment deleted", "comment_id", id, "deleted", deleted)
	return deleted, nil
}

// collectSubtree 按层收集 id 及其所有后代，已见过的 id 不会重复。
func collectSubtree(ctx context.Context, store storage.CommentStore, id uint) ([]uint, error) {
	seen := map[uint]bool{id: true}
	all := []uint{id}
	level := []uint{id}
	for len(level) > 0 {
		children, err := store.ListByParents(ctx, level)
		if err != nil {
			return nil, err
		}
		var next []uint
		for _, c := range children {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			all = append(all, c.ID)
			next = append(next, c.ID)
		}
		level = next
	}
	return all, nil
}

func (s *CommentService) Get(ctx context.Context, id uint) (*models.Comment, error) {
	const op = "services/comments/Get"

	comment, err := s.store.CommentByID(ctx, id)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return comment, nil
}

func (s *CommentService) Exists(ctx context.Context, id uint) (bool, error) {
	const op = "services/comments/Exists"

	_, err := s.store.CommentByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr(op, err)
	}
	return true, nil
}

// OwnedBy 判断评论是否由该校友发表。没有登记 biografi id 的评论不属于任何人。
func (s *CommentService) OwnedBy(ctx context.Context, id uint, voterBiografiID string) (bool, error) {
	const op = "services/comments/OwnedBy"

	comment, err := s.store.CommentByID(ctx, id)
	if err != nil {
		return false, storeErr(op, err)
	}
	owner := strings.TrimSpace(voterBiografiID)
	return owner != "" && comment.VoterBiografiID == owner, nil
}

// ListReplies 直接回复，最早的在前。
func (s *CommentService) ListReplies(ctx context.Context, parentID uint) ([]models.Comment, error) {
	const op = "services/comments/ListReplies"

	if _, err := s.store.CommentByID(ctx, parentID); err != nil {
		return nil, storeErr(op, err)
	}
	replies, err := s.store.ListByParent(ctx, parentID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if replies == nil {
		replies = []models.Comment{}
	}
	return replies, nil
}

// Count 主体下的评论总数（根 + 回复）。
func (s *CommentService) Count(ctx context.Context, subjectID uint) (int64, error) {
	const op = "services/comments/Count"

	total, err := s.store.CountBySubject(ctx, subjectID)
	if err != nil {
		return 0, storeErr(op, err)
	}
	return total, nil
}

func (s *CommentService) GetWithReplies(ctx context.Context, id uint) (*CommentNode, error) {
	const op = "services/comments/GetWithReplies"

	comment, err := s.store.CommentByID(ctx, id)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return s.tree.Assemble(ctx, comment)
}

func (s *CommentService) ListRootsWithReplies(ctx context.Context, subjectID uint, page, size int) (*TreePage, error) {
	return s.tree.AssembleRoots(ctx, subjectID, page, size)
}
