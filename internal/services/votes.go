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

type VoteOutcome string

const (
	// OutcomeCreated 首次投票
	OutcomeCreated VoteOutcome = "created"
	// OutcomeWithdrawn 重复同一类型，撤回
	OutcomeWithdrawn VoteOutcome = "withdrawn"
	// OutcomeSwitched LIKE <-> DISLIKE
	OutcomeSwitched VoteOutcome = "switched"
)

type VoteInput struct {
	CommentID uint
	VoterID   string
	VoterName string
	Type      models.VoteType
}

type VoteResult struct {
	Comment *models.Comment `json:"comment"`
	Outcome VoteOutcome     `json:"outcome"`
	// Current 为投票后该投票人在这条评论上的状态，撤回后为空。
	Current models.VoteType `json:"current,omitempty"`
}

// Recounter 异步校准计数，投票失败后用来自愈。
type Recounter interface {
	ScheduleRecount(commentID uint)
}

// VoteService 投票协议：切换 / 撤回，计数总是从账本重新统计。
type VoteService struct {
	store       storage.Storage
	maxAttempts int
	recounter   Recounter
	metrics     *Metrics
	log         *logger.Logger
}

func NewVoteService(store storage.Storage, maxAttempts int, recounter Recounter, metrics *Metrics, log *logger.Logger) *VoteService {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &VoteService{
		store:       store,
		maxAttempts: maxAttempts,
		recounter:   recounter,
		metrics:     metrics,
		log:         log.With("service", "VoteService"),
	}
}

func (s *VoteService) Like(ctx context.Context, commentID uint, voterID, voterName string) (*VoteResult, error) {
	return s.Vote(ctx, VoteInput{CommentID: commentID, VoterID: voterID, VoterName: voterName, Type: models.VoteLike})
}

func (s *VoteService) Dislike(ctx context.Context, commentID uint, voterID, voterName string) (*VoteResult, error) {
	return s.Vote(ctx, VoteInput{CommentID: commentID, VoterID: voterID, VoterName: voterName, Type: models.VoteDislike})
}

// Vote 在一个事务里完成：锁评论行、读账本、写账本、重算计数。
// 账本冲突时整个事务重试，最多 maxAttempts 次。
func (s *VoteService) Vote(ctx context.Context, in VoteInput) (*VoteResult, error) {
	const op = "services/votes/Vote"

	in.VoterID = strings.TrimSpace(in.VoterID)
	in.VoterName = strings.TrimSpace(in.VoterName)
	if in.VoterID == "" {
		return nil, validationErr(op, "voter id is required")
	}
	if len(in.VoterID) > maxBiografiIDLen {
		return nil, validationErr(op, "voter id exceeds %d characters", maxBiografiIDLen)
	}
	if !in.Type.Valid() {
		return nil, validationErr(op, "unknown vote type %q", in.Type)
	}

	log := s.log.With("op", op, "comment_id", in.CommentID, "voter_id", in.VoterID, "type", in.Type)

	var (
		result *VoteResult
		err    error
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		result, err = s.apply(ctx, in)
		if err == nil {
			s.metrics.VoteOutcomes.WithLabelValues(string(in.Type), string(result.Outcome)).Inc()
			log.Debug("vote applied", "outcome", result.Outcome, "attempt", attempt,
				"like_count", result.Comment.LikeCount, "dislike_count", result.Comment.DislikeCount)
			return result, nil
		}
		if !errors.Is(err, storage.ErrConflict) || ctx.Err() != nil {
			break
		}
		s.metrics.VoteRetries.Inc()
		log.Debug("ledger conflict, retrying", "attempt", attempt)
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.metrics.VoteFailures.WithLabelValues("not_found").Inc()
		log.Warn("vote on missing comment")
	case errors.Is(err, storage.ErrConflict):
		s.metrics.VoteFailures.WithLabelValues("conflict").Inc()
		log.Warn("vote conflict persisted after retries", "attempts", s.maxAttempts)
	default:
		s.metrics.VoteFailures.WithLabelValues("store").Inc()
		log.Error("vote failed", "error", err)
		// 事务已回滚；交给校准再核一遍，防止提交后才断开的请求留下偏差
		if s.recounter != nil {
			s.recounter.ScheduleRecount(in.CommentID)
		}
	}
	return nil, storeErr(op, err)
}

func (s *VoteService) apply(ctx context.Context, in VoteInput) (*VoteResult, error) {
	result := &VoteResult{}

	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		if err := tx.LockComment(ctx, in.CommentID); err != nil {
			return err
		}

		existing, err := tx.FindVote(ctx, in.CommentID, in.VoterID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			_, err = tx.InsertVote(ctx, models.CommentVote{
				CommentID: in.CommentID,
				VoterID:   in.VoterID,
				VoterName: in.VoterName,
				Type:      in.Type,
			})
			result.Outcome, result.Current = OutcomeCreated, in.Type
		case err != nil:
			return err
		case existing.Type == in.Type:
			err = tx.RemoveVote(ctx, in.CommentID, in.VoterID, in.Type)
			result.Outcome, result.Current = OutcomeWithdrawn, ""
		default:
			err = tx.UpdateVoteType(ctx, in.CommentID, in.VoterID, existing.Type, in.Type, in.VoterName)
			result.Outcome, result.Current = OutcomeSwitched, in.Type
		}
		if err != nil {
			return err
		}

		comment, err := recount(ctx, tx, in.CommentID)
		if err != nil {
			return err
		}
		result.Comment = comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// recount 从账本统计两种票数并写回评论。
func recount(ctx context.Context, tx storage.Storage, commentID uint) (*models.Comment, error) {
	likes, err := tx.CountVotes(ctx, commentID, models.VoteLike)
	if err != nil {
		return nil, fmt.Errorf("count likes: %w", err)
	}
	dislikes, err := tx.CountVotes(ctx, commentID, models.VoteDislike)
	if err != nil {
		return nil, fmt.Errorf("count dislikes: %w", err)
	}
	return tx.SetCounters(ctx, commentID, likes, dislikes)
}

// VoteOf 返回投票人当前在评论上的投票类型，没投过时返回空串。
func (s *VoteService) VoteOf(ctx context.Context, commentID uint, voterID string) (models.VoteType, error) {
	const op = "services/votes/VoteOf"

	if _, err := s.store.CommentByID(ctx, commentID); err != nil {
		return "", storeErr(op, err)
	}
	vote, err := s.store.FindVote(ctx, commentID, strings.TrimSpace(voterID))
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storeErr(op, err)
	}
	return vote.Type, nil
}
