package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"alumnilink/internal/logger"
	"alumnilink/internal/models"
	"alumnilink/internal/storage"
)

const (
	reconcileQueueSize = 1000
	reconcileBatchSize = 50
	reconcileInterval  = 500 * time.Millisecond
)

// ReconcileReport 一次校准的结果。
type ReconcileReport struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
}

// ReconcileService 从账本重新统计评论计数，修正中断请求留下的偏差。
// 支持单条、按主体、全量三种粒度，以及后台队列和每日定时任务。
type ReconcileService struct {
	store   storage.Storage
	metrics *Metrics
	log     *logger.Logger

	queue   chan uint
	pending map[uint]bool
	mu      sync.Mutex
}

func NewReconcileService(store storage.Storage, metrics *Metrics, log *logger.Logger) *ReconcileService {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &ReconcileService{
		store:   store,
		metrics: metrics,
		log:     log.With("service", "ReconcileService"),
		queue:   make(chan uint, reconcileQueueSize),
		pending: make(map[uint]bool),
	}
}

// ScheduleRecount 把评论放进后台队列；已在队列中的直接跳过，队列满时丢弃。
func (s *ReconcileService) ScheduleRecount(commentID uint) {
	s.mu.Lock()
	if s.pending[commentID] {
		s.mu.Unlock()
		return
	}
	s.pending[commentID] = true
	s.mu.Unlock()

	select {
	case s.queue <- commentID:
	default:
		s.mu.Lock()
		delete(s.pending, commentID)
		s.mu.Unlock()
		s.log.Warn("reconcile queue full, dropping", "comment_id", commentID)
	}
}

// Run 处理队列直到 ctx 结束：攒满一批或每 500ms 处理一次。
func (s *ReconcileService) Run(ctx context.Context) {
	batch := make([]uint, 0, reconcileBatchSize)
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.queue:
			batch = append(batch, id)
			if len(batch) >= reconcileBatchSize {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *ReconcileService) processBatch(ctx context.Context, ids []uint) {
	s.metrics.ReconcileRuns.WithLabelValues("queue").Inc()
	for _, id := range ids {
		if _, err := s.ReconcileComment(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			s.log.Warn("queued recount failed", "comment_id", id, "error", err)
		}
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}
}

// ReconcileComment 锁住评论行后比较计数与账本，不一致时写回。返回是否做了修正。
func (s *ReconcileService) ReconcileComment(ctx context.Context, commentID uint) (bool, error) {
	const op = "services/reconcile/ReconcileComment"

	repaired := false
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		if err := tx.LockComment(ctx, commentID); err != nil {
			return err
		}
		comment, err := tx.CommentByID(ctx, commentID)
		if err != nil {
			return err
		}
		likes, err := tx.CountVotes(ctx, commentID, models.VoteLike)
		if err != nil {
			return err
		}
		dislikes, err := tx.CountVotes(ctx, commentID, models.VoteDislike)
		if err != nil {
			return err
		}
		if comment.LikeCount == likes && comment.DislikeCount == dislikes {
			return nil
		}
		if _, err := tx.SetCounters(ctx, commentID, likes, dislikes); err != nil {
			return err
		}
		repaired = true
		s.log.Info("counters repaired", "comment_id", commentID,
			"like_count", comment.LikeCount, "likes", likes,
			"dislike_count", comment.DislikeCount, "dislikes", dislikes)
		return nil
	})
	if err != nil {
		return false, storeErr(op, err)
	}
	if repaired {
		s.metrics.CountersRepairs.Inc()
	}
	return repaired, nil
}

// ReconcileSubject 校准主体下的全部评论；subjectID 为 0 时校准所有评论。
func (s *ReconcileService) ReconcileSubject(ctx context.Context, subjectID uint) (*ReconcileReport, error) {
	const op = "services/reconcile/ReconcileSubject"

	ids, err := s.store.ListCommentIDs(ctx, subjectID)
	if err != nil {
		return nil, storeErr(op, err)
	}

	report := &ReconcileReport{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, storeErr(op, err)
		}
		repaired, err := s.ReconcileComment(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return report, err
		}
		report.Checked++
		if repaired {
			report.Repaired++
		}
	}
	return report, nil
}

// ReconcileNow 是管理接口触发的校准。
func (s *ReconcileService) ReconcileNow(ctx context.Context, subjectID uint) (*ReconcileReport, error) {
	s.metrics.ReconcileRuns.WithLabelValues("admin").Inc()
	report, err := s.ReconcileSubject(ctx, subjectID)
	if err != nil {
		s.log.Error("manual reconcile failed", "subject_id", subjectID, "error", err)
		return nil, err
	}
	s.log.Info("manual reconcile finished", "subject_id", subjectID, "checked", report.Checked, "repaired", report.Repaired)
	return report, nil
}

func (s *ReconcileService) ReconcileAll(ctx context.Context) (*ReconcileReport, error) {
	return s.ReconcileSubject(ctx, 0)
}

// StartScheduled 每天 hour 点跑一次全量校准，ctx 结束时退出。
func (s *ReconcileService) StartScheduled(ctx context.Context, hour int) {
	go func() {
		for {
			wait := time.Until(nextRun(time.Now(), hour))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			s.log.Info("scheduled reconcile started")
			s.metrics.ReconcileRuns.WithLabelValues("scheduled").Inc()
			report, err := s.ReconcileAll(ctx)
			if err != nil {
				s.log.Error("scheduled reconcile failed", "error", err)
				continue
			}
			s.log.Info("scheduled reconcile finished", "checked", report.Checked, "repaired", report.Repaired)
		}
	}()
}

// nextRun 返回 now 之后最近的一个 hour:00。
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
