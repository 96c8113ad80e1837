package services

import (
	"context"
	"testing"

	"alumnilink/internal/logger"
	"alumnilink/internal/models"
	"alumnilink/internal/storage"
	"alumnilink/internal/storage/gormstore"
	"alumnilink/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	db        *gorm.DB
	store     storage.Storage
	comments  *CommentService
	votes     *VoteService
	tree      *TreeAssembler
	reconcile *ReconcileService
	metrics   *Metrics
	subject   uint
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithStore(t, nil)
}

// newEnvWithStore 允许测试包一层 storage 来注入故障。
func newEnvWithStore(t *testing.T, wrap func(storage.Storage) storage.Storage) *env {
	t.Helper()

	gdb := testutil.DB(t)
	var store storage.Storage = gormstore.New(gdb)
	if wrap != nil {
		store = wrap(store)
	}
	log := logger.Nop()
	metrics := NewMetrics(nil)

	tree := NewTreeAssembler(store, TreeLimits{DefaultPageSize: 20, MaxPageSize: 100, MaxDepth: 16, MaxNodes: 2000})
	reconcile := NewReconcileService(store, metrics, log)
	news := testutil.News(t, gdb, "Homecoming 2026")

	return &env{
		db:        gdb,
		store:     store,
		comments:  NewCommentService(store, NewNewsChecker(gdb), tree, log),
		votes:     NewVoteService(store, 3, reconcile, metrics, log),
		tree:      tree,
		reconcile: reconcile,
		metrics:   metrics,
		subject:   news.ID,
	}
}

func (e *env) root(t *testing.T, author, content string) *models.Comment {
	t.Helper()
	c, err := e.comments.CreateRoot(context.Background(), CreateRootInput{
		SubjectID:       e.subject,
		AuthorName:      author,
		VoterBiografiID: "bio-" + author,
		Content:         content,
	})
	require.NoError(t, err)
	return c
}

func (e *env) reply(t *testing.T, parentID uint, author, content string) *models.Comment {
	t.Helper()
	c, err := e.comments.CreateReply(context.Background(), CreateReplyInput{
		ParentID:        parentID,
		AuthorName:      author,
		VoterBiografiID: "bio-" + author,
		Content:         content,
	})
	require.NoError(t, err)
	return c
}

// requireLedgerConsistent 独立统计账本，与评论上的计数比较。
func (e *env) requireLedgerConsistent(t *testing.T, commentID uint) {
	t.Helper()
	var likes, dislikes int64
	require.NoError(t, e.db.Model(&models.CommentVote{}).Where("comment_id = ? AND type = ?", commentID, models.VoteLike).Count(&likes).Error)
	require.NoError(t, e.db.Model(&models.CommentVote{}).Where("comment_id = ? AND type = ?", commentID, models.VoteDislike).Count(&dislikes).Error)

	var c models.Comment
	require.NoError(t, e.db.First(&c, commentID).Error)
	require.Equal(t, likes, c.LikeCount, "like_count drifted from ledger")
	require.Equal(t, dislikes, c.DislikeCount, "dislike_count drifted from ledger")
}

func (e *env) voteRows(t *testing.T, commentID uint, voterID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.CommentVote{}).Where("comment_id = ? AND voter_id = ?", commentID, voterID).Count(&n).Error)
	return n
}
