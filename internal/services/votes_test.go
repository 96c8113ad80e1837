package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"alumnilink/internal/models"
	"alumnilink/internal/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVote_ToggleIdempotence(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.root(t, "ana", "first!")

	res, err := e.votes.Like(ctx, c.ID, "v1", "Ana")
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, res.Outcome)
	require.Equal(t, models.VoteLike, res.Current)
	require.EqualValues(t, 1, res.Comment.LikeCount)

	res, err = e.votes.Like(ctx, c.ID, "v1", "Ana")
	require.NoError(t, err)
	require.Equal(t, OutcomeWithdrawn, res.Outcome)
	require.Empty(t, res.Current)
	require.Zero(t, res.Comment.LikeCount)
	require.Zero(t, res.Comment.DislikeCount)

	require.Zero(t, e.voteRows(t, c.ID, "v1"))
	e.requireLedgerConsistent(t, c.ID)
}

func TestVote_SwitchCorrectness(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.root(t, "ana", "switch me")

	_, err := e.votes.Like(ctx, c.ID, "v1", "Ana")
	require.NoError(t, err)

	res, err := e.votes.Dislike(ctx, c.ID, "v1", "Ana Maria")
	require.NoError(t, err)
	require.Equal(t, OutcomeSwitched, res.Outcome)
	require.Zero(t, res.Comment.LikeCount)
	require.EqualValues(t, 1, res.Comment.DislikeCount)

	require.EqualValues(t, 1, e.voteRows(t, c.ID, "v1"))
	var vote models.CommentVote
	require.NoError(t, e.db.Where("comment_id = ? AND voter_id = ?", c.ID, "v1").First(&vote).Error)
	require.Equal(t, models.VoteDislike, vote.Type)
	require.Equal(t, "Ana Maria", vote.VoterName)
}

func TestVote_Scenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	c1 := e.root(t, "ana", "C1")
	require.Zero(t, c1.LikeCount)
	require.Zero(t, c1.DislikeCount)

	res, err := e.votes.Like(ctx, c1.ID, "V1", "Voter One")
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Comment.LikeCount)

	res, err = e.votes.Dislike(ctx, c1.ID, "V2", "Voter Two")
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Comment.DislikeCount)

	res, err = e.votes.Like(ctx, c1.ID, "V1", "Voter One")
	require.NoError(t, err)
	require.Zero(t, res.Comment.LikeCount)
	require.EqualValues(t, 1, res.Comment.DislikeCount)

	r1, err := e.comments.CreateReply(ctx, CreateReplyInput{ParentID: c1.ID, AuthorName: "Voter Two", VoterBiografiID: "V2", Content: "R1"})
	require.NoError(t, err)

	replies, err := e.comments.ListReplies(ctx, c1.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.Equal(t, r1.ID, replies[0].ID)

	tree, err := e.comments.GetWithReplies(ctx, c1.ID)
	require.NoError(t, err)
	require.Len(t, tree.Replies, 1)
	require.Equal(t, r1.ID, tree.Replies[0].ID)
	require.Empty(t, tree.Replies[0].Replies)
}

func TestVote_CounterLedgerConsistency_RandomSequence(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	comments := []*models.Comment{e.root(t, "a", "one"), e.root(t, "b", "two")}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 120; i++ {
		c := comments[rng.Intn(len(comments))]
		voter := fmt.Sprintf("voter-%d", rng.Intn(5))
		typ := models.VoteLike
		if rng.Intn(2) == 0 {
			typ = models.VoteDislike
		}
		_, err := e.votes.Vote(ctx, VoteInput{CommentID: c.ID, VoterID: voter, VoterName: voter, Type: typ})
		require.NoError(t, err)
	}

	for _, c := range comments {
		e.requireLedgerConsistent(t, c.ID)
	}
}

// 测试库只有一个连接，这些 goroutine 的事务实际上是依次执行的。
// 这里验证交错的重复投票最终仍只留一行、计数与账本一致；
// 唯一索引兜底的冲突路径见 gormstore 的 TestVoteLedger_CompareAndSet
// 和 TestVote_ConflictIsRetried。
func TestVote_InterleavedSameVoter_AtMostOneRow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.root(t, "ana", "race")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			typ := models.VoteLike
			if i%3 == 0 {
				typ = models.VoteDislike
			}
			_, err := e.votes.Vote(ctx, VoteInput{CommentID: c.ID, VoterID: "same", VoterName: "Same", Type: typ})
			assert.NoError(t, err)
		}(i)
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.votes.Like(ctx, c.ID, fmt.Sprintf("other-%d", i), "Other")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.LessOrEqual(t, e.voteRows(t, c.ID, "same"), int64(1))
	for i := 0; i < 8; i++ {
		require.EqualValues(t, 1, e.voteRows(t, c.ID, fmt.Sprintf("other-%d", i)))
	}
	e.requireLedgerConsistent(t, c.ID)
}

// conflictingStore 让前 n 次 InsertVote 返回唯一约束冲突。
type conflictingStore struct {
	storage.Storage
	remaining *int32
}

func (s *conflictingStore) Transaction(ctx context.Context, fn func(tx storage.Storage) error) error {
	return s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		return fn(&conflictingStore{Storage: tx, remaining: s.remaining})
	})
}

func (s *conflictingStore) InsertVote(ctx context.Context, v models.CommentVote) (*models.CommentVote, error) {
	if atomic.AddInt32(s.remaining, -1) >= 0 {
		return nil, fmt.Errorf("fake insert: %w", storage.ErrConflict)
	}
	return s.Storage.InsertVote(ctx, v)
}

func TestVote_ConflictIsRetried(t *testing.T) {
	remaining := int32(2)
	e := newEnvWithStore(t, func(s storage.Storage) storage.Storage {
		return &conflictingStore{Storage: s, remaining: &remaining}
	})
	ctx := context.Background()
	c := e.root(t, "ana", "retry")

	res, err := e.votes.Like(ctx, c.ID, "v1", "Ana")
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, res.Outcome)
	require.EqualValues(t, 1, res.Comment.LikeCount)
	require.Equal(t, float64(2), testutil.ToFloat64(e.metrics.VoteRetries))
	e.requireLedgerConsistent(t, c.ID)
}

func TestVote_ConflictExhausted(t *testing.T) {
	remaining := int32(100)
	e := newEnvWithStore(t, func(s storage.Storage) storage.Storage {
		return &conflictingStore{Storage: s, remaining: &remaining}
	})
	ctx := context.Background()
	c := e.root(t, "ana", "never")

	_, err := e.votes.Like(ctx, c.ID, "v1", "Ana")
	require.ErrorIs(t, err, ErrConflict)
	require.Zero(t, e.voteRows(t, c.ID, "v1"))
	e.requireLedgerConsistent(t, c.ID)
}

func TestVote_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.root(t, "ana", "x")

	_, err := e.votes.Like(ctx, 9999, "v1", "Ana")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = e.votes.Like(ctx, c.ID, "   ", "Ana")
	require.ErrorIs(t, err, ErrValidation)

	_, err = e.votes.Vote(ctx, VoteInput{CommentID: c.ID, VoterID: "v1", Type: "MEH"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestVoteOf(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.root(t, "ana", "x")

	current, err := e.votes.VoteOf(ctx, c.ID, "v1")
	require.NoError(t, err)
	require.Empty(t, current)

	_, err = e.votes.Dislike(ctx, c.ID, "v1", "Ana")
	require.NoError(t, err)

	current, err = e.votes.VoteOf(ctx, c.ID, "v1")
	require.NoError(t, err)
	require.Equal(t, models.VoteDislike, current)

	_, err = e.votes.VoteOf(ctx, 4040, "v1")
	require.ErrorIs(t, err, ErrNotFound)
}
