package handlers

import (
	"net/http"

	"alumnilink/internal/models"
	"alumnilink/internal/services"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	votes *services.VoteService
}

func NewVoteHandler(votes *services.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

type voteResponse struct {
	Comment commentView          `json:"comment"`
	Outcome services.VoteOutcome `json:"outcome"`
	Current *models.VoteType     `json:"current"`
}

// Like POST /api/comments/:id/like，重复点赞即撤回
func (h *VoteHandler) Like(c *gin.Context) {
	h.vote(c, models.VoteLike)
}

// Dislike POST /api/comments/:id/dislike
func (h *VoteHandler) Dislike(c *gin.Context) {
	h.vote(c, models.VoteDislike)
}

func (h *VoteHandler) vote(c *gin.Context, voteType models.VoteType) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	voter := voterFrom(c)

	result, err := h.votes.Vote(c.Request.Context(), services.VoteInput{
		CommentID: id,
		VoterID:   voter.ID,
		VoterName: voter.Name,
		Type:      voteType,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := voteResponse{Comment: toView(result.Comment), Outcome: result.Outcome}
	if result.Current != "" {
		current := result.Current
		resp.Current = &current
	}
	respond(c, http.StatusOK, resp)
}

// Current GET /api/comments/:id/vote
func (h *VoteHandler) Current(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	current, err := h.votes.VoteOf(c.Request.Context(), id, voterFrom(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}

	var out *models.VoteType
	if current != "" {
		out = &current
	}
	respond(c, http.StatusOK, gin.H{"comment_id": id, "current": out})
}
