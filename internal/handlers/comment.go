package handlers

import (
	"net/http"

	"alumnilink/internal/services"
	"alumnilink/internal/utils"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type createCommentRequest struct {
	AuthorName  string `json:"author_name"`
	AuthorPhoto string `json:"author_photo"`
	Content     string `json:"content"`
}

type editCommentRequest struct {
	Content string `json:"content"`
}

// author 没填名字时使用身份里的显示名。
func (r createCommentRequest) author(c *gin.Context) (name, biografiID string) {
	voter := voterFrom(c)
	name = r.AuthorName
	if name == "" {
		name = voter.Name
	}
	return name, voter.ID
}

// CreateRoot POST /api/news/:id/comments
func (h *CommentHandler) CreateRoot(c *gin.Context) {
	subjectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "请求格式错误")
		return
	}

	name, biografiID := req.author(c)
	comment, err := h.comments.CreateRoot(c.Request.Context(), services.CreateRootInput{
		SubjectID:       subjectID,
		AuthorName:      name,
		VoterBiografiID: biografiID,
		AuthorPhoto:     req.AuthorPhoto,
		Content:         req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, toView(comment))
}

// ListRoots GET /api/news/:id/comments?page=&size=
func (h *CommentHandler) ListRoots(c *gin.Context) {
	subjectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	page := utils.StringToInt(c.DefaultQuery("page", "1"))
	size := utils.StringToInt(c.Query("size"))

	result, err := h.comments.ListRootsWithReplies(c.Request.Context(), subjectID, page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toPageView(result))
}

// Count GET /api/news/:id/comments/count
func (h *CommentHandler) Count(c *gin.Context) {
	subjectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	total, err := h.comments.Count(c.Request.Context(), subjectID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"subject_id": subjectID, "count": total})
}

// Get GET /api/comments/:id
func (h *CommentHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	comment, err := h.comments.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toView(comment))
}

// Tree GET /api/comments/:id/tree
func (h *CommentHandler) Tree(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	node, err := h.comments.GetWithReplies(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toNodeView(node))
}

// Replies GET /api/comments/:id/replies
func (h *CommentHandler) Replies(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	replies, err := h.comments.ListReplies(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toViews(replies))
}

// CreateReply POST /api/comments/:id/replies
func (h *CommentHandler) CreateReply(c *gin.Context) {
	parentID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "请求格式错误")
		return
	}

	name, biografiID := req.author(c)
	comment, err := h.comments.CreateReply(c.Request.Context(), services.CreateReplyInput{
		ParentID:        parentID,
		AuthorName:      name,
		VoterBiografiID: biografiID,
		AuthorPhoto:     req.AuthorPhoto,
		Content:         req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, toView(comment))
}

// Edit PUT /api/comments/:id，只有作者本人可以编辑
func (h *CommentHandler) Edit(c *gin.Context) {
	id, ok := h.ownedComment(c)
	if !ok {
		return
	}
	var req editCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "请求格式错误")
		return
	}

	comment, err := h.comments.EditContent(c.Request.Context(), id, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toView(comment))
}

// Delete DELETE /api/comments/:id，连同所有回复一起删除
func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := h.ownedComment(c)
	if !ok {
		return
	}
	deleted, err := h.comments.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "deleted": deleted})
}

func (h *CommentHandler) ownedComment(c *gin.Context) (uint, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return 0, false
	}
	owned, err := h.comments.OwnedBy(c.Request.Context(), id, voterFrom(c).ID)
	if err != nil {
		respondError(c, err)
		return 0, false
	}
	if !owned {
		respondMessage(c, http.StatusForbidden, "无权操作该评论")
		return 0, false
	}
	return id, true
}
