package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"alumnilink/internal/middleware"
	"alumnilink/internal/models"
	"alumnilink/internal/services"
	"alumnilink/internal/utils"

	"github.com/gin-gonic/gin"
)

// commentView 在评论上附带渲染好的 HTML。
type commentView struct {
	models.Comment
	ContentHTML string `json:"content_html"`
}

type nodeView struct {
	commentView
	Replies          []*nodeView `json:"replies"`
	RepliesTruncated bool        `json:"replies_truncated,omitempty"`
}

type pageView struct {
	Items      []*nodeView `json:"items"`
	Page       int         `json:"page"`
	Size       int         `json:"size"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
}

func toView(c *models.Comment) commentView {
	return commentView{Comment: *c, ContentHTML: utils.RenderMarkdown(c.Content)}
}

func toViews(cs []models.Comment) []commentView {
	out := make([]commentView, 0, len(cs))
	for i := range cs {
		out = append(out, toView(&cs[i]))
	}
	return out
}

// toNodeView 用显式栈转换，避免深树递归。
func toNodeView(root *services.CommentNode) *nodeView {
	type pair struct {
		src *services.CommentNode
		dst *nodeView
	}
	out := &nodeView{}
	stack := []pair{{root, out}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		p.dst.commentView = toView(&p.src.Comment)
		p.dst.RepliesTruncated = p.src.RepliesTruncated
		p.dst.Replies = make([]*nodeView, len(p.src.Replies))
		for i, child := range p.src.Replies {
			p.dst.Replies[i] = &nodeView{}
			stack = append(stack, pair{child, p.dst.Replies[i]})
		}
	}
	return out
}

func toPageView(p *services.TreePage) pageView {
	items := make([]*nodeView, 0, len(p.Items))
	for _, n := range p.Items {
		items = append(items, toNodeView(n))
	}
	return pageView{Items: items, Page: p.Page, Size: p.Size, Total: p.Total, TotalPages: p.TotalPages}
}

func respond(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondMessage(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

// respondError 把服务层错误映射成 HTTP 状态码。
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, services.ErrValidation):
		respondMessage(c, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, services.ErrNotFound):
		respondMessage(c, http.StatusNotFound, "评论不存在")
	case errors.Is(err, services.ErrConflict):
		respondMessage(c, http.StatusConflict, "操作冲突，请重试")
	case errors.Is(err, context.DeadlineExceeded):
		respondMessage(c, http.StatusGatewayTimeout, "请求超时")
	case errors.Is(err, services.ErrStoreUnavailable), errors.Is(err, context.Canceled):
		respondMessage(c, http.StatusServiceUnavailable, "服务暂时不可用")
	default:
		respondMessage(c, http.StatusInternalServerError, "服务器错误")
	}
}

// validationMessage 去掉内部的 op 前缀，只留下给调用方看的原因。
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, services.ErrValidation.Error()); i >= 0 {
		return msg[i:]
	}
	return services.ErrValidation.Error()
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := utils.ParseID(c.Param(name))
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "无效的 ID")
		return 0, false
	}
	return id, true
}

func voterFrom(c *gin.Context) middleware.Voter {
	v, _ := middleware.CurrentVoter(c)
	return v
}
