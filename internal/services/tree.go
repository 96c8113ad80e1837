package services

import (
	"context"

	"alumnilink/internal/models"
	"alumnilink/internal/storage"
)

// CommentNode 是一棵回复树的节点，只有向下的引用。
type CommentNode struct {
	models.Comment
	Replies []*CommentNode `json:"replies"`
	// RepliesTruncated 为 true 表示因深度或节点数上限，部分回复没有展开。
	RepliesTruncated bool `json:"replies_truncated,omitempty"`
}

// TreePage 是一页根评论及其回复树。
type TreePage struct {
	Items      []*CommentNode `json:"items"`
	Page       int            `json:"page"`
	Size       int            `json:"size"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"total_pages"`
}

type TreeLimits struct {
	DefaultPageSize int
	MaxPageSize     int
	MaxDepth        int
	MaxNodes        int
}

// TreeAssembler 把回复树按层展开，每层一次查询。只读，可并发使用。
type TreeAssembler struct {
	store  storage.CommentStore
	limits TreeLimits
}

func NewTreeAssembler(store storage.CommentStore, limits TreeLimits) *TreeAssembler {
	if limits.DefaultPageSize <= 0 {
		limits.DefaultPageSize = 20
	}
	if limits.MaxPageSize < limits.DefaultPageSize {
		limits.MaxPageSize = limits.DefaultPageSize
	}
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = 16
	}
	if limits.MaxNodes <= 0 {
		limits.MaxNodes = 2000
	}
	return &TreeAssembler{store: store, limits: limits}
}

// Assemble 从 root 开始广度优先展开。root 的深度为 0；
// 已访问过的 id 不会再次出现，超过 MaxDepth 或 MaxNodes 的部分被截断。
func (a *TreeAssembler) Assemble(ctx context.Context, root *models.Comment) (*CommentNode, error) {
	const op = "services/tree/Assemble"

	rootNode := &CommentNode{Comment: *root, Replies: []*CommentNode{}}
	visited := map[uint]bool{root.ID: true}
	nodes := 1

	level := []*CommentNode{rootNode}
	for depth := 0; len(level) > 0; depth++ {
		index := make(map[uint]*CommentNode, len(level))
		ids := make([]uint, 0, len(level))
		for _, n := range level {
			index[n.ID] = n
			ids = append(ids, n.ID)
		}

		children, err := a.store.ListByParents(ctx, ids)
		if err != nil {
			return nil, storeErr(op, err)
		}

		var next []*CommentNode
		for _, c := range children {
			if c.ParentID == nil || visited[c.ID] {
				continue
			}
			parent, ok := index[*c.ParentID]
			if !ok {
				continue
			}
			if depth >= a.limits.MaxDepth || nodes >= a.limits.MaxNodes {
				parent.RepliesTruncated = true
				continue
			}
			visited[c.ID] = true
			nodes++

			child := &CommentNode{Comment: c, Replies: []*CommentNode{}}
			parent.Replies = append(parent.Replies, child)
			next = append(next, child)
		}
		level = next
	}

	return rootNode, nil
}

// AssembleRoots 取一页根评论（最新在前）并分别展开。page 从 1 开始。
func (a *TreeAssembler) AssembleRoots(ctx context.Context, subjectID uint, page, size int) (*TreePage, error) {
	const op = "services/tree/AssembleRoots"

	page, size = a.clampPage(page, size)

	total, err := a.store.CountRootsBySubject(ctx, subjectID)
	if err != nil {
		return nil, storeErr(op, err)
	}

	result := &TreePage{
		Items:      []*CommentNode{},
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}
	// 超出末页直接返回空页，也避免 (page-1)*size 溢出
	if total == 0 || page > result.TotalPages {
		return result, nil
	}

	roots, err := a.store.ListRootsBySubject(ctx, subjectID, (page-1)*size, size)
	if err != nil {
		return nil, storeErr(op, err)
	}
	for i := range roots {
		node, err := a.Assemble(ctx, &roots[i])
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, node)
	}
	return result, nil
}

func (a *TreeAssembler) clampPage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = a.limits.DefaultPageSize
	}
	if size > a.limits.MaxPageSize {
		size = a.limits.MaxPageSize
	}
	return page, size
}
