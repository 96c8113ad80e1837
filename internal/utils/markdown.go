package utils

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	// 评论里不需要标题和图片，只保留 GFM 的行内能力
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(
			goldhtml.WithHardWraps(),
			goldhtml.WithXHTML(),
		),
	)
	renderPolicy = bluemonday.UGCPolicy()
)

func init() {
	renderPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	renderPolicy.RequireNoReferrerOnLinks(true)
}

// RenderMarkdown 把纯文本评论渲染成安全的 HTML，给前端直接展示。
func RenderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return html.EscapeString(source)
	}
	return strings.TrimSpace(renderPolicy.Sanitize(buf.String()))
}
