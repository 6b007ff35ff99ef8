package markdown

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/hetaoshu/hetaoshu-web/internal/logger"
)

// TextProcessor renders post and comment content to safe HTML. Every line
// break of the source is kept as a line break.
type TextProcessor struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func New() *TextProcessor {
	md := goldmark.New(
		goldmark.WithRendererOptions(html.WithHardWraps()),
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	)

	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &TextProcessor{md: md, policy: p}
}

// Render converts content to sanitized HTML.
func (tp *TextProcessor) Render(content string) template.HTML {
	rendered, err := tp.renderText(content)
	if err != nil {
		logger.Log.Warn("markdown render failed, falling back to escaped text", "error", err)
		rendered = template.HTMLEscapeString(content)
	}
	return template.HTML(tp.policy.Sanitize(rendered))
}

func (tp *TextProcessor) renderText(text string) (string, error) {
	var buf bytes.Buffer
	if err := tp.md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
