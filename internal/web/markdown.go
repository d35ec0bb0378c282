package web

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		emoji.Emoji,
	),
	goldmark.WithParserOptions(
		parser.WithASTTransformers(util.Prioritized(workspaceLinks{}, 100)),
	),
	goldmark.WithRendererOptions(
		// Raw HTML stays escaped; html.WithUnsafe() is never set.
		html.WithHardWraps(),
	),
)

// workspaceLinks points links whose destination is a bare workspace id
// ([footer](rb-abc), [home](doc-1)) at the preview page for that id.
type workspaceLinks struct{}

func (workspaceLinks) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if l, ok := n.(*ast.Link); ok {
			l.Destination = []byte(previewPathForID(string(l.Destination)))
		}
		return ast.WalkContinue, nil
	})
}

func previewPathForID(dest string) string {
	if dest == "" || strings.ContainsAny(dest, "/?#:. ") {
		return dest
	}
	switch {
	case strings.HasPrefix(dest, "rb-"):
		return "/reusable/" + url.PathEscape(dest)
	case strings.HasPrefix(dest, "doc-"):
		return "/documents/" + url.PathEscape(dest)
	}
	return dest
}

func renderMarkdownHTML(src string) template.HTML {
	src = strings.TrimSpace(src)
	if src == "" {
		return template.HTML("")
	}
	var b bytes.Buffer
	if err := markdownRenderer.Convert([]byte(src), &b); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	// goldmark output is trusted only because raw HTML is disabled above.
	return template.HTML(b.String())
}
