package blocks

import (
	"bytes"
	"strings"

	"reblock-cli/internal/model"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

var rawMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	// Pasted HTML is kept verbatim.
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// RawHandler converts pasted text into blocks. Serialized block markup is
// parsed as-is; anything else is treated as Markdown (which includes plain text and HTML).
func RawHandler(raw string) []model.Block {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if raw == "" {
		return nil
	}
	if delimiterRE.MatchString(raw) {
		return AssignClientIDs(Parse(raw))
	}

	src := []byte(raw)
	doc := rawMarkdown.Parser().Parse(text.NewReader(src))

	var out []model.Block
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if b, ok := blockFromNode(n, src); ok {
			out = append(out, b)
		}
	}
	return out
}

func blockFromNode(n ast.Node, src []byte) (model.Block, bool) {
	rendered := renderNode(n, src)
	switch node := n.(type) {
	case *ast.Heading:
		b := CreateBlock("core/heading", map[string]any{"level": float64(node.Level)}, nil)
		b.InnerHTML = rendered
		return b, true
	case *ast.Paragraph:
		if img, ok := soleImage(node); ok {
			attrs := map[string]any{"url": string(img.Destination)}
			if alt := nodeText(img, src); alt != "" {
				attrs["alt"] = alt
			}
			b := CreateBlock("core/image", attrs, nil)
			b.InnerHTML = rendered
			return b, true
		}
		b := CreateBlock("core/paragraph", nil, nil)
		b.InnerHTML = rendered
		return b, true
	case *ast.List:
		var attrs map[string]any
		if node.IsOrdered() {
			attrs = map[string]any{"ordered": true}
		}
		b := CreateBlock("core/list", attrs, nil)
		b.InnerHTML = rendered
		return b, true
	case *ast.Blockquote:
		b := CreateBlock("core/quote", nil, nil)
		b.InnerHTML = rendered
		return b, true
	case *ast.FencedCodeBlock:
		var attrs map[string]any
		if lang := strings.TrimSpace(string(node.Language(src))); lang != "" {
			attrs = map[string]any{"language": lang}
		}
		b := CreateBlock("core/code", attrs, nil)
		b.InnerHTML = rendered
		return b, true
	case *ast.CodeBlock:
		b := CreateBlock("core/code", nil, nil)
		b.InnerHTML = rendered
		return b, true
	case *ast.ThematicBreak:
		b := CreateBlock("core/separator", nil, nil)
		b.InnerHTML = rendered
		return b, true
	case *ast.HTMLBlock:
		b := CreateBlock("core/html", nil, nil)
		b.InnerHTML = rendered
		return b, true
	}
	return model.Block{}, false
}

func renderNode(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if err := rawMarkdown.Renderer().Render(&buf, src, n); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}

func soleImage(p *ast.Paragraph) (*ast.Image, bool) {
	if p.ChildCount() != 1 {
		return nil, false
	}
	img, ok := p.FirstChild().(*ast.Image)
	return img, ok
}

func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(src))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
