package blocks

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"reblock-cli/internal/model"
)

var (
	tagRE        = regexp.MustCompile(`<[^>]*>`)
	listItemRE   = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
	blankLinesRE = regexp.MustCompile(`\n{3,}`)
)

// PlainText returns the visible text of a block (and its inner blocks) without markup.
func PlainText(b model.Block) string {
	parts := []string{}
	if s := stripTags(b.InnerHTML); s != "" {
		parts = append(parts, s)
	}
	for _, child := range b.InnerBlocks {
		if s := PlainText(child); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func stripTags(s string) string {
	s = tagRE.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}

// Markdown renders a block tree as Markdown for terminal previews.
func Markdown(blocks []model.Block) string {
	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(blockMarkdown(b))
	}
	return strings.TrimSpace(blankLinesRE.ReplaceAllString(sb.String(), "\n\n"))
}

func blockMarkdown(b model.Block) string {
	switch b.Name {
	case "core/heading":
		level := 2
		if v, ok := b.Attributes["level"].(float64); ok && v >= 1 && v <= 6 {
			level = int(v)
		}
		return strings.Repeat("#", level) + " " + stripTags(b.InnerHTML)
	case "core/list":
		items := listItemRE.FindAllStringSubmatch(b.InnerHTML, -1)
		if len(items) == 0 {
			return "- " + stripTags(b.InnerHTML)
		}
		ordered, _ := b.Attributes["ordered"].(bool)
		lines := make([]string, 0, len(items))
		for i, it := range items {
			marker := "-"
			if ordered {
				marker = fmt.Sprintf("%d.", i+1)
			}
			lines = append(lines, marker+" "+stripTags(it[1]))
		}
		return strings.Join(lines, "\n")
	case "core/quote":
		lines := strings.Split(PlainText(b), "\n")
		for i := range lines {
			lines[i] = "> " + lines[i]
		}
		return strings.Join(lines, "\n")
	case "core/code":
		lang, _ := b.Attributes["language"].(string)
		return "```" + lang + "\n" + stripTags(b.InnerHTML) + "\n```"
	case "core/separator":
		return "---"
	case "core/image":
		url, _ := b.Attributes["url"].(string)
		alt, _ := b.Attributes["alt"].(string)
		return "![" + alt + "](" + url + ")"
	case ReusableBlockName:
		ref := fmt.Sprint(b.Attributes["ref"])
		return "_(reusable block " + ref + ")_"
	}
	if len(b.InnerBlocks) > 0 {
		inner := Markdown(b.InnerBlocks)
		if own := stripTags(b.InnerHTML); own != "" {
			return own + "\n\n" + inner
		}
		return inner
	}
	return stripTags(b.InnerHTML)
}
