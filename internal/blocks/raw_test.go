package blocks

import (
	"strings"
	"testing"
)

func TestRawHandler_Markdown(t *testing.T) {
	got := RawHandler("# Title\n\nSome *text*.\n\n1. one\n2. two\n\n```go\nx := 1\n```\n\n---\n\n![logo](logo.png)")

	wantNames := []string{"core/heading", "core/paragraph", "core/list", "core/code", "core/separator", "core/image"}
	if len(got) != len(wantNames) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(wantNames), len(got), got)
	}
	for i, n := range wantNames {
		if got[i].Name != n {
			t.Fatalf("block %d: expected %s, got %s", i, n, got[i].Name)
		}
		if got[i].ClientID == "" {
			t.Fatalf("block %d: expected client id", i)
		}
	}

	if lvl, _ := got[0].Attributes["level"].(float64); lvl != 1 {
		t.Fatalf("expected heading level 1, got %v", got[0].Attributes["level"])
	}
	if got[1].InnerHTML != "<p>Some <em>text</em>.</p>" {
		t.Fatalf("unexpected paragraph html: %q", got[1].InnerHTML)
	}
	if ordered, _ := got[2].Attributes["ordered"].(bool); !ordered {
		t.Fatalf("expected ordered list")
	}
	if lang, _ := got[3].Attributes["language"].(string); lang != "go" {
		t.Fatalf("expected code language go, got %v", got[3].Attributes)
	}
	if url, _ := got[5].Attributes["url"].(string); url != "logo.png" {
		t.Fatalf("expected image url, got %v", got[5].Attributes)
	}
	if alt, _ := got[5].Attributes["alt"].(string); alt != "logo" {
		t.Fatalf("expected image alt, got %v", got[5].Attributes)
	}
}

func TestRawHandler_BlockMarkupIsParsed(t *testing.T) {
	got := RawHandler("<!-- wp:quote -->\n<blockquote>hi</blockquote>\n<!-- /wp:quote -->")
	if len(got) != 1 || got[0].Name != "core/quote" {
		t.Fatalf("expected one quote block, got %+v", got)
	}
	if got[0].ClientID == "" {
		t.Fatalf("expected client id on parsed paste")
	}
}

func TestRawHandler_Empty(t *testing.T) {
	if got := RawHandler(" \r\n "); got != nil {
		t.Fatalf("expected nil for blank input, got %+v", got)
	}
}

func TestMarkdown_Preview(t *testing.T) {
	blocks := Parse(strings.Join([]string{
		`<!-- wp:heading {"level":3} --><h3>Intro &amp; more</h3><!-- /wp:heading -->`,
		`<!-- wp:list --><ul><li>a</li><li>b</li></ul><!-- /wp:list -->`,
		`<!-- wp:block {"ref":"rb-1"} /-->`,
	}, "\n"))

	got := Markdown(blocks)
	want := "### Intro & more\n\n- a\n- b\n\n_(reusable block rb-1)_"
	if got != want {
		t.Fatalf("unexpected markdown:\n%s\nwant:\n%s", got, want)
	}
}
