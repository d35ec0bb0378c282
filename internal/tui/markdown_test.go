package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	xansi "github.com/charmbracelet/x/ansi"
)

func TestMarkdownStyle_RespectsTUITheme(t *testing.T) {
	t.Setenv("REBLOCK_TUI_MD_STYLE", "")
	t.Setenv("COLORFGBG", "")
	t.Setenv("REBLOCK_TUI_DARKBG", "")

	t.Setenv("REBLOCK_TUI_THEME", "light")
	if got := markdownStyle(); got != "light" {
		t.Fatalf("expected light; got %q", got)
	}

	t.Setenv("REBLOCK_TUI_THEME", "dark")
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark; got %q", got)
	}
}

func TestMarkdownStyle_MDStyleOverridesTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("REBLOCK_TUI_DARKBG", "")
	t.Setenv("REBLOCK_TUI_THEME", "light")

	t.Setenv("REBLOCK_TUI_MD_STYLE", "dark")
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark; got %q", got)
	}
}

func TestMarkdownStyleConfig_DoesNotOverrideLinkStyles(t *testing.T) {
	for _, tc := range []struct {
		name string
		want ansi.StyleConfig
	}{
		{"dark", styles.DarkStyleConfig},
		{"light", styles.LightStyleConfig},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := markdownStyleConfig(tc.name)
			if strPtrValue(got.Link.Color) != strPtrValue(tc.want.Link.Color) {
				t.Fatalf("Link.Color: got %q want %q", strPtrValue(got.Link.Color), strPtrValue(tc.want.Link.Color))
			}
			if strPtrValue(got.LinkText.Color) != strPtrValue(tc.want.LinkText.Color) {
				t.Fatalf("LinkText.Color: got %q want %q", strPtrValue(got.LinkText.Color), strPtrValue(tc.want.LinkText.Color))
			}
		})
	}
}

func TestRenderMarkdown_WrapsToWidth(t *testing.T) {
	t.Setenv("REBLOCK_TUI_MD_STYLE", "dark")

	if got := renderMarkdown("   ", 40); got != "" {
		t.Fatalf("expected empty output for blank markdown; got %q", got)
	}

	out := renderMarkdown("## Footer\n\n"+strings.Repeat("word ", 40), 30)
	plain := xansi.Strip(out)
	if !strings.Contains(plain, "Footer") {
		t.Fatalf("expected heading text; got %q", plain)
	}
	for _, ln := range strings.Split(out, "\n") {
		if w := xansi.StringWidth(ln); w > 30 {
			t.Fatalf("line wider than wrap width (%d): %q", w, ln)
		}
	}
}

func strPtrValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
