package tui

import "testing"

func TestGlyphs_FromEnv(t *testing.T) {
	t.Setenv("REBLOCK_TUI_GLYPHS", "")
	setGlyphs(glyphSetUnicode)
	applyGlyphPreference("")
	if got := glyphs(); got != glyphSetUnicode {
		t.Fatalf("expected unicode glyphs by default; got %v", got)
	}

	t.Setenv("REBLOCK_TUI_GLYPHS", "ascii")
	applyGlyphPreference("")
	if got := glyphs(); got != glyphSetASCII {
		t.Fatalf("expected ascii glyphs; got %v", got)
	}
	if blockIcon("¶") != "#" || blockIcon("H") != "H" {
		t.Fatalf("ascii glyphs should replace non-ascii icons")
	}

	// The environment wins over the config file.
	t.Setenv("REBLOCK_TUI_GLYPHS", "unicode")
	applyGlyphPreference("ascii")
	if got := glyphs(); got != glyphSetUnicode {
		t.Fatalf("expected unicode glyphs; got %v", got)
	}

	t.Setenv("REBLOCK_TUI_GLYPHS", "")
	applyGlyphPreference("ascii")
	if got := glyphs(); got != glyphSetASCII {
		t.Fatalf("expected config glyphs; got %v", got)
	}

	// Unknown values are ignored (keep current).
	t.Setenv("REBLOCK_TUI_GLYPHS", "bogus")
	applyGlyphPreference("")
	if got := glyphs(); got != glyphSetASCII {
		t.Fatalf("expected unknown to be ignored; got %v", got)
	}
	setGlyphs(glyphSetUnicode)
}
