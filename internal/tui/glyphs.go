package tui

import (
	"os"
	"strings"
	"sync"
)

// Terminals can't change the user's font, but some fonts render box and arrow
// glyphs poorly; an ASCII set is available for those.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

// applyGlyphPreference reads REBLOCK_TUI_GLYPHS, falling back to the config value.
// Unknown values are ignored.
func applyGlyphPreference(configured string) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("REBLOCK_TUI_GLYPHS")))
	if v == "" {
		v = strings.ToLower(strings.TrimSpace(configured))
	}
	switch v {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	defer glyphsMu.RUnlock()
	return currentGlyphs
}

func pick(unicode, ascii string) string {
	if glyphs() == glyphSetASCII {
		return ascii
	}
	return unicode
}

func glyphCursor() string { return pick("▸", ">") }

func glyphInsertionPoint() string { return pick("┈┈ insert here ┈┈", "-- insert here --") }

func glyphReusable() string { return pick("⟳", "@") }

func glyphHRule() string { return pick("─", "-") }

func glyphEllipsis() string { return pick("…", "...") }

// blockIcon maps a registry icon to the active glyph set.
func blockIcon(icon string) string {
	if glyphs() != glyphSetASCII {
		return icon
	}
	for _, r := range icon {
		if r > 0x7f {
			return "#"
		}
	}
	return icon
}
