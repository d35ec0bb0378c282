package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/truncate"
)

// normalizePane forces s to exactly width columns (ANSI-aware) and height lines, so
// panes joined with lipgloss keep a stable shape. Lines that are too wide end in an
// ellipsis.
func normalizePane(s string, width, height int) string {
	if width < 0 {
		width = 0
	}
	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	for i, ln := range lines {
		lines[i] = fitCells(ln, width)
	}
	return strings.Join(lines, "\n")
}

// fitCells truncates or pads one line to width cells.
func fitCells(ln string, width int) string {
	if width <= 0 {
		return ""
	}
	// Bound the work on huge lines before measuring them.
	if len(ln) > 8192 {
		ln = xansi.Cut(ln, 0, width+1)
	}
	w := xansi.StringWidth(ln)
	if w > width {
		tail := glyphEllipsis()
		if xansi.StringWidth(tail) >= width {
			tail = ""
		}
		ln = truncate.StringWithTail(ln, uint(width), tail)
		w = xansi.StringWidth(ln)
	}
	if w < width {
		ln += strings.Repeat(" ", width-w)
	}
	return ln
}
