package tui

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// debugLogf appends one line to REBLOCK_TUI_DEBUG_LOG. The TUI owns the terminal, so
// diagnostics never go to stdout/stderr.
func (m *appModel) debugLogf(format string, args ...any) {
	if !m.debugEnabled || strings.TrimSpace(m.debugLogPath) == "" {
		return
	}
	f, err := os.OpenFile(m.debugLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %s\n", time.Now().Format(time.RFC3339Nano), fmt.Sprintf(format, args...))
}
