package tui

import (
	"context"
	"io"
	"log"
	"os"
	"strings"

	"reblock-cli/internal/docstore"
	"reblock-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// Run opens the block editor for the workspace at st.Dir as actorID.
func Run(st store.Store, actorID string) error {
	glyphPref, minCols := "", 0
	if cfg, err := store.LoadConfig(); err == nil && cfg != nil {
		if cfg.TUI != nil {
			glyphPref = cfg.TUI.Glyphs
		}
		minCols = cfg.MinColumns()
	}
	applyColorProfilePreference()
	applyThemePreference()
	applyGlyphPreference(glyphPref)

	logger := log.New(io.Discard, "", 0)
	if path := debugLogPathFromEnv(); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
			defer f.Close()
			logger = log.New(f, "docstore ", log.LstdFlags|log.Lmicroseconds)
		}
	}

	svc := docstore.New(st, docstore.WithActor(actorID), docstore.WithLogger(logger))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := svc.Watch(ctx); err != nil && ctx.Err() == nil {
			logger.Printf("watch: %v", err)
		}
	}()

	m, err := newAppModel(ctx, st, svc, actorID)
	if err != nil {
		return err
	}
	m.minColumns = minCols
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	cancel()
	svc.Wait()
	return err
}

// debugLogPathFromEnv returns REBLOCK_TUI_DEBUG_LOG when REBLOCK_TUI_DEBUG is set.
func debugLogPathFromEnv() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("REBLOCK_TUI_DEBUG"))) {
	case "", "0", "false", "no", "off":
		return ""
	}
	return strings.TrimSpace(os.Getenv("REBLOCK_TUI_DEBUG_LOG"))
}
