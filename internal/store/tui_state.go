package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const tuiStateFileName = "tui_state.json"

// TUIState stores small, user-facing UI state for restoring the last screen on relaunch.
//
// This file lives inside the workspace directory so state is naturally scoped per workspace.
// It is best effort: callers should tolerate missing/invalid data.
type TUIState struct {
	Version int `json:"version"`

	// OpenDocumentID is the document shown on launch.
	OpenDocumentID string `json:"openDocumentId,omitempty"`

	// InserterTab is one of: blocks|reusable
	InserterTab string `json:"inserterTab,omitempty"`

	// RecentReusableIDs stores recently inserted reusable block ids, newest first.
	RecentReusableIDs []string `json:"recentReusableIds,omitempty"`
}

const maxRecentReusable = 10

// TouchRecentReusable moves id to the front of the recent list.
func (st *TUIState) TouchRecentReusable(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	out := []string{id}
	for _, x := range st.RecentReusableIDs {
		if x != id && len(out) < maxRecentReusable {
			out = append(out, x)
		}
	}
	st.RecentReusableIDs = out
}

func (s Store) tuiStatePath() string {
	return filepath.Join(s.Dir, tuiStateFileName)
}

func (s Store) LoadTUIState() (*TUIState, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return &TUIState{Version: 1}, nil
	}
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.tuiStatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &TUIState{Version: 1}, nil
		}
		return nil, err
	}
	var st TUIState
	if err := json.Unmarshal(b, &st); err != nil {
		// Corrupted state is treated as missing.
		return &TUIState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func (s Store) SaveTUIState(st *TUIState) error {
	if st == nil {
		return nil
	}
	if strings.TrimSpace(s.Dir) == "" {
		return nil
	}
	if err := s.Ensure(); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(s.Dir, tuiStateFileName+".*.tmp", s.tuiStatePath(), b, 0o644)
}
