package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestSaveConfig_ConcurrentWriters_DoesNotCorruptConfig(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("REBLOCK_CONFIG_DIR", cfgDir)

	seed := &GlobalConfig{
		CurrentWorkspace: "seed",
		Workspaces: map[string]WorkspaceRef{
			"seed": {Path: "/tmp/seed"},
		},
	}
	if err := SaveConfig(seed); err != nil {
		t.Fatalf("SaveConfig(seed): %v", err)
	}

	const n = 32
	errCh := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			cfg, err := LoadConfig()
			if err != nil {
				errCh <- err
				return
			}
			if cfg.Workspaces == nil {
				cfg.Workspaces = map[string]WorkspaceRef{}
			}
			cfg.Workspaces[fmt.Sprintf("ws-%d", i)] = WorkspaceRef{Path: fmt.Sprintf("/tmp/ws-%d", i)}
			cfg.TUI = &TUIConfig{MinColumns: i%5 + 1}

			if err := SaveConfig(cfg); err != nil {
				errCh <- err
			}
		}(i)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent SaveConfig: %v", err)
	}
	if t.Failed() {
		return
	}

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config.json: %v", err)
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("config.json corrupted/unparseable: %v\nraw:\n%s", err, string(raw))
	}

	ents, err := os.ReadDir(cfgDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, "config.json.") && strings.HasSuffix(name, ".tmp") {
			t.Fatalf("leftover temp file: %s", name)
		}
	}

	if bak, err := os.ReadFile(path + ".bak"); err == nil && len(bak) > 0 {
		var bakCfg GlobalConfig
		if err := json.Unmarshal(bak, &bakCfg); err != nil {
			t.Fatalf("config.json.bak corrupted/unparseable: %v\nraw:\n%s", err, string(bak))
		}
	}
}

func TestWorkspaceDir_UsesRegistryWhenPresent(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("REBLOCK_CONFIG_DIR", cfgDir)

	wsPath := filepath.Join(t.TempDir(), "my-workspace")
	if err := SaveConfig(&GlobalConfig{Workspaces: map[string]WorkspaceRef{"team": {Path: wsPath}}}); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	dir, err := WorkspaceDir("team")
	if err != nil {
		t.Fatalf("WorkspaceDir: %v", err)
	}
	if dir != wsPath {
		t.Fatalf("expected %q, got %q", wsPath, dir)
	}

	dir, err = WorkspaceDir("default")
	if err != nil {
		t.Fatalf("WorkspaceDir(default): %v", err)
	}
	if want := filepath.Join(cfgDir, "workspaces", "default"); dir != want {
		t.Fatalf("expected %q, got %q", want, dir)
	}

	if _, err := WorkspaceDir("../escape"); err == nil {
		t.Fatalf("expected invalid workspace name to fail")
	}
}

func TestListWorkspaces_IncludesRegistryAndDirs(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("REBLOCK_CONFIG_DIR", cfgDir)

	if err := os.MkdirAll(filepath.Join(cfgDir, "workspaces", "default"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := SaveConfig(&GlobalConfig{Workspaces: map[string]WorkspaceRef{"team": {Path: "/tmp/team"}}}); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	ws, err := ListWorkspaces()
	if err != nil {
		t.Fatalf("ListWorkspaces: %v", err)
	}
	if len(ws) != 2 || ws[0] != "default" || ws[1] != "team" {
		t.Fatalf("unexpected workspaces: %v", ws)
	}
}

func TestGlobalConfig_MinColumns(t *testing.T) {
	var nilCfg *GlobalConfig
	if nilCfg.MinColumns() != 0 {
		t.Fatalf("nil config must report unset")
	}
	cfg := &GlobalConfig{TUI: &TUIConfig{MinColumns: 4}}
	if cfg.MinColumns() != 4 {
		t.Fatalf("expected 4, got %d", cfg.MinColumns())
	}
}
