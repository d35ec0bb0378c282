package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"reblock-cli/internal/store"
)

type WriteOptions struct {
	KeepReferences bool
	Overwrite      bool
}

type WriteResult struct {
	Written []string `json:"written"`
	// Missing lists reusable block ids that were referenced but not found.
	Missing []string `json:"missing,omitempty"`
}

// WriteDocument writes <toDir>/documents/<id>.md.
func WriteDocument(ctx context.Context, st store.Store, docID string, toDir string, opt WriteOptions) (WriteResult, error) {
	docID = strings.TrimSpace(docID)
	if docID == "" {
		return WriteResult{}, errors.New("missing document id")
	}
	md, missing, err := RenderDocumentMarkdown(ctx, st, docID, RenderOptions{KeepReferences: opt.KeepReferences})
	if err != nil {
		return WriteResult{}, err
	}
	return write(toDir, "documents", docID, md, missing, opt)
}

// WriteReusable writes <toDir>/reusable/<id>.md.
func WriteReusable(ctx context.Context, st store.Store, id string, toDir string, opt WriteOptions) (WriteResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return WriteResult{}, errors.New("missing reusable block id")
	}
	md, missing, err := RenderReusableMarkdown(ctx, st, id, RenderOptions{KeepReferences: opt.KeepReferences})
	if err != nil {
		return WriteResult{}, err
	}
	return write(toDir, "reusable", id, md, missing, opt)
}

func write(toDir, kind, id, md string, missing []string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	outDir := filepath.Join(filepath.Clean(toDir), kind)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return WriteResult{}, err
	}
	outPath := filepath.Join(outDir, id+".md")
	if err := writeFile(outPath, []byte(md), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: []string{outPath}, Missing: missing}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
