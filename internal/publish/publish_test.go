package publish

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reblock-cli/internal/blocks"
	"reblock-cli/internal/model"
	"reblock-cli/internal/store"
)

func para(text string) string {
	return "<!-- wp:paragraph -->\n<p>" + text + "</p>\n<!-- /wp:paragraph -->"
}

func ref(id string) string {
	return `<!-- wp:block {"ref":"` + id + `"} /-->`
}

func seed(t *testing.T) store.Store {
	t.Helper()
	st := store.Store{Dir: t.TempDir()}
	ctx := context.Background()
	for _, rb := range []model.ReusableBlock{
		{ID: "rb-footer", Title: "Footer", Content: para("Footer text") + "\n\n" + ref("rb-legal")},
		{ID: "rb-legal", Title: "Legal", Content: para("All rights reserved")},
		{ID: "rb-loop", Title: "Loop", Content: para("Looping") + "\n\n" + ref("rb-loop")},
	} {
		if _, err := st.PutReusableBlock(ctx, rb); err != nil {
			t.Fatalf("PutReusableBlock: %v", err)
		}
	}
	content := para("Hello") + "\n\n" + ref("rb-footer") + "\n\n" + ref("rb-gone")
	if _, err := st.PutDocument(ctx, model.Document{ID: "doc-home", Title: "Home", Content: content}); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}
	return st
}

func TestRenderDocumentMarkdown_InlinesNestedReferences(t *testing.T) {
	t.Parallel()
	st := seed(t)

	md, missing, err := RenderDocumentMarkdown(context.Background(), st, "doc-home", RenderOptions{})
	if err != nil {
		t.Fatalf("RenderDocumentMarkdown: %v", err)
	}
	for _, want := range []string{"# Home", "Hello", "Footer text", "All rights reserved"} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in:\n%s", want, md)
		}
	}
	if len(missing) != 1 || missing[0] != "rb-gone" {
		t.Fatalf("expected rb-gone to be reported missing; got %v", missing)
	}
	if !strings.Contains(md, "reusable block rb-gone") {
		t.Fatalf("expected the missing reference to stay visible; got:\n%s", md)
	}
}

func TestRenderDocumentMarkdown_KeepReferences(t *testing.T) {
	t.Parallel()
	st := seed(t)

	md, missing, err := RenderDocumentMarkdown(context.Background(), st, "doc-home", RenderOptions{KeepReferences: true})
	if err != nil {
		t.Fatalf("RenderDocumentMarkdown: %v", err)
	}
	if strings.Contains(md, "Footer text") || !strings.Contains(md, "reusable block rb-footer") {
		t.Fatalf("expected references to be kept; got:\n%s", md)
	}
	if len(missing) != 0 {
		t.Fatalf("expected no lookups when keeping references; got %v", missing)
	}
}

func TestResolveReferences_StopsOnSelfReference(t *testing.T) {
	t.Parallel()
	st := seed(t)

	res, err := ResolveReferences(context.Background(), st, blocks.Parse(ref("rb-loop")))
	if err != nil {
		t.Fatalf("ResolveReferences: %v", err)
	}
	if len(res.Blocks) != 2 {
		t.Fatalf("expected paragraph + kept reference; got %+v", res.Blocks)
	}
	if res.Blocks[1].Name != blocks.ReusableBlockName {
		t.Fatalf("expected the self reference to be kept; got %s", res.Blocks[1].Name)
	}
}

func TestWriteDocumentAndReusable(t *testing.T) {
	t.Parallel()
	st := seed(t)
	ctx := context.Background()
	out := t.TempDir()

	res, err := WriteDocument(ctx, st, "doc-home", out, WriteOptions{Overwrite: true})
	if err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	wantPath := filepath.Join(out, "documents", "doc-home.md")
	if len(res.Written) != 1 || res.Written[0] != wantPath {
		t.Fatalf("unexpected written paths: %v", res.Written)
	}
	b, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "All rights reserved") {
		t.Fatalf("unexpected file contents:\n%s", b)
	}

	if _, err := WriteDocument(ctx, st, "doc-home", out, WriteOptions{}); err == nil {
		t.Fatalf("expected an error when the file exists and overwrite is off")
	}

	res, err = WriteReusable(ctx, st, "rb-legal", out, WriteOptions{Overwrite: true})
	if err != nil {
		t.Fatalf("WriteReusable: %v", err)
	}
	if res.Written[0] != filepath.Join(out, "reusable", "rb-legal.md") {
		t.Fatalf("unexpected path %s", res.Written[0])
	}

	if _, err := WriteReusable(ctx, st, "rb-nope", out, WriteOptions{Overwrite: true}); err == nil {
		t.Fatalf("expected not found error")
	}
}
