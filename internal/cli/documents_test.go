package cli

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestDocumentsCreateListShow(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	mustRunJSON(t, "--dir", dir, "init")
	createHuman(t, dir, "Writer", true)

	created := dataMap(t, mustRunJSON(t, "--dir", dir, "documents", "create", "--title", "Home", "--content", "Hello there"))
	docID, _ := created["id"].(string)
	if !strings.HasPrefix(docID, "doc-") {
		t.Fatalf("unexpected document id %q", docID)
	}

	list := mustRunJSON(t, "--dir", dir, "doc", "list")
	if xs, _ := list["data"].([]any); len(xs) != 1 {
		t.Fatalf("expected 1 document, got %#v", list["data"])
	}

	show := dataMap(t, mustRunJSON(t, "--dir", dir, "documents", "show", docID, "--blocks"))
	tree, _ := show["blocks"].([]any)
	if len(tree) != 1 || tree[0].(map[string]any)["name"] != "core/paragraph" {
		t.Fatalf("unexpected block tree %#v", show["blocks"])
	}

	_, stderr, err := runCLI(t, []string{"--dir", dir, "documents", "show", "doc-missing"})
	if err == nil {
		t.Fatalf("expected show of an unknown document to fail")
	}
	if !strings.Contains(string(stderr), "not found") {
		t.Fatalf("expected not found error, got:\n%s", string(stderr))
	}
}

func TestPublishDocumentInlinesReusableBlocks(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	out := t.TempDir()
	mustRunJSON(t, "--dir", dir, "init")
	createHuman(t, dir, "Writer", true)

	rb := dataMap(t, mustRunJSON(t, "--dir", dir, "reusable", "create", "--title", "Footer", "--content", "Thanks for reading"))
	rbID := rb["id"].(string)
	content := "<!-- wp:paragraph -->\n<p>Intro</p>\n<!-- /wp:paragraph -->\n\n" +
		`<!-- wp:block {"ref":"` + rbID + `"} /-->` + "\n\n" +
		`<!-- wp:block {"ref":"rb-gone"} /-->`
	doc := dataMap(t, mustRunJSON(t, "--dir", dir, "documents", "create", "--title", "Home", "--content", content))
	docID := doc["id"].(string)

	res := dataMap(t, mustRunJSON(t, "--dir", dir, "publish", "document", docID, "--to", out))
	missing, _ := res["missing"].([]any)
	if len(missing) != 1 || missing[0] != "rb-gone" {
		t.Fatalf("expected rb-gone to be reported missing, got %#v", res["missing"])
	}

	b, err := os.ReadFile(filepath.Join(out, "documents", docID+".md"))
	if err != nil {
		t.Fatalf("read published file: %v", err)
	}
	md := string(b)
	if !strings.HasPrefix(md, "# Home") || !strings.Contains(md, "Intro") || !strings.Contains(md, "Thanks for reading") {
		t.Fatalf("unexpected published markdown:\n%s", md)
	}

	dataMap(t, mustRunJSON(t, "--dir", dir, "publish", "reusable", rbID, "--to", out))
	if _, err := os.Stat(filepath.Join(out, "reusable", rbID+".md")); err != nil {
		t.Fatalf("expected published reusable block: %v", err)
	}

	if _, _, err := runCLI(t, []string{"--dir", dir, "publish", "document", docID}); err == nil {
		t.Fatalf("expected publish without --to to fail")
	}
}

func TestPublishCommitsIntoGitRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	isolateEnv(t)
	dir := t.TempDir()
	repo := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
		{"config", "commit.gpgsign", "false"},
	} {
		c := exec.Command("git", args...)
		c.Dir = repo
		if out, err := c.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	mustRunJSON(t, "--dir", dir, "init")
	createHuman(t, dir, "Writer", true)
	rbID := dataMap(t, mustRunJSON(t, "--dir", dir, "reusable", "create", "--title", "Footer", "--content", "Bye"))["id"].(string)

	res := dataMap(t, mustRunJSON(t, "--dir", dir, "publish", "reusable", rbID, "--to", repo, "--commit"))
	if res["committed"] != true {
		t.Fatalf("expected a commit, got %#v", res)
	}
	log, err := exec.Command("git", "-C", repo, "log", "-1", "--format=%s").Output()
	if err != nil {
		t.Fatalf("git log: %v", err)
	}
	if !strings.Contains(string(log), "publish reusable "+rbID) {
		t.Fatalf("unexpected commit subject %q", log)
	}

	res = dataMap(t, mustRunJSON(t, "--dir", dir, "publish", "reusable", rbID, "--to", repo, "--commit"))
	if res["committed"] != false {
		t.Fatalf("expected republishing unchanged content to be a no-op, got %#v", res)
	}
}

func TestDocsCommand(t *testing.T) {
	isolateEnv(t)

	topics := dataMap(t, mustRunJSON(t, "docs"))
	xs, _ := topics["topics"].([]any)
	if len(xs) == 0 {
		t.Fatalf("expected topics, got %#v", topics)
	}

	stdout, _, err := runCLI(t, []string{"docs", "reusable-blocks", "--raw"})
	if err != nil {
		t.Fatalf("docs --raw: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "# Reusable blocks") {
		t.Fatalf("expected raw markdown, got:\n%s", string(stdout))
	}
	if json.Valid(stdout) {
		t.Fatalf("expected raw output to not be JSON")
	}

	if _, _, err := runCLI(t, []string{"docs", "nope"}); err == nil {
		t.Fatalf("expected unknown topic to fail")
	}
}
