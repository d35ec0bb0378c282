package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// CommitPaths stages exactly paths and commits them.
//
// Returns committed=false when dir is not inside a repo or nothing changed.
// Other staged changes in the repo are left out of the commit.
func CommitPaths(ctx context.Context, dir string, paths []string, message string) (committed bool, err error) {
	dir = filepath.Clean(dir)

	st, err := GetStatus(ctx, dir)
	if err != nil {
		return false, err
	}
	if !st.IsRepo {
		return false, nil
	}
	if st.Unmerged || st.InProgress {
		return false, errors.New("git repo has an in-progress merge/rebase; resolve first")
	}
	if len(paths) == 0 {
		return false, nil
	}

	rels, err := relativeTo(st.Root, paths)
	if err != nil {
		return false, err
	}

	args := append([]string{"add", "--"}, rels...)
	if _, err := git(ctx, st.Root, args...); err != nil {
		return false, err
	}

	args = append([]string{"diff", "--cached", "--name-only", "--"}, rels...)
	out, err := git(ctx, st.Root, args...)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(out) == "" {
		return false, nil
	}

	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = fmt.Sprintf("reblock: publish (%s)", time.Now().UTC().Format(time.RFC3339))
	}

	args = append([]string{"commit", "-m", msg, "--"}, rels...)
	if _, err := git(ctx, st.Root, args...); err != nil {
		return false, err
	}
	return true, nil
}

func relativeTo(root string, paths []string) ([]string, error) {
	// On macOS, temp dirs may involve symlinks like /var -> /private/var. Git
	// reports a canonicalized root, so normalize both sides before Rel().
	if v, err := filepath.EvalSymlinks(root); err == nil {
		root = v
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		if v, err := filepath.EvalSymlinks(abs); err == nil {
			abs = v
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return nil, err
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("path is outside repository: %s", p)
		}
		out = append(out, rel)
	}
	return out, nil
}

// PublishMessage summarizes a publish run for a commit subject.
func PublishMessage(kind, id string, written int) string {
	noun := "file"
	if written != 1 {
		noun = "files"
	}
	return fmt.Sprintf("reblock: publish %s %s (%d %s)", kind, id, written, noun)
}
