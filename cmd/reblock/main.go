package main

import (
	"os"
	"strings"

	"reblock-cli/internal/cli"
)

func isReusableID(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "rb-") {
		return false
	}
	// Permissive: ids are generated, but users paste variants.
	return len(s) > len("rb-")
}

func rewriteDirectReusableLookupArgs(argv []string) []string {
	// Convenience: `reblock <rb-id>` works like `reblock reusable show <rb-id>`.
	//
	// Cobra treats the first non-flag token as a subcommand, so argv is rewritten before
	// parsing. Persistent flags often come first (`reblock --dir ... <rb-id>`), so this
	// looks for the first positional token rather than argv[1].
	if len(argv) < 2 {
		return argv
	}

	// Unknown flags are skipped without consuming a value so the id is never eaten.
	valueFlags := map[string]bool{
		"--dir":       true,
		"--workspace": true,
		"--actor":     true,
		"--format":    true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
	}

	insertShow := func(at int) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:at]...)
		out = append(out, "reusable", "show")
		out = append(out, argv[at:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isReusableID(argv[i+1]) {
				return insertShow(i + 1)
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			continue
		}

		if isReusableID(a) {
			return insertShow(i)
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteDirectReusableLookupArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
