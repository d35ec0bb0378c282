package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"reblock-cli/internal/blocks"
	"reblock-cli/internal/model"
	"reblock-cli/internal/perm"
	"reblock-cli/internal/store"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newReusableCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reusable",
		Aliases: []string{"rb"},
		Short:   "Manage reusable blocks",
	}

	cmd.AddCommand(newReusableListCmd(app))
	cmd.AddCommand(newReusableShowCmd(app))
	cmd.AddCommand(newReusableCreateCmd(app))
	cmd.AddCommand(newReusableUpdateCmd(app))
	cmd.AddCommand(newReusableDeleteCmd(app))
	cmd.AddCommand(newReusableImportCmd(app))
	cmd.AddCommand(newReusableExportCmd(app))

	return cmd
}

// readContent resolves block content from --content or --file ("-" reads stdin).
func readContent(cmd *cobra.Command, content, file string) (string, bool, error) {
	if content != "" && file != "" {
		return "", false, errors.New("use either --content or --file")
	}
	if content != "" {
		return content, true, nil
	}
	if file == "" {
		return "", false, nil
	}
	var b []byte
	var err error
	if file == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(file)
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

// normalizeContent accepts block markup as-is and converts anything else
// (Markdown, plain text) into blocks.
func normalizeContent(raw string) string {
	return blocks.Serialize(blocks.RawHandler(raw))
}

func newReusableListCmd(app *App) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reusable blocks (by title)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			rbs, err := s.ListReusableBlocks(context.Background())
			if err != nil {
				return writeErr(cmd, err)
			}
			q := strings.ToLower(strings.TrimSpace(query))
			out := make([]model.ReusableBlock, 0, len(rbs))
			for _, rb := range rbs {
				if q != "" && !strings.Contains(strings.ToLower(rb.Title), q) {
					continue
				}
				out = append(out, rb)
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "Only blocks whose title contains this text")
	return cmd
}

func newReusableShowCmd(app *App) *cobra.Command {
	var withBlocks bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a reusable block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			rb, err := s.GetReusableBlock(context.Background(), args[0])
			if err != nil {
				var nf store.NotFoundError
				if errors.As(err, &nf) {
					return writeErr(cmd, errNotFound("reusable block", args[0]))
				}
				return writeErr(cmd, err)
			}
			data := map[string]any{"reusableBlock": rb}
			if withBlocks {
				data["blocks"] = blocks.StripClientIDs(blocks.Parse(rb.Content))
			}
			return writeOut(cmd, app, map[string]any{"data": data})
		},
	}
	cmd.Flags().BoolVar(&withBlocks, "blocks", false, "Include the parsed block tree")
	return cmd
}

func newReusableCreateCmd(app *App) *cobra.Command {
	var title, content, file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a reusable block",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			actorID, err := currentActorID(app, db)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !perm.CanUser(db, perm.ActionCreate, actorID, nil) {
				return writeErr(cmd, errPermission(actorID, perm.ActionCreate, ""))
			}
			if strings.TrimSpace(title) == "" {
				return writeErr(cmd, errors.New("missing --title"))
			}
			raw, _, err := readContent(cmd, content, file)
			if err != nil {
				return writeErr(cmd, err)
			}

			id, err := s.NewID(ctx, "rb")
			if err != nil {
				return writeErr(cmd, err)
			}
			rb, err := s.PutReusableBlock(ctx, model.ReusableBlock{
				ID:           id,
				Title:        strings.TrimSpace(title),
				Content:      normalizeContent(raw),
				OwnerActorID: actorID,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.AppendEventContext(ctx, actorID, "reusable_block.create", rb.ID, map[string]any{"title": rb.Title}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": rb})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&content, "content", "", "Block markup or Markdown")
	cmd.Flags().StringVar(&file, "file", "", "Read content from a file (- for stdin)")
	return cmd
}

func newReusableUpdateCmd(app *App) *cobra.Command {
	var title, content, file string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a reusable block's title and/or content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			actorID, err := currentActorID(app, db)
			if err != nil {
				return writeErr(cmd, err)
			}
			rb, err := s.GetReusableBlock(ctx, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if !perm.CanUser(db, perm.ActionUpdate, actorID, &rb) {
				return writeErr(cmd, errPermission(actorID, perm.ActionUpdate, rb.ID))
			}

			raw, hasContent, err := readContent(cmd, content, file)
			if err != nil {
				return writeErr(cmd, err)
			}
			titleSet := cmd.Flags().Changed("title")
			if !titleSet && !hasContent {
				return writeErr(cmd, errors.New("nothing to update (pass --title, --content or --file)"))
			}
			if titleSet {
				if strings.TrimSpace(title) == "" {
					return writeErr(cmd, errors.New("--title cannot be empty"))
				}
				rb.Title = strings.TrimSpace(title)
			}
			if hasContent {
				rb.Content = normalizeContent(raw)
			}

			rb, err = s.PutReusableBlock(ctx, rb)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.AppendEventContext(ctx, actorID, "reusable_block.update", rb.ID, map[string]any{"title": rb.Title}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": rb})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New block markup or Markdown")
	cmd.Flags().StringVar(&file, "file", "", "Read new content from a file (- for stdin)")
	return cmd
}

func newReusableDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a reusable block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			actorID, err := currentActorID(app, db)
			if err != nil {
				return writeErr(cmd, err)
			}
			rb, err := s.GetReusableBlock(ctx, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if !perm.CanUser(db, perm.ActionDelete, actorID, &rb) {
				return writeErr(cmd, errPermission(actorID, perm.ActionDelete, rb.ID))
			}
			if err := s.DeleteReusableBlock(ctx, rb.ID); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.AppendEventContext(ctx, actorID, "reusable_block.delete", rb.ID, nil); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": rb.ID, "deleted": true}})
		},
	}
	return cmd
}

// exportedBlock is the YAML shape used by import/export.
type exportedBlock struct {
	ID      string `yaml:"id,omitempty"`
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
	Owner   string `yaml:"owner,omitempty"`
}

func newReusableExportCmd(app *App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export reusable blocks as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			rbs, err := s.ListReusableBlocks(context.Background())
			if err != nil {
				return writeErr(cmd, err)
			}
			docs := make([]exportedBlock, 0, len(rbs))
			for _, rb := range rbs {
				docs = append(docs, exportedBlock{ID: rb.ID, Title: rb.Title, Content: rb.Content, Owner: rb.OwnerActorID})
			}

			var buf bytes.Buffer
			enc := yaml.NewEncoder(&buf)
			enc.SetIndent(2)
			if err := enc.Encode(docs); err != nil {
				return writeErr(cmd, err)
			}
			if err := enc.Close(); err != nil {
				return writeErr(cmd, err)
			}

			if out == "" || out == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"path": out, "count": len(docs)}})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Write YAML to this file instead of stdout")
	return cmd
}

func newReusableImportCmd(app *App) *cobra.Command {
	var keepIDs bool

	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import reusable blocks from YAML (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			actorID, err := currentActorID(app, db)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !perm.CanUser(db, perm.ActionCreate, actorID, nil) {
				return writeErr(cmd, errPermission(actorID, perm.ActionCreate, ""))
			}

			raw, _, err := readContent(cmd, "", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var docs []exportedBlock
			if err := yaml.Unmarshal([]byte(raw), &docs); err != nil {
				return writeErr(cmd, fmt.Errorf("parse %s: %w", args[0], err))
			}

			imported := make([]model.ReusableBlock, 0, len(docs))
			for i, d := range docs {
				if strings.TrimSpace(d.Title) == "" {
					return writeErr(cmd, fmt.Errorf("entry %d: missing title", i))
				}
				typ := "reusable_block.create"
				rb := model.ReusableBlock{Title: strings.TrimSpace(d.Title), Content: normalizeContent(d.Content), OwnerActorID: actorID}
				if keepIDs && strings.TrimSpace(d.ID) != "" {
					rb.ID = strings.TrimSpace(d.ID)
					if existing, err := s.GetReusableBlock(ctx, rb.ID); err == nil {
						if !perm.CanUser(db, perm.ActionUpdate, actorID, &existing) {
							return writeErr(cmd, errPermission(actorID, perm.ActionUpdate, rb.ID))
						}
						rb.OwnerActorID = existing.OwnerActorID
						rb.CreatedAt = existing.CreatedAt
						typ = "reusable_block.update"
					}
				} else {
					if rb.ID, err = s.NewID(ctx, "rb"); err != nil {
						return writeErr(cmd, err)
					}
				}
				saved, err := s.PutReusableBlock(ctx, rb)
				if err != nil {
					return writeErr(cmd, err)
				}
				if err := s.AppendEventContext(ctx, actorID, typ, saved.ID, map[string]any{"title": saved.Title, "import": true}); err != nil {
					return writeErr(cmd, err)
				}
				imported = append(imported, saved)
			}
			return writeOut(cmd, app, map[string]any{"data": imported})
		},
	}
	cmd.Flags().BoolVar(&keepIDs, "keep-ids", false, "Reuse ids from the file (updates existing blocks)")
	return cmd
}
