package cli

import (
	"context"
	"errors"

	"reblock-cli/internal/blocks"
	"reblock-cli/internal/model"
	"reblock-cli/internal/store"

	"github.com/spf13/cobra"
)

func newDocumentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"doc"},
		Short:   "Documents edited in the TUI",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List documents (most recently updated first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			docs, err := s.ListDocuments(context.Background())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": docs})
		},
	}

	var withBlocks bool
	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			d, err := s.GetDocument(context.Background(), args[0])
			if err != nil {
				var nf store.NotFoundError
				if errors.As(err, &nf) {
					return writeErr(cmd, errNotFound("document", args[0]))
				}
				return writeErr(cmd, err)
			}
			data := map[string]any{"document": d}
			if withBlocks {
				data["blocks"] = blocks.StripClientIDs(blocks.Parse(d.Content))
			}
			return writeOut(cmd, app, map[string]any{"data": data})
		},
	}
	showCmd.Flags().BoolVar(&withBlocks, "blocks", false, "Include the parsed block tree")

	var title, content, file string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a document",
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
			body, _, err := readContent(cmd, content, file)
			if err != nil {
				return writeErr(cmd, err)
			}
			id, err := s.NewID(ctx, "doc")
			if err != nil {
				return writeErr(cmd, err)
			}
			d, err := s.PutDocument(ctx, model.Document{ID: id, Title: title, Content: normalizeContent(body)})
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.AppendEventContext(ctx, actorID, "document.create", d.ID, map[string]any{"title": d.Title}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": d})
		},
	}
	createCmd.Flags().StringVar(&title, "title", "Untitled", "Document title")
	createCmd.Flags().StringVar(&content, "content", "", "Serialized block content")
	createCmd.Flags().StringVar(&file, "file", "", "Read content from a file (- for stdin)")

	cmd.AddCommand(listCmd)
	cmd.AddCommand(showCmd)
	cmd.AddCommand(createCmd)
	return cmd
}
