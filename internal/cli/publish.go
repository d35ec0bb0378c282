package cli

import (
	"context"
	"errors"
	"strings"

	"reblock-cli/internal/gitrepo"
	"reblock-cli/internal/publish"

	"github.com/spf13/cobra"
)

func newPublishCmd(app *App) *cobra.Command {
	var toDir string
	var keepRefs bool
	var overwrite bool
	var commit bool
	var push bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Export derived Markdown artifacts (not canonical)",
	}

	run := func(kind string, write func(ctx context.Context, id string, opt publish.WriteOptions) (publish.WriteResult, error)) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(toDir) == "" {
				return writeErr(cmd, errors.New("missing --to"))
			}
			ctx := context.Background()
			res, err := write(ctx, args[0], publish.WriteOptions{
				KeepReferences: keepRefs,
				Overwrite:      overwrite,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			data := map[string]any{"written": res.Written}
			if len(res.Missing) > 0 {
				data["missing"] = res.Missing
			}
			if commit || push {
				committed, err := gitrepo.CommitPaths(ctx, toDir, res.Written, gitrepo.PublishMessage(kind, args[0], len(res.Written)))
				if err != nil {
					return writeErr(cmd, err)
				}
				data["committed"] = committed
				if push && committed {
					if err := gitrepo.Push(ctx, toDir); err != nil {
						if gitrepo.IsNonFastForwardPushErr(err) {
							return writeErr(cmd, errors.New("push rejected (remote has new commits); pull and publish again"))
						}
						return writeErr(cmd, err)
					}
					data["pushed"] = true
				}
			}
			return writeOut(cmd, app, map[string]any{"data": data})
		}
	}

	documentCmd := &cobra.Command{
		Use:   "document <document-id>",
		Short: "Publish a document as Markdown, with reusable blocks inlined",
		Args:  cobra.ExactArgs(1),
		RunE: run("document", func(ctx context.Context, id string, opt publish.WriteOptions) (publish.WriteResult, error) {
			_, s, err := loadDB(app)
			if err != nil {
				return publish.WriteResult{}, err
			}
			return publish.WriteDocument(ctx, s, id, toDir, opt)
		}),
	}
	reusableCmd := &cobra.Command{
		Use:   "reusable <id>",
		Short: "Publish a reusable block as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: run("reusable", func(ctx context.Context, id string, opt publish.WriteOptions) (publish.WriteResult, error) {
			_, s, err := loadDB(app)
			if err != nil {
				return publish.WriteResult{}, err
			}
			return publish.WriteReusable(ctx, s, id, toDir, opt)
		}),
	}

	cmd.PersistentFlags().StringVar(&toDir, "to", "", "Output directory")
	_ = cmd.MarkPersistentFlagRequired("to")
	cmd.PersistentFlags().BoolVar(&keepRefs, "keep-references", false, "Keep reusable block references instead of inlining them")
	cmd.PersistentFlags().BoolVar(&overwrite, "overwrite", true, "Overwrite existing files")

	cmd.PersistentFlags().BoolVar(&commit, "commit", false, "Commit the written files when --to is inside a git repo")
	cmd.PersistentFlags().BoolVar(&push, "push", false, "Push after committing (implies --commit)")

	cmd.AddCommand(documentCmd)
	cmd.AddCommand(reusableCmd)
	return cmd
}
