package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"reblock-cli/internal/format"
	"reblock-cli/internal/store"
	"reblock-cli/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	Workspace  string
	ActorID    string
	PrettyJSON bool
	Format     string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "reblock",
		Short:        "Reusable block library (local-first) CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive editor
  reblock

  # Scriptable commands
  reblock reusable list

  # Direct lookup (shortcut for: reblock reusable show <id>)
  reblock rb-k3j2x9qa

  # Inserter grid geometry for a container width
  reblock layout --width 600
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// An explicit --workspace beats a --dir inherited from REBLOCK_DIR.
		if cmd.Flags().Changed("workspace") && !cmd.Flags().Changed("dir") {
			app.Dir = ""
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("REBLOCK_DIR", ""), "Path to store dir (advanced: overrides workspace resolution)")
	cmd.PersistentFlags().StringVar(&app.Workspace, "workspace", envOr("REBLOCK_WORKSPACE", ""), "Workspace name (default: 'default')")
	cmd.PersistentFlags().StringVar(&app.ActorID, "actor", envOr("REBLOCK_ACTOR", ""), "Actor id (overrides the workspace's current actor)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("REBLOCK_FORMAT", "json"), "Output format (json|edn|yaml)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newIdentityCmd(app))
	cmd.AddCommand(newReusableCmd(app))
	cmd.AddCommand(newBlocksCmd(app))
	cmd.AddCommand(newLayoutCmd(app))
	cmd.AddCommand(newEventsCmd(app))
	cmd.AddCommand(newDocumentsCmd(app))
	cmd.AddCommand(newPublishCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newWebCmd(app))
	cmd.AddCommand(newWebTUICmd(app))

	return cmd
}

func runTUI(app *App) error {
	db, s, err := loadDB(app)
	if err != nil {
		return err
	}
	actorID, _ := currentActorID(app, db)
	return tui.Run(s, actorID)
}

func loadDB(app *App) (*store.DB, store.Store, error) {
	dir := app.Dir
	if dir == "" {
		// Workspace-first:
		// 1) --workspace
		// 2) ~/.reblock/config.json currentWorkspace
		// 3) default workspace ("default")
		if app.Workspace != "" {
			d, err := store.WorkspaceDir(app.Workspace)
			if err != nil {
				return nil, store.Store{}, err
			}
			dir = d
		} else if cfg, err := store.LoadConfig(); err == nil && cfg.CurrentWorkspace != "" {
			d, err := store.WorkspaceDir(cfg.CurrentWorkspace)
			if err != nil {
				return nil, store.Store{}, err
			}
			app.Workspace = cfg.CurrentWorkspace
			dir = d
		} else {
			app.Workspace = "default"
			d, err := store.WorkspaceDir(app.Workspace)
			if err != nil {
				return nil, store.Store{}, err
			}
			dir = d
		}
		app.Dir = dir
	}

	s := store.Store{Dir: dir}
	db, err := s.Load()
	if err != nil {
		return nil, s, err
	}
	return db, s, nil
}

// resolveDir returns the workspace directory, creating its database if needed.
func resolveDir(app *App) (string, error) {
	if _, _, err := loadDB(app); err != nil {
		return "", err
	}
	return app.Dir, nil
}

func currentActorID(app *App, db *store.DB) (string, error) {
	if app.ActorID != "" {
		return app.ActorID, nil
	}
	if db.CurrentActorID != "" {
		return db.CurrentActorID, nil
	}
	return "", errors.New("no current actor; run `reblock identity create ... --use` or `reblock identity use <actor-id>` (or pass --actor)")
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
