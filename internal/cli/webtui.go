package cli

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"reblock-cli/internal/webtui"

	"github.com/spf13/cobra"
)

func newWebTUICmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "webtui",
		Short: "Run the block editor TUI in your browser (PTY + WebSocket, experimental)",
		Long: strings.TrimSpace(`
Run the interactive editor over the web via a server-side PTY and a browser terminal emulator.

Notes:
- Experimental (no auth yet); bind to localhost.
- Each browser tab starts an editor subprocess on the server.
`),
		Example: strings.TrimSpace(`
# Serve the current workspace on localhost
reblock webtui --addr 127.0.0.1:3334

# Serve a specific workspace
reblock --workspace docs webtui --addr :3334
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			actorID, _ := currentActorID(app, db)

			srv, err := webtui.NewServer(webtui.ServerConfig{
				Addr:      strings.TrimSpace(addr),
				Dir:       app.Dir,
				Workspace: strings.TrimSpace(app.Workspace),
				ActorID:   actorID,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			listenAddr := srv.Addr()
			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      listenAddr,
					"workspace": strings.TrimSpace(app.Workspace),
					"dir":       app.Dir,
					"actor":     actorID,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": []string{
					"open http://" + listenAddr,
				},
			})

			fmt.Fprintf(cmd.ErrOrStderr(), "reblock webtui running at http://%s (workspace=%s)\n", listenAddr, strings.TrimSpace(app.Workspace))
			return http.ListenAndServe(listenAddr, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3334", "Bind address (host:port or :port)")
	return cmd
}
