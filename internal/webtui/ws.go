package webtui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/gorilla/websocket"
)

type wsMsg struct {
	Type string `json:"type"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header (non-browser clients)
// and browser requests from the page this server rendered.
func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	host := strings.TrimSpace(r.Host)
	return strings.HasSuffix(origin, "://"+host)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error.
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ptmx, cmd, cleanup, err := s.startPTYSession()
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("failed to start session: "+err.Error()))
		return
	}
	defer cleanup()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errCh <- pumpPTYToWS(ctx, ptmx, conn)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		errCh <- pumpWSToPTY(ctx, conn, ptmx)
	}()

	select {
	case <-ctx.Done():
	case <-errCh:
	}
	cancel()

	// Unblock both pumps: the child's exit ends the PTY read, closing the
	// connection ends the websocket read.
	_ = cmd.Process.Kill()
	_ = conn.Close()

	wg.Wait()
}

// sessionCommand is the argv for one browser session.
func (s *Server) sessionCommand() ([]string, error) {
	if len(s.cfg.Command) > 0 {
		return append([]string(nil), s.cfg.Command...), nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	argv := []string{exe}
	if dir := strings.TrimSpace(s.cfg.Dir); dir != "" {
		argv = append(argv, "--dir", dir)
	}
	if workspace := strings.TrimSpace(s.cfg.Workspace); workspace != "" && strings.TrimSpace(s.cfg.Dir) == "" {
		argv = append(argv, "--workspace", workspace)
	}
	if actor := strings.TrimSpace(s.cfg.ActorID); actor != "" {
		argv = append(argv, "--actor", actor)
	}
	// No subcommand => interactive TUI.
	return argv, nil
}

func (s *Server) startPTYSession() (*os.File, *exec.Cmd, func(), error) {
	argv, err := s.sessionCommand()
	if err != nil {
		return nil, nil, nil, err
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
	)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: 120, Rows: 40})
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	}

	return ptmx, cmd, cleanup, nil
}

func pumpPTYToWS(ctx context.Context, ptmx *os.File, conn *websocket.Conn) error {
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := ptmx.Read(buf)
		if n > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func pumpWSToPTY(ctx context.Context, conn *websocket.Conn, ptmx *os.File) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		// Control messages are JSON text. Keystroke frames are plain text or binary.
		if mt == websocket.TextMessage && len(data) > 0 && data[0] == '{' {
			if m, ok := parseControl(data); ok && m.Type == "resize" {
				_ = pty.Setsize(ptmx, &pty.Winsize{Cols: uint16(m.Cols), Rows: uint16(m.Rows)})
			}
			continue
		}

		if len(data) == 0 {
			continue
		}
		if _, err := ptmx.Write(data); err != nil {
			return err
		}
	}
}

// parseControl decodes a control frame; resize frames need a positive size
// that fits a winsize.
func parseControl(data []byte) (wsMsg, bool) {
	var m wsMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return wsMsg{}, false
	}
	m.Type = strings.ToLower(strings.TrimSpace(m.Type))
	if m.Type == "resize" && (m.Cols <= 0 || m.Rows <= 0 || m.Cols > 0xffff || m.Rows > 0xffff) {
		return wsMsg{}, false
	}
	return m, true
}
