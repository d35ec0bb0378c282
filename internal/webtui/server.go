package webtui

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
)

//go:embed templates/*.html static/*.css static/*.js
var assetsFS embed.FS

const defaultXtermBase = "https://cdn.jsdelivr.net/npm/@xterm"

type ServerConfig struct {
	Addr      string
	Dir       string
	Workspace string
	ActorID   string

	// Command starts the TUI for each session; defaults to this executable.
	Command []string
	// XtermBase is the CDN root the terminal page loads @xterm packages from.
	XtermBase string
}

type Server struct {
	cfg  ServerConfig
	tmpl *template.Template
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("webtui: missing addr")
	}
	if strings.TrimSpace(cfg.XtermBase) == "" {
		cfg.XtermBase = defaultXtermBase
	}
	tmpl, err := template.ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, tmpl: tmpl}, nil
}

func (s *Server) Addr() string {
	return strings.TrimSpace(s.cfg.Addr)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/terminal", http.StatusFound)
	})
	mux.HandleFunc("GET /terminal", s.handleTerminal)
	mux.HandleFunc("GET /ws", s.handleWS)

	mux.HandleFunc("GET /static/app.css", s.handleStatic("static/app.css", "text/css; charset=utf-8"))
	mux.HandleFunc("GET /static/app.js", s.handleStatic("static/app.js", "text/javascript; charset=utf-8"))

	return mux
}

func (s *Server) handleStatic(path, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := assetsFS.ReadFile(path)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(b)
	}
}

type terminalVM struct {
	Workspace string
	ActorID   string
	Dir       string
	XtermBase string
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	vm := terminalVM{
		Workspace: strings.TrimSpace(s.cfg.Workspace),
		ActorID:   strings.TrimSpace(s.cfg.ActorID),
		Dir:       strings.TrimSpace(s.cfg.Dir),
		XtermBase: strings.TrimRight(strings.TrimSpace(s.cfg.XtermBase), "/"),
	}
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, "terminal.html", vm); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}
