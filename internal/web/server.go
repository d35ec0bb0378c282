package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"reblock-cli/internal/gitrepo"
	"reblock-cli/internal/model"
	"reblock-cli/internal/publish"
	"reblock-cli/internal/store"

	"github.com/starfederation/datastar-go/datastar"
)

//go:embed templates/*.html static/*.css
var assetsFS embed.FS

const defaultDatastarURL = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"

type ServerConfig struct {
	Addr      string
	Dir       string
	Workspace string

	// DatastarURL is where pages load the datastar client from.
	DatastarURL string
	// PollInterval is how often the workspace database is checked for changes.
	PollInterval time.Duration
}

// Server is a read-only HTML preview of a workspace. Pages re-render over SSE
// when documents or reusable blocks change.
type Server struct {
	mu   sync.RWMutex
	cfg  ServerConfig
	st   store.Store
	tmpl *template.Template

	bc *resourceBroadcaster
}

type baseVM struct {
	Now         string
	Workspace   string
	Dir         string
	Title       string
	StreamURL   string
	DatastarURL string
	Git         gitrepo.Status
}

type homeVM struct {
	baseVM
	Documents []model.Document
	Reusable  []model.ReusableBlock
}

type pageVM struct {
	baseVM
	Kind    string
	ID      string
	Body    template.HTML
	Missing []string
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.Dir = strings.TrimSpace(cfg.Dir)
	cfg.Workspace = strings.TrimSpace(cfg.Workspace)
	cfg.DatastarURL = strings.TrimSpace(cfg.DatastarURL)
	if cfg.Dir == "" {
		return nil, errors.New("web: dir is empty")
	}
	if cfg.DatastarURL == "" {
		cfg.DatastarURL = defaultDatastarURL
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"trim": strings.TrimSpace,
		"stamp": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format("2006-01-02 15:04")
		},
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	st := store.Store{Dir: cfg.Dir}
	srv := &Server{cfg: cfg, st: st, tmpl: tmpl}
	srv.bc = newResourceBroadcaster(st, cfg.PollInterval)
	go srv.bc.watchLoop()
	return srv, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

// Close stops the change watcher. Open SSE streams end with their requests.
func (s *Server) Close() {
	s.bc.Stop()
}

func (s *Server) cfgSnapshot() ServerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /static/app.css", s.handleAppCSS)
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /documents/{id}", s.handleDocument)
	mux.HandleFunc("GET /reusable/{id}", s.handleReusable)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleAppCSS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/app.css")
	if err != nil || len(b) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) baseVMForRequest(r *http.Request, title, streamURL string) baseVM {
	ctx, cancel := context.WithTimeout(r.Context(), 1200*time.Millisecond)
	defer cancel()

	cfg := s.cfgSnapshot()
	st, _ := gitrepo.GetStatus(ctx, cfg.Dir)

	return baseVM{
		Now:         time.Now().Format(time.RFC3339),
		Workspace:   cfg.Workspace,
		Dir:         cfg.Dir,
		Title:       title,
		StreamURL:   streamURL,
		DatastarURL: cfg.DatastarURL,
		Git:         st,
	}
}

func (s *Server) homeVM(r *http.Request) (homeVM, error) {
	docs, err := s.st.ListDocuments(r.Context())
	if err != nil {
		return homeVM{}, err
	}
	rbs, err := s.st.ListReusableBlocks(r.Context())
	if err != nil {
		return homeVM{}, err
	}
	return homeVM{
		baseVM:    s.baseVMForRequest(r, "Workspace", "/events?view=home"),
		Documents: docs,
		Reusable:  rbs,
	}, nil
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	vm, err := s.homeVM(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeHTMLTemplate(w, "home.html", vm)
}

func (s *Server) pageVM(r *http.Request, kind, id string) (pageVM, error) {
	var md string
	var missing []string
	var err error
	switch kind {
	case "document":
		md, missing, err = publish.RenderDocumentMarkdown(r.Context(), s.st, id, publish.RenderOptions{})
	default:
		md, missing, err = publish.RenderReusableMarkdown(r.Context(), s.st, id, publish.RenderOptions{})
	}
	if err != nil {
		return pageVM{}, err
	}
	stream := fmt.Sprintf("/events?view=%s&id=%s", kind, id)
	return pageVM{
		baseVM:  s.baseVMForRequest(r, id, stream),
		Kind:    kind,
		ID:      id,
		Body:    renderMarkdownHTML(md),
		Missing: missing,
	}, nil
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request, kind string) {
	vm, err := s.pageVM(r, kind, strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		var nf store.NotFoundError
		if errors.As(err, &nf) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeHTMLTemplate(w, "page.html", vm)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	s.handlePage(w, r, "document")
}

func (s *Server) handleReusable(w http.ResponseWriter, r *http.Request) {
	s.handlePage(w, r, "reusable")
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	view := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("view")))
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	switch view {
	case "home":
		s.serveDatastarStream(w, r, resourceKey{kind: "workspace"}, func() (string, error) {
			vm, err := s.homeVM(r)
			if err != nil {
				return "", err
			}
			return s.renderTemplate("home_main", vm)
		})
	case "document", "reusable":
		if id == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}
		key := resourceKey{kind: "reusable", id: id}
		if view == "document" {
			key = resourceKey{kind: "workspace"}
		}
		s.serveDatastarStream(w, r, key, func() (string, error) {
			vm, err := s.pageVM(r, view, id)
			if err != nil {
				var nf store.NotFoundError
				if errors.As(err, &nf) {
					return s.renderTemplate("gone_main", vm)
				}
				return "", err
			}
			return s.renderTemplate("page_main", vm)
		})
	default:
		http.Error(w, "unknown view", http.StatusBadRequest)
	}
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

func (s *Server) serveDatastarStream(w http.ResponseWriter, r *http.Request, key resourceKey, renderMain func() (string, error)) {
	sse := datastar.NewSSE(w, r)

	_ = sse.MarshalAndPatchSignals(map[string]any{"wsVersion": s.bc.currentFingerprint()})

	ch, cancel := s.bc.hubFor(key).subscribe()
	defer cancel()

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-ch:
			html, err := renderMain()
			if err != nil {
				_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
				continue
			}
			if strings.TrimSpace(html) == "" {
				continue
			}
			_ = sse.PatchElements(html, datastar.WithSelector("#reblock-main"), datastar.WithMode(datastar.ElementPatchModeOuter))
			_ = sse.MarshalAndPatchSignals(map[string]any{"wsVersion": s.bc.currentFingerprint()})
		}
	}
}
