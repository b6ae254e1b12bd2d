// Package serve is the development and production HTTP front end: full pages,
// container fragments for client side navigation, a JSON API and live reload.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cyberblog/internal/catalog"
	"cyberblog/internal/domain/config"
	"cyberblog/internal/domain/content"
	"cyberblog/internal/domain/site"
	"cyberblog/internal/ingest"
	"cyberblog/internal/logging"
	"cyberblog/internal/render"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Config   config.Config
	Loader   *ingest.Loader
	Renderer *render.Renderer
	Logger   *zap.Logger
}

type Server struct {
	cfg      config.Config
	log      *zap.Logger
	loader   *ingest.Loader
	renderer *render.Renderer

	holder catalog.Holder
	loadMu sync.Mutex
	events *broker
	router chi.Router
}

func New(opt Options) *Server {
	s := &Server{
		cfg:      opt.Config,
		log:      logging.OrNop(opt.Logger).Named("serve"),
		loader:   opt.Loader,
		renderer: opt.Renderer,
		events:   newBroker(),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// State reports where the catalog is in its load lifecycle.
func (s *Server) State() catalog.State { return s.holder.State() }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Container", "X-Title"},
		MaxAge:         300,
	}
	if s.cfg.Serve.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// 事件流是长连接，不能套超时
	r.Get("/dev/events", s.handleEvents)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/healthz", s.handleHealth)
		r.Get("/fragment", s.handleFragment)
		r.Get("/api/posts", s.handlePosts)
		r.Get("/manifest.json", s.handleManifest)

		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(s.renderer.Templates.Static()))))
		if !s.cfg.Ingest.Remote() {
			dir := http.Dir(filepath.Clean(s.cfg.Ingest.Source))
			r.Handle("/"+ingest.ContentPrefix+"/*", http.StripPrefix("/"+ingest.ContentPrefix+"/", http.FileServer(dir)))
		}

		r.Get("/", s.handlePage)
		r.Get("/index.html", s.handlePage)
		r.Get("/blog", s.handlePage)
		r.Get("/blogs", s.handlePage)
		r.Get("/blogs/*", s.handlePage)
		r.Get("/post/{category}/{slug}", s.handlePost)
		r.Get("/{category}", s.handleCategory)
		r.NotFound(s.handlePage)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Reload rebuilds the catalog from scratch and swaps it in wholesale. Readers
// keep seeing the previous catalog until the new one is published.
func (s *Server) Reload(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	prev := s.holder.BeginLoad()
	res, err := s.loader.Load(ctx)
	if err != nil {
		// 继续用旧的 catalog
		s.holder.AbortLoad(prev)
		s.log.Warn("catalog reload failed", zap.Error(err))
		return err
	}
	s.holder.Publish(res.Catalog)
	s.events.broadcast("reload")
	return nil
}

// Run serves until ctx is cancelled. The catalog loads in the background;
// requests arriving before it is ready render against an empty catalog.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Serve.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.events.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := s.Reload(gctx); err != nil && gctx.Err() == nil {
			s.log.Error("initial catalog load failed", zap.Error(err))
		}
		return nil
	})
	if s.cfg.Serve.Watch && !s.cfg.Ingest.Remote() {
		g.Go(func() error {
			return s.watch(gctx, filepath.Clean(s.cfg.Ingest.Source))
		})
	}
	return g.Wait()
}

func (s *Server) current() *render.Renderer {
	return s.renderer.WithCatalog(s.holder.Current())
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	route := site.Post(strings.ToLower(chi.URLParam(r, "category")), strings.TrimSuffix(chi.URLParam(r, "slug"), ".md"))
	s.servePage(w, r, route)
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	route := site.Category(strings.ToLower(chi.URLParam(r, "category")))
	if strings.Contains(route.Key, ".") {
		route = site.NotFound()
	}
	s.servePage(w, r, route)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, site.ParseRoute(r.URL.Path))
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, route site.Route) {
	rd := s.current()
	shell := rd.DefaultShell()
	frag, ok, err := rd.RenderRoute(r.Context(), shell, route)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	page, err := rd.RenderPage(frag, shell, render.PageOptions{LiveReload: s.cfg.Serve.Watch})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	writeHTML(w, frag.Status, page)
}

// handleFragment renders only the container for ?route=. The caller lists
// the containers its page has in ?containers=; 204 means none fits.
func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	rd := s.current()
	q := r.URL.Query()
	shell := rd.DefaultShell()
	if list := q.Get("containers"); list != "" {
		shell = render.ParseShell(list)
	}
	route := site.ParseRoute(q.Get("route"))

	frag, ok, err := rd.RenderRoute(r.Context(), shell, route)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("X-Container", frag.Container)
	w.Header().Set("X-Title", url.PathEscape(frag.Title))
	writeHTML(w, frag.Status, []byte(frag.HTML))
}

type postJSON struct {
	content.Post
	URL string `json:"url"`
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	c := s.holder.Current()
	var posts []content.Post
	if cat := strings.TrimSpace(r.URL.Query().Get("category")); cat != "" {
		posts = c.ByCategory(strings.ToLower(cat))
	} else {
		posts = c.Recent(0)
	}
	out := make([]postJSON, 0, len(posts))
	for _, p := range posts {
		p.Content = ""
		out = append(out, postJSON{Post: p, URL: site.Post(p.Category, p.Slug()).URL()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	m := ingest.NewManifest(s.holder.Current().All(), ingest.ContentPrefix, time.Now())
	b, err := m.Marshal()
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"catalog": s.holder.State().String(),
		"posts":   s.holder.Current().Len(),
		"clients": s.events.clients(),
	})
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		return
	}
	s.log.Error("render failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "render error", http.StatusInternalServerError)
}

func writeHTML(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
