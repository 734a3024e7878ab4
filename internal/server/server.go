// Package server exposes the rendering pipeline over HTTP.
//
// Routes:
//
//	GET  /health
//	GET  /catalog
//	GET  /designs
//	GET  /designs/{id}
//	PUT  /designs/{id}
//	GET  /designs/{id}/layout
//	GET  /designs/{id}/scene
//	GET  /designs/{id}/profile
//	POST /layout
//	POST /personalize
//	GET  /assets/*
//
// Errors are reported as {"error": ..., "code": ...} with the status
// code mapped from the error code.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/forevershiningA/memorial/pkg/assets"
	"github.com/forevershiningA/memorial/pkg/cache"
	"github.com/forevershiningA/memorial/pkg/catalog"
	"github.com/forevershiningA/memorial/pkg/httputil"
	"github.com/forevershiningA/memorial/pkg/pipeline"
	"github.com/forevershiningA/memorial/pkg/store"
)

// Server serves the HTTP API.
type Server struct {
	runner *pipeline.Runner
	store  store.Store
	cfg    Config
	logger *log.Logger
}

// New returns a server over an existing runner and store.
func New(runner *pipeline.Runner, st store.Store, cfg Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, store: st, cfg: cfg, logger: logger}
}

// Open builds the runner and store described by cfg: Mongo when MongoURI
// is set, else the design directory; Redis when RedisAddr is set, else the
// file cache.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}

	cat := catalog.Default()
	if cfg.Catalog != "" {
		var err error
		if cat, err = catalog.Load(cfg.Catalog); err != nil {
			return nil, err
		}
	}
	if cfg.DesktopMaxWidth > 0 {
		cat.Framing.DesktopMaxWidth = cfg.DesktopMaxWidth
	}

	src, err := openSource(cfg)
	if err != nil {
		return nil, err
	}
	c, err := openCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	runner := pipeline.NewRunner(cat, src, c, cache.NewScopedKeyer(nil, cacheScope(cfg, cat)), logger)
	runner.AssetURL = cfg.AssetURL
	return New(runner, st, cfg, logger), nil
}

func openSource(cfg Config) (assets.Source, error) {
	if !cfg.remoteAssets() {
		return assets.NewDirSource(cfg.AssetDir), nil
	}
	var hc *httputil.Cache
	if dir, err := httputil.DefaultDir(); err == nil {
		hc, _ = httputil.NewCache(dir, 24*time.Hour)
	}
	return assets.NewHTTPSource(cfg.AssetDir, hc)
}

func openCache(ctx context.Context, cfg Config, logger *log.Logger) (cache.Cache, error) {
	if cfg.RedisAddr != "" {
		return cache.NewRedisCache(ctx, cache.RedisOptions{Addr: cfg.RedisAddr, DialTimeout: 5 * time.Second})
	}
	dir := cfg.CacheDir
	if dir == "" {
		var err error
		if dir, err = cache.DefaultDir(); err != nil {
			logger.Warn("cache disabled", "err", err)
			return cache.NewNullCache(), nil
		}
	}
	return cache.NewFileCache(dir)
}

// cacheScope is the key prefix for derived artifacts of one asset root and
// catalog.
func cacheScope(cfg Config, cat *catalog.Catalog) string {
	data, _ := json.Marshal(cat)
	return "catalog:" + cache.Hash(append([]byte(cfg.AssetDir+"\n"), data...))[:12] + ":"
}

func openStore(ctx context.Context, cfg Config) (store.Store, error) {
	if cfg.MongoURI != "" {
		return store.NewMongoStore(ctx, store.MongoOptions{URI: cfg.MongoURI, Database: cfg.MongoDB})
	}
	return store.NewFileStore(cfg.DesignDir)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/catalog", s.catalog)

	r.Route("/designs", func(r chi.Router) {
		r.Get("/", s.listDesigns)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getDesign)
			r.Put("/", s.putDesign)
			r.Get("/layout", s.designLayout)
			r.Get("/scene", s.designScene)
			r.Get("/profile", s.designProfile)
		})
	})
	r.Post("/layout", s.layout)
	r.Post("/personalize", s.personalize)

	if s.cfg.AssetDir != "" && !s.cfg.remoteAssets() {
		fs := http.StripPrefix("/assets/", http.FileServer(http.Dir(s.cfg.AssetDir)))
		r.Get("/assets/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=86400")
			fs.ServeHTTP(w, r)
		})
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases the store and the runner's cache.
func (s *Server) Close() error {
	return errors.Join(s.store.Close(), s.runner.Close())
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start))
	})
}
