package dashboard

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phillip-england/clockboard/internal/envutil"
	"github.com/phillip-england/clockboard/internal/metrics"
	"github.com/phillip-england/clockboard/internal/middleware"
	"github.com/phillip-england/clockboard/internal/storeconfig"
	"github.com/phillip-england/clockboard/internal/timemetrics"
)

//go:embed templates/store.html templates/denied.html
var templatesFS embed.FS

// TimeclockSource supplies the current shift state for one store.
type TimeclockSource interface {
	Entries(ctx context.Context, store storeconfig.Store) ([]timemetrics.TimeEntry, error)
}

// StoreAuthorizer resolves a store id and PIN to a store.
type StoreAuthorizer interface {
	Authorize(id, pin string) (storeconfig.Store, error)
}

type Config struct {
	Addr            string
	RefreshInterval time.Duration
	UpstreamTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	Location        *time.Location

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func DefaultConfigFromEnv() Config {
	return Config{
		Addr:            envutil.String("DASHBOARD_ADDR", ":5050"),
		RefreshInterval: envutil.Duration("REFRESH_INTERVAL", 60*time.Second),
		UpstreamTimeout: envutil.Duration("UPSTREAM_TIMEOUT", 10*time.Second),
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    30 * time.Second,
	}
}

type Server struct {
	cfg        Config
	stores     StoreAuthorizer
	source     TimeclockSource
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	storeTmpl  *template.Template
	deniedTmpl *template.Template
}

func NewServer(cfg Config, stores StoreAuthorizer, source TimeclockSource) *Server {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 60 * time.Second
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 10 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Server{
		cfg:        cfg,
		stores:     stores,
		source:     source,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
		storeTmpl:  template.Must(template.ParseFS(templatesFS, "templates/store.html")),
		deniedTmpl: template.Must(template.ParseFS(templatesFS, "templates/denied.html")),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(s.index))
	mux.Handle("/healthz", http.HandlerFunc(s.health))
	mux.Handle("/metrics", s.metrics.Handler())
	mux.Handle("/store/", http.HandlerFunc(s.storeRoutes))

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"script-src 'none'",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		mux,
		middleware.RequestID(s.logger),
		middleware.AccessLog(s.metrics, routeName),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
		middleware.ReadOnly,
	)
}

func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", "http://localhost"+s.cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func routeName(r *http.Request) string {
	switch {
	case r.URL.Path == "/":
		return "index"
	case r.URL.Path == "/healthz":
		return "health"
	case r.URL.Path == "/metrics":
		return "metrics"
	case strings.HasPrefix(r.URL.Path, "/store/") && strings.HasSuffix(r.URL.Path, "/export.xlsx"):
		return "store_export"
	case strings.HasPrefix(r.URL.Path, "/store/"):
		return "store"
	default:
		return "other"
	}
}
