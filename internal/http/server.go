package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"demonstrativo/internal/cache"
	"demonstrativo/internal/core"
	"demonstrativo/internal/ledger"
	applog "demonstrativo/internal/log"
	"demonstrativo/internal/sheets"
	appweb "demonstrativo/web"
)

// ErrSourceUnavailable wraps failures to read the ledger.
var ErrSourceUnavailable = errors.New("ledger source unavailable")

// Options configures a Server.
type Options struct {
	Reader   sheets.LedgerReader
	Pinger   sheets.Pinger // optional, used by /readyz
	Pipeline *ledger.Pipeline

	// PageSize 0 selects the per-policy default
	PageSize int
	// CacheTTL 0 disables report caching
	CacheTTL time.Duration
	// SourceTimeout bounds one shared ledger read (default 30s)
	SourceTimeout time.Duration
	// RateLimit is the per-client budget per minute on /api/ (default 60)
	RateLimit int

	Logger *applog.Logger
	// Now defaults to time.Now; it is read once per request
	Now func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	reader    sheets.LedgerReader
	pinger    sheets.Pinger
	pipeline  *ledger.Pipeline
	pageSize  int
	now       func() time.Time

	reports     *cache.LRUCache[core.Report]
	caches      *cache.Manager
	loads       singleflight.Group
	loadTimeout time.Duration

	// generation counts invalidations; loads started before one are not cached
	genMu      sync.Mutex
	generation uint64

	rateLimiter *rateLimiter
	metrics     *securityMetrics
	headers     HeadersConfig

	logger *applog.Logger
	access *applog.StructuredLogger

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, opts Options) (*Server, error) {
	if opts.Reader == nil {
		return nil, errors.New("ledger reader is required")
	}
	if opts.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.Default(applog.ComponentHTTP)
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loadTimeout := opts.SourceTimeout
	if loadTimeout <= 0 {
		loadTimeout = 30 * time.Second
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		reader:      opts.Reader,
		pinger:      opts.Pinger,
		pipeline:    opts.Pipeline,
		pageSize:    opts.PageSize,
		now:         now,
		loadTimeout: loadTimeout,
		caches:      cache.NewManager(logger),
		rateLimiter: newRateLimiter(opts.RateLimit, time.Minute),
		metrics:     &securityMetrics{},
		headers:     DefaultHeadersConfig(),
		logger:      logger,
		access:      applog.NewStructuredLogger(logger),
	}

	if opts.CacheTTL > 0 {
		s.reports = cache.NewLRUCache[core.Report](64, opts.CacheTTL)
		s.caches.Register(s.reports)
		s.caches.StartCleanup(opts.CacheTTL)
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.Handle("GET /api/report", s.withRateLimit(http.HandlerFunc(s.handleReport)))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	s.Handler = s.withTracing(s.withSecurityHeaders(mux))
	return s, nil
}

// InvalidateReports drops every cached report. Called when the mirror is
// refreshed.
func (s *Server) InvalidateReports() {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generation++
	s.caches.InvalidateAll()
}

func (s *Server) currentGeneration() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generation
}

// storeReport caches report unless the cache was invalidated after gen.
func (s *Server) storeReport(key string, gen uint64, report core.Report) bool {
	if s.reports == nil {
		return false
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generation != gen {
		return false
	}
	s.reports.Set(key, report)
	return true
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func reportKey(params ReportParams) string {
	return params.Month.String() + ":" + params.Policy.String()
}

// getReport returns the report for params, from cache when possible.
// Concurrent misses for the same key share one source read, which is not
// tied to any single caller's request context.
func (s *Server) getReport(ctx context.Context, params ReportParams) (core.Report, error) {
	key := reportKey(params)
	log := applog.FromContext(ctx)
	gen := s.currentGeneration()

	if s.reports != nil {
		if report, ok := s.reports.Get(key); ok {
			log.DebugContext(ctx, "Report cache hit", "key", key)
			return report, nil
		}
	}

	v, err, _ := s.loads.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		pipeline, err := s.pipeline.WithPolicy(params.Policy)
		if err != nil {
			return core.Report{}, err
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		table, err := s.reader.ReadLedger(loadCtx)
		if err != nil {
			return core.Report{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		report, err := pipeline.Run(table, params.Month)
		if err != nil {
			return core.Report{}, err
		}
		if s.reports != nil && !s.storeReport(key, gen, report) {
			log.DebugContext(ctx, "Report not cached, invalidated during load", "key", key)
		}
		s.access.LogRun(loadCtx, report.Month.Year, int(report.Month.Month), report.Policy.String(),
			report.InputRows, report.Dropped, report.InvoicesInMonth, report.PaymentsInMonth, len(report.Rows))
		return report, nil
	})
	if err != nil {
		return core.Report{}, err
	}
	return v.(core.Report), nil
}

// statusFor maps report errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrInvalidPolicy), errors.Is(err, core.ErrInvalidMonth):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrSourceUnavailable):
		if errors.Is(err, context.DeadlineExceeded) {
			return applog.ErrorTypeTimeout
		}
		return applog.ErrorTypeNetwork
	case errors.Is(err, core.ErrMissingColumn):
		return applog.ErrorTypeValidation
	default:
		return applog.ErrorTypeInternal
	}
}
