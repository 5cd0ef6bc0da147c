// Package server exposes the registry over HTTP. A scrape is a plain GET
// on /metrics: the handler takes a registry snapshot, renders it and
// writes it out. The server does no aggregation, caching or rate limiting;
// the response is a pure function of the snapshot. Access control is the
// job of whatever sits in front (reverse proxy, network policy).
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/cortezlab/pimetrics/metric"
	"github.com/cortezlab/pimetrics/schedule"
)

// Config holds the server configuration.
type Config struct {
	Address string
	Port    int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the defaults: the conventional exporter port and
// timeouts sized for small text responses.
func DefaultConfig() *Config {
	return &Config{
		Port:            9101,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate reports configuration errors. They are fatal at startup.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid listen port %d", c.Port)
	}
	return nil
}

// Server serves the exposition and health endpoints.
type Server struct {
	cfg        *Config
	registry   *metric.Registry
	healths    func() map[string]schedule.HealthView
	httpServer *http.Server

	scrapes        *metric.Counter
	scrapeDuration *metric.Histogram
	inFlight       *metric.Gauge
}

// New creates a Server reading from reg. healths supplies the per-collector
// health records for /healthz; nil disables that endpoint's body. The
// server's own instrumentation is registered with the same registry, so a
// scrape also reports on scraping.
func New(cfg *Config, reg *metric.Registry, healths func() map[string]schedule.HealthView) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		registry: reg,
		healths:  healths,
		scrapes: metric.NewCounter(metric.CounterOpts{
			Name:   "exporter_scrapes_total",
			Help:   "Scrape requests served, by status code.",
			Labels: []string{"code"},
		}),
		scrapeDuration: metric.NewHistogram(metric.HistogramOpts{
			Opts: metric.Opts{
				Name: "exporter_scrape_duration_seconds",
				Help: "Time spent rendering and writing one scrape.",
			},
		}),
		inFlight: metric.NewGauge(metric.GaugeOpts{
			Name: "exporter_scrapes_in_flight",
			Help: "Scrape requests currently being served.",
		}),
	}

	var errs metric.MultiError
	errs.Append(reg.Register(s.scrapes))
	errs.Append(reg.Register(s.scrapeDuration))
	errs.Append(reg.Register(s.inFlight))
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", s.handleHealthz)
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

// Handler returns the route handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured timeout.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		glog.Infof("exposition server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.scrapes.Inc(metric.Labels{"code": strconv.Itoa(http.StatusMethodNotAllowed)})
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	s.inFlight.Add(nil, 1)
	defer s.inFlight.Sub(nil, 1)

	// Render into a buffer first so a render problem becomes a clean 500
	// instead of a half-written body.
	buf := &bytes.Buffer{}
	if err := metric.Render(buf, s.registry.Snapshot()); err != nil {
		glog.Errorf("rendering scrape: %v", err)
		s.scrapes.Inc(metric.Labels{"code": strconv.Itoa(http.StatusInternalServerError)})
		http.Error(w, "rendering failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", metric.ContentType)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client went away mid-response. Per-request, nothing shared to
		// clean up.
		glog.V(1).Infof("writing scrape response: %v", err)
	}
	s.scrapes.Inc(metric.Labels{"code": strconv.Itoa(http.StatusOK)})
	s.scrapeDuration.Observe(nil, time.Since(start).Seconds())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	views := map[string]schedule.HealthView{}
	if s.healths != nil {
		views = s.healths()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		glog.V(1).Infof("writing healthz response: %v", err)
	}
}
