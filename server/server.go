// Package server exposes the signing service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/digitorus/pdfstamp/internal/httpx"
	"github.com/digitorus/pdfstamp/signing"
	"github.com/digitorus/pdfstamp/storage"
)

// DefaultMaxBodyBytes limits request bodies when Options leave it unset.
const DefaultMaxBodyBytes = 50 << 20

// Options configures a Server.
type Options struct {
	Service *signing.Service
	Files   *storage.Local
	Logger  *zap.Logger
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	MaxBodyBytes int64
	CORSOrigin   string
}

// Server routes HTTP requests to the signing service.
type Server struct {
	svc        *signing.Service
	files      *storage.Local
	logger     *zap.Logger
	gatherer   prometheus.Gatherer
	maxBody    int64
	corsOrigin string
}

func New(opts Options) *Server {
	s := &Server{
		svc:        opts.Service,
		files:      opts.Files,
		logger:     opts.Logger,
		gatherer:   opts.Gatherer,
		maxBody:    opts.MaxBodyBytes,
		corsOrigin: opts.CORSOrigin,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	return s
}

// Routes returns the HTTP handler of the server.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(httpx.RequestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.corsOrigin},
		AllowedMethods:   []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", httpx.RequestIDHeader},
		ExposedHeaders:   []string{httpx.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.health)
	r.Post("/sign-pdf", s.signPDF)
	r.Get("/audit/{documentId}", s.auditTrail)
	if s.files != nil {
		r.Handle(s.files.Prefix+"*", s.files.Handler())
	}
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("Request served",
			zap.String("request_id", w.Header().Get(httpx.RequestIDHeader)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
