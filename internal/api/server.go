// Package api serves the ads persistence API the console talks to.
//
// Routes:
//
//	GET    /api/health
//	GET    /api/ads?site=S                 - every ad of a site
//	POST   /api/ads?site=S&position=Z      - replace one zone, answers {"ads": [...]}
//	DELETE /api/ads/{id}                   - delete one ad
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"adsconsole/internal/domain"
	"adsconsole/internal/service"
)

// Server exposes an AdsRepository over HTTP.
type Server struct {
	repo   domain.AdsRepository
	tokens map[string]string
	writes service.AuthGate
	log    *zap.Logger
}

// NewServer creates a Server. tokens maps bearer tokens to roles; writeRoles
// restricts POST and DELETE to those roles (empty admits any valid token).
func NewServer(repo domain.AdsRepository, tokens map[string]string, writeRoles []string, log *zap.Logger) *Server {
	return &Server{
		repo:   repo,
		tokens: tokens,
		writes: service.AuthGate{AllowedRoles: writeRoles},
		log:    log.Named("api"),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	ads := api.PathPrefix("/ads").Subrouter()
	ads.Use(s.authenticate)
	ads.HandleFunc("", s.handleListAds).Methods("GET")
	ads.HandleFunc("", s.handleSaveAds).Methods("POST")
	ads.HandleFunc("/{id}", s.handleDeleteAd).Methods("DELETE")

	return router
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("serving ads api", zap.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down ads api")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
