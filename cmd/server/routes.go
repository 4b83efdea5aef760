package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const mbidPattern = "[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}"

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1/similarity").Subrouter()
	api.Use(s.timeoutMiddleware)
	api.HandleFunc("/", s.handleListMetrics).Methods(http.MethodGet)
	api.HandleFunc("/{metric}/", s.handleSimilarRecordings).Methods(http.MethodGet)
	api.HandleFunc("/{metric}/between/", s.handleSimilarityBetween).Methods(http.MethodGet)
	api.HandleFunc("/{metric}/{mbid:"+mbidPattern+"}", s.handleSimilarToRecording).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
		MaxAge:         3600,
	})

	return s.loggingMiddleware(c.Handler(router))
}

// timeoutMiddleware bounds every API request by the configured timeout.
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.RequestTimeout <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs all HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.log.Infof("%s %s from %s -> %d", r.Method, r.URL.Path, getClientIP(r), wrapped.statusCode)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr without the port
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// NewHTTPServer builds the http.Server for the configured port.
func (s *Server) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.setupRoutes(),
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	srv := s.NewHTTPServer()

	s.log.Infof("AcousticSimilarity server starting on %s", srv.Addr)
	s.log.Infof("   Database: %s", s.config.DBPath)
	s.log.Infof("   Indices: %s", s.config.IndexDir)
	s.log.Infof("   CORS Origins: %v", s.config.AllowedOrigins)
	s.log.Infof("Endpoints:")
	s.log.Infof("   GET /health                                   - Health check")
	s.log.Infof("   GET /api/v1/similarity/                       - List metrics and loaded indices")
	s.log.Infof("   GET /api/v1/similarity/{metric}/              - Similar recordings (recording_ids=...)")
	s.log.Infof("   GET /api/v1/similarity/{metric}/between/      - Distance between two recordings")
	s.log.Infof("   GET /api/v1/similarity/{metric}/{mbid}?n=0    - Similar to one recording")

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.RequestTimeout+time.Second)
		defer cancel()
		s.log.Infof("Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
