package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/himanishpuri/AcousticSimilarity/pkg/logger"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity"
)

// indexLister reports which indices are currently in memory.
type indexLister interface {
	Loaded() []similarity.IndexIdentity
}

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service similarity.Service
	indices indexLister
	config  *ServerConfig
	log     similarity.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	IndexDir       string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewServer creates a new server instance. indices may be nil.
func NewServer(service similarity.Service, indices indexLister, config *ServerConfig) *Server {
	return &Server{
		service: service,
		indices: indices,
		config:  config,
		log:     logger.GetLogger().With("http"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{Message: message})
}

// respondServiceError maps an error from the similarity service to a
// response. Only *similarity.APIError messages reach the client.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *similarity.APIError
	switch {
	case errors.As(err, &apiErr):
		s.respondError(w, apiErr.Status, apiErr.Message)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.log.Warnf("%s %s: %v", r.Method, r.URL.Path, err)
		s.respondError(w, http.StatusServiceUnavailable, MsgRequestTimeout)
	default:
		s.log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		s.respondError(w, http.StatusInternalServerError, MsgInternalError)
	}
}

// queryParams parses a raw query string splitting on '&' only, so the ';'
// separating recording references survives unescaped. url.ParseQuery
// rejects such pairs outright.
func queryParams(rawQuery string) url.Values {
	values := make(url.Values)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(key)
		if err != nil {
			continue
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			continue
		}
		values.Add(key, value)
	}
	return values
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   time.Now().Format(time.RFC3339),
	})
}

// handleListMetrics handles GET /api/v1/similarity/
func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	resp := MetricsListResponse{
		Metrics:       make([]string, 0, len(similarity.Metrics)),
		DistanceTypes: make([]string, 0, len(similarity.DistanceTypes)),
		Loaded:        []string{},
	}
	for _, m := range similarity.Metrics {
		resp.Metrics = append(resp.Metrics, string(m))
	}
	for _, d := range similarity.DistanceTypes {
		resp.DistanceTypes = append(resp.DistanceTypes, string(d))
	}
	if s.indices != nil {
		for _, id := range s.indices.Loaded() {
			resp.Loaded = append(resp.Loaded, id.String())
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleSimilarRecordings handles GET /api/v1/similarity/{metric}/
func (s *Server) handleSimilarRecordings(w http.ResponseWriter, r *http.Request) {
	metric := mux.Vars(r)["metric"]

	result, err := s.service.SimilarRecordings(r.Context(), metric, queryParams(r.URL.RawQuery))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleSimilarityBetween handles GET /api/v1/similarity/{metric}/between/
func (s *Server) handleSimilarityBetween(w http.ResponseWriter, r *http.Request) {
	metric := mux.Vars(r)["metric"]

	result, err := s.service.SimilarityBetween(r.Context(), metric, queryParams(r.URL.RawQuery))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleSimilarToRecording handles GET /api/v1/similarity/{metric}/{mbid}?n=<offset>
func (s *Server) handleSimilarToRecording(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	query := queryParams(r.URL.RawQuery)

	ref, err := similarity.ParseRecordingRef(vars["mbid"], query.Get(ParamOffset))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	result, err := s.service.SimilarToRecording(r.Context(), vars["metric"], ref, query)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleNotFound answers every unmatched route.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, http.StatusNotFound, MsgRouteNotFound)
}
