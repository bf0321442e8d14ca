package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pkrouting/pkg/dberrors"
	"pkrouting/pkg/partitionkey"
	"pkrouting/pkg/routing"
	"pkrouting/pkg/selector"
	"pkrouting/pkg/types"
)

const (
	contentTypeJSON          = "application/json"
	defaultHTTPPort          = "8080"
	defaultShutdownTimeout   = time.Second * 5
	defaultReadHeaderTimeout = time.Second
	maxSelectorBytes         = 64 << 10
	headerRequestID          = "X-Request-Id"
)

type ctxKeyRequestID struct{}

// iRouter is the routing cache as seen by the API.
type iRouter interface {
	routing.Collaborator
	Partitions(ctx context.Context, container types.ContainerID, forceRefresh bool) ([]routing.Partition, error)
}

// Server exposes selector resolution over HTTP.
type Server struct {
	router            iRouter
	schemes           map[types.ContainerID]partitionkey.Scheme
	metrics           http.Handler
	httpServer        *http.Server
	readHeaderTimeout time.Duration
	URL               string
	addr              string
}

// NewServer creates a new server instance. metricsHandler may be nil.
func NewServer(
	router iRouter,
	schemes map[types.ContainerID]partitionkey.Scheme,
	metricsHandler http.Handler,
	port string,
) *Server {
	if port == "" {
		port = defaultHTTPPort
	}
	return &Server{
		router:            router,
		schemes:           schemes,
		metrics:           metricsHandler,
		readHeaderTimeout: defaultReadHeaderTimeout,
		URL:               "http://localhost:" + port,
		addr:              ":" + port,
	}
}

func (s *Server) SetReadHeaderTimeout(d time.Duration) {
	if d > 0 {
		s.readHeaderTimeout = d
	}
}

// Start starts the server
func (s *Server) Start() error {
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}
	return nil
}

// createRouter builds chi router
func (s *Server) createRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api/containers/{container}", func(r chi.Router) {
		r.Post("/ranges", s.handleRanges)
		r.Post("/partitions", s.handlePartitions)
		r.Get("/epk", s.handleEffectiveKey)
		r.Get("/pkranges", s.handlePKRanges)
	})

	return r
}

func (s *Server) startHTTPServer() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.createRouter(),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("HTTP server started", "addr", s.URL)
	return nil
}

// requestID tags every request with a UUID, keeping one supplied by the client.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Error encoding response", "error", err)
	}
}

// writeError maps routing and encoding failures to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, dberrors.ErrPartitionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, dberrors.ErrInvalidKeyShape),
		errors.Is(err, dberrors.ErrInvalidArgument),
		errors.Is(err, dberrors.ErrUnsupportedSchemeKind):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "request_id", requestIDFrom(r.Context()), "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, NewErrorResponse(err.Error()))
}

// scheme resolves the container path parameter; it writes 404 when unknown.
func (s *Server) scheme(w http.ResponseWriter, r *http.Request) (types.ContainerID, partitionkey.Scheme, bool) {
	container := types.ContainerID(chi.URLParam(r, "container"))
	scheme, ok := s.schemes[container]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, NewErrorResponse("Unknown container "+string(container)))
		return container, partitionkey.Scheme{}, false
	}
	return container, scheme, true
}

func (s *Server) readSelector(w http.ResponseWriter, r *http.Request) (selector.Selector, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSelectorBytes))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("Failed to read body"))
		return nil, false
	}
	sel, err := selector.Parse(string(body))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return sel, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, NewOKResponse())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.ServeHTTP(w, r)
		return
	}
	if _, err := w.Write([]byte("# pkrouting metrics disabled\n")); err != nil {
		slog.Warn("Failed to write metrics response", "error", err)
	}
}

func (s *Server) handleRanges(w http.ResponseWriter, r *http.Request) {
	_, scheme, ok := s.scheme(w, r)
	if !ok {
		return
	}
	sel, ok := s.readSelector(w, r)
	if !ok {
		return
	}

	ranges, err := sel.EffectiveRanges(scheme)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewRangesResponse(ranges))
}

func (s *Server) handlePartitions(w http.ResponseWriter, r *http.Request) {
	container, scheme, ok := s.scheme(w, r)
	if !ok {
		return
	}
	sel, ok := s.readSelector(w, r)
	if !ok {
		return
	}

	parts, err := sel.PhysicalPartitions(r.Context(), s.router, container, scheme)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewPartitionsResponse(parts))
}

func (s *Server) handleEffectiveKey(w http.ResponseWriter, r *http.Request) {
	_, scheme, ok := s.scheme(w, r)
	if !ok {
		return
	}
	pk := r.URL.Query().Get("pk")
	if pk == "" {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("Missing pk"))
		return
	}

	key, err := partitionkey.ParseKeyJSON([]byte(pk))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	epk, err := partitionkey.Encode(key, scheme)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewValueResponse(epk.String()))
}

func (s *Server) handlePKRanges(w http.ResponseWriter, r *http.Request) {
	container, _, ok := s.scheme(w, r)
	if !ok {
		return
	}
	force := r.URL.Query().Get("refresh") == "true"

	parts, err := s.router.Partitions(r.Context(), container, force)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewPartitionsResponse(parts))
}
