// Package presentation serves a read-only HTTP browser over stored artifacts.
package presentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Caia-Tech/caia-corpus/internal/storage"
	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// API provides HTTP endpoints for browsing artifacts
type API struct {
	renderer *Renderer
	store    ArtifactStore
	config   *APIConfig
}

// APIConfig configures the presentation API
type APIConfig struct {
	Port       int    `json:"port"`
	Host       string `json:"host"`
	BasePath   string `json:"base_path"`
	EnableCORS bool   `json:"enable_cors"`
}

// NewAPI creates a new presentation API
func NewAPI(renderer *Renderer, store ArtifactStore, config *APIConfig) *API {
	if renderer == nil {
		renderer = NewRenderer(nil)
	}
	if config == nil {
		config = &APIConfig{
			Port:       8081,
			Host:       "localhost",
			BasePath:   "/api/v1",
			EnableCORS: true,
		}
	}

	return &API{
		renderer: renderer,
		store:    store,
		config:   config,
	}
}

// Handler returns the routed handler with middleware
func (api *API) Handler() http.Handler {
	return api.addMiddleware(api.setupRoutes())
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (api *API) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", api.config.Host, api.config.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", addr).Msg("Starting artifact browser")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (api *API) setupRoutes() *mux.Router {
	router := mux.NewRouter()
	base := router.PathPrefix(api.config.BasePath).Subrouter()

	base.HandleFunc("/artifacts", api.listArtifacts).Methods("GET")
	base.HandleFunc("/artifacts/{name}/pairs", api.getPairs).Methods("GET")
	base.HandleFunc("/artifacts/{name}/statistics", api.getStatistics).Methods("GET")
	base.HandleFunc("/artifacts/{name}/export", api.exportArtifact).Methods("GET")

	base.HandleFunc("/health", api.healthCheck).Methods("GET")

	return router
}

func (api *API) addMiddleware(router http.Handler) http.Handler {
	if api.config.EnableCORS {
		router = api.corsMiddleware(router)
	}
	return api.loggingMiddleware(router)
}

func (api *API) listArtifacts(w http.ResponseWriter, r *http.Request) {
	infos, err := api.store.ListArtifacts(r.Context())
	if err != nil {
		api.sendError(w, http.StatusInternalServerError, "Failed to list artifacts", err)
		return
	}

	summaries := make([]ArtifactSummary, 0, len(infos))
	for _, info := range infos {
		summaries = append(summaries, ArtifactSummary{
			Name:       info.Name,
			Size:       info.Size,
			SizeHuman:  humanSize(info.Size),
			ModifiedAt: info.ModifiedAt,
		})
	}

	api.sendJSON(w, map[string]interface{}{
		"artifacts": summaries,
		"total":     len(summaries),
	})
}

func (api *API) getPairs(w http.ResponseWriter, r *http.Request) {
	name, pairs, ok := api.loadPairs(w, r)
	if !ok {
		return
	}

	params := r.URL.Query()
	page, _ := strconv.Atoi(params.Get("page"))
	pageSize, _ := strconv.Atoi(params.Get("page_size"))

	api.sendJSON(w, api.renderer.RenderPage(name, pairs, page, pageSize))
}

func (api *API) getStatistics(w http.ResponseWriter, r *http.Request) {
	name, pairs, ok := api.loadPairs(w, r)
	if !ok {
		return
	}

	api.sendJSON(w, map[string]interface{}{
		"artifact":   name,
		"statistics": api.renderer.Statistics(pairs),
	})
}

func (api *API) exportArtifact(w http.ResponseWriter, r *http.Request) {
	name, pairs, ok := api.loadPairs(w, r)
	if !ok {
		return
	}

	format := OutputFormat(r.URL.Query().Get("format"))
	data, err := api.renderer.Export(name, pairs, format)
	if err != nil {
		api.sendError(w, http.StatusBadRequest, "Export failed", err)
		return
	}

	if format == "" {
		format = api.renderer.config.DefaultFormat
	}
	w.Header().Set("Content-Type", ContentType(format))
	w.Write(data)
}

func (api *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	storageStatus := "operational"
	code := http.StatusOK
	if err := api.store.Health(r.Context()); err != nil {
		status = "degraded"
		storageStatus = err.Error()
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now(),
		"version":   "0.1.0",
		"services": map[string]string{
			"storage": storageStatus,
		},
	})
}

// loadPairs reads and decodes the artifact named in the route, writing the error response on failure
func (api *API) loadPairs(w http.ResponseWriter, r *http.Request) (string, []corpus.Pair, bool) {
	name := mux.Vars(r)["name"]
	if err := storage.ValidateName(name); err != nil {
		api.sendError(w, http.StatusBadRequest, "Invalid artifact name", err)
		return "", nil, false
	}

	artifact, err := api.store.GetArtifact(r.Context(), name)
	if errors.Is(err, storage.ErrArtifactNotFound) {
		api.sendError(w, http.StatusNotFound, "Artifact not found", err)
		return "", nil, false
	}
	if err != nil {
		api.sendError(w, http.StatusInternalServerError, "Failed to read artifact", err)
		return "", nil, false
	}

	pairs, err := corpus.ReadPairs(bytes.NewReader(artifact.Data))
	if err != nil {
		api.sendError(w, http.StatusUnprocessableEntity, "Artifact is not a pair artifact", err)
		return "", nil, false
	}
	return name, pairs, true
}

// Helper methods

func (api *API) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (api *API) sendError(w http.ResponseWriter, status int, message string, err error) {
	log.Error().Err(err).Str("message", message).Int("status", status).Msg("API error")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": time.Now(),
	}
	if err != nil {
		response["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}

// Middleware implementations

func (api *API) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (api *API) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Msg("Browser request")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
