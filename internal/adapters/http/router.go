package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/campusops/docvault/internal/core/ports"
	"github.com/campusops/docvault/internal/observability/metrics"
)

const userIDHeader = "X-User-Id"

// RouterConfig bounds the traffic-control middleware and the upload size
// gate enforced before the pipeline sees the body.
type RouterConfig struct {
	ServiceName    string
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
	MaxQueueWait   time.Duration
}

type Router struct {
	ingestor   ports.DocumentIngestor
	reader     ports.DocumentReader
	editor     ports.DocumentEditor
	reconciler ports.Reconciler
	reporter   ports.Reporter
	metrics    *metrics.HTTPServerMetrics
	cfg        RouterConfig
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	reader ports.DocumentReader,
	editor ports.DocumentEditor,
	reconciler ports.Reconciler,
	reporter ports.Reporter,
	m *metrics.HTTPServerMetrics,
	cfg RouterConfig,
) *Router {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "docvault-api"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	if cfg.MaxQueueWait <= 0 {
		cfg.MaxQueueWait = 2 * time.Second
	}
	return &Router{
		ingestor:   ingestor,
		reader:     reader,
		editor:     editor,
		reconciler: reconciler,
		reporter:   reporter,
		metrics:    m,
		cfg:        cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("/v1/documents", rt.documentsCollection)
	mux.HandleFunc("/v1/documents/", rt.documentsResource)
	mux.HandleFunc("/v1/admin/stats", rt.stats)
	mux.HandleFunc("/v1/admin/stats/export", rt.exportStats)
	mux.HandleFunc("/v1/admin/cleanup", rt.cleanup)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.MaxConcurrent, rt.cfg.MaxQueueWait)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.cfg.ServiceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) documentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadDocument(w, r)
	case http.MethodGet:
		rt.searchDocuments(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// documentsResource dispatches /v1/documents/{id} and its sub-routes.
func (rt *Router) documentsResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			rt.getDocument(w, r, id)
		case http.MethodPatch:
			rt.updateDocument(w, r, id)
		case http.MethodDelete:
			rt.deleteDocument(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case "download":
		rt.requireMethod(w, r, http.MethodGet, func() { rt.downloadDocument(w, r, id) })
	case "quarantine":
		rt.requireMethod(w, r, http.MethodPost, func() { rt.quarantineDocument(w, r, id) })
	case "release":
		rt.requireMethod(w, r, http.MethodPost, func() { rt.releaseDocument(w, r, id) })
	case "quarantine-log":
		rt.requireMethod(w, r, http.MethodGet, func() { rt.quarantineLog(w, r, id) })
	default:
		writeError(w, http.StatusNotFound, "unknown route")
	}
}

func (rt *Router) requireMethod(w http.ResponseWriter, r *http.Request, method string, handle func()) {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	handle()
}

func callerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userIDHeader))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	resp := classifyError(err)
	if resp.status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", resp.status, "error", err)
	} else {
		slog.Debug("request rejected", "status", resp.status, "error", err)
	}
	writeError(w, resp.status, resp.message)
}
