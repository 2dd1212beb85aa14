package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/liamchampton/write-my-performance-review/internal/observability"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs every request with its status and latency and records
// the request metrics. Incoming request ids are kept, otherwise one is minted.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		observability.RecordHTTPRequest(routeLabel(r.URL.Path), r.Method, rec.status, elapsed)
		log.Printf("%s %s %d %s request_id=%s", r.Method, r.URL.Path, rec.status, elapsed.Round(time.Microsecond), requestID)
	})
}

// routeLabel collapses paths into a bounded set of metric labels.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/activities/"):
		return "/api/activities/{id}"
	case strings.HasPrefix(path, "/api/"), path == "/healthz", path == "/metrics":
		return path
	default:
		return "static"
	}
}

// CORS answers preflight requests and allows the configured origin.
func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StaticFiles serves dir from fs, or returns nil when dir does not exist.
func StaticFiles(fs afero.Fs, dir string) http.Handler {
	if dir == "" {
		return nil
	}
	if ok, err := afero.DirExists(fs, dir); err != nil || !ok {
		return nil
	}
	return http.FileServer(afero.NewHttpFs(fs).Dir(dir))
}
