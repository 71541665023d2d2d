package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tropicaldog17/replyqueue/internal/logger"
)

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func() error

// NewRouter wires the admin and health routes.
func NewRouter(admin *AdminHandler, health HealthFunc, log *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(logger.OrNop(log)))

	r.HandleFunc("/health", healthHandler(health)).Methods(http.MethodGet)

	a := r.PathPrefix("/admin").Subrouter()
	a.HandleFunc("/approve_batch", admin.HandleApproveBatch).Methods(http.MethodGet, http.MethodPost)
	a.HandleFunc("/reject_batch", admin.HandleRejectBatch).Methods(http.MethodGet, http.MethodPost)
	a.HandleFunc("/remove_item", admin.HandleRemoveItem).Methods(http.MethodGet, http.MethodPost)
	a.HandleFunc("/cancel_batch", admin.HandleCancelBatch).Methods(http.MethodGet, http.MethodPost)
	a.HandleFunc("/batches/{id}", admin.HandleGetBatch).Methods(http.MethodGet)
	a.HandleFunc("/outbox", admin.HandleListOutbox).Methods(http.MethodGet)
	return r
}

func healthHandler(check HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "replyqueue",
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger logs method, path and status; query strings are left out since they carry the token.
func requestLogger(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}
