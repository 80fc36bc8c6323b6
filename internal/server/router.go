package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/automations/internal/common"
)

// HealthFunc reports whether the gateway's dependencies are reachable.
type HealthFunc func(r *http.Request) error

// NewRouter mounts every kind's endpoints. Pause and resume are shared by all kinds.
func NewRouter(svc *JobService, health HealthFunc, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestContext)
	r.Use(accessLog(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, messageBody{Success: false, Message: "database unavailable"})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	for _, kind := range svc.registry.All() {
		e := kind.Endpoints
		r.Post(e.Create, svc.Create(kind))
		r.Get(e.ListJobs, svc.ListJobs(kind))
		r.Get(e.ListRows, svc.ListRows(kind))
		r.Get(e.PageRows, svc.PageRows(kind))
		r.Post(e.Notify, svc.Notify(kind))
		r.Get(e.Export, svc.Export(kind))
	}
	r.Post("/pausar/{id}", svc.Pause)
	r.Post("/reanudar/{id}", svc.Resume)

	return r
}

// requestContext copies the request id and the acting user into the context the handlers and
// workers see.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := chimw.GetReqID(ctx); id != "" {
			ctx = common.WithRequestID(ctx, id)
		}
		if user := r.Header.Get("X-User-ID"); user != "" {
			ctx = common.WithUserID(ctx, user)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("server.http.request",
				"req_id", common.RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
