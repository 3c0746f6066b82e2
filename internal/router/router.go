package router

import (
	"net/http"

	"QueryKit/internal/builder"
	"QueryKit/internal/config"
	"QueryKit/internal/handler"
	"QueryKit/internal/logger"

	"github.com/google/uuid"
)

// InitRoutes registers one collection endpoint per entity service.
func InitRoutes(cfg *config.Config, services map[string]*builder.Service) {
	for name, svc := range services {
		path := cfg.BasePath + "/" + name
		http.HandleFunc(path, withCORS(cfg.CORS, withLogging(handler.List(svc))))
		logger.Info("route_registered", map[string]any{
			"path":   path,
			"entity": name,
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)

		fields := map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     sw.status,
			"request_id": requestID,
		}
		switch {
		case sw.status >= 500:
			logger.Error("response", fields)
		case sw.status >= 400:
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	}
}
