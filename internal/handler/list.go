package handler

import (
	"encoding/json"
	"net/http"

	"QueryKit/internal/builder"
	"QueryKit/internal/logger"
	"QueryKit/internal/query"
)

// List serves the collection endpoint for one entity. The whole query
// surface lives in the URL: filter[...], sort, include, fields[...],
// page/per_page/cursor/pagination_type.
func List(svc *builder.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			logger.Warn("method_not_allowed", map[string]any{
				"path":   r.URL.Path,
				"method": r.Method,
			})
			http.Error(w, "Only GET allowed", http.StatusMethodNotAllowed)
			return
		}

		params := query.Parse(r.URL.Query())
		result, err := svc.List(r.Context(), params)
		if err != nil {
			logger.Error("list_failed", map[string]any{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
			http.Error(w, "Failed to build result: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.Error("write_response_failed", map[string]any{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
		}
	}
}
