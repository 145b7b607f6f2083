package routes

import (
	"net/http"

	"github.com/openpricemap/openpricemap/backend/internal/api/handlers"
	"github.com/openpricemap/openpricemap/backend/internal/api/middleware"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	tileHandler *handlers.TileHandler
	runHandler  *handlers.RunHandler

	cacheMiddleware *middleware.CacheMiddleware
}

// NewRouter creates a new router
func NewRouter(
	tileHandler *handlers.TileHandler,
	runHandler *handlers.RunHandler,
	cacheMiddleware *middleware.CacheMiddleware,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		tileHandler:     tileHandler,
		runHandler:      runHandler,
		cacheMiddleware: cacheMiddleware,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	r.mux.HandleFunc("GET /api/tiles/{z}/{x}/{y}", r.tileHandler.GetTile)
	r.mux.HandleFunc("GET /api/runs/latest", r.runHandler.GetLatestRun)

	var handler http.Handler = r.mux
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
