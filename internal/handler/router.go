package handler

import (
	"errors"
	"net/http"
	"time"

	"admin-console/internal/config"
	"admin-console/internal/util"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

var (
	errNotFound         = errors.New("endpoint not found")
	errMethodNotAllowed = errors.New("method not allowed")
)

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(cfg *config.Config, loginHandler *LoginHandler, adminHandler *AdminHandler, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	// Middleware stack
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration; the console session cookie needs credentials
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	out := responder{logger: logger}
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		util.Debug("Health check requested")
		out.respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "admin-console"})
	})

	// API routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(Session(cfg.Login.SessionCookie, cfg.Server.SecureCookies))
		loginHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(loginHandler.RequireAuth)
			loginHandler.RegisterAuthenticatedRoutes(r)
			adminHandler.RegisterRoutes(r)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		out.respondWithJSON(w, http.StatusNotFound, errorResponse(errNotFound, "Endpoint not found"))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		out.respondWithJSON(w, http.StatusMethodNotAllowed, errorResponse(errMethodNotAllowed, "Method not allowed"))
	})

	return router
}

// LoggerMiddleware creates a middleware that logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("request_id", middleware.GetReqID(r.Context())),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
					util.String("user_agent", r.UserAgent()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
