package routes

import (
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/chatrooms/app"
	"github.com/upb/chatrooms/middleware"
	"github.com/upb/chatrooms/services/access"
	"github.com/upb/chatrooms/utils"
)

const requestTimeout = 60 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	// Panics reach Sentry first, then Recoverer answers 500
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	r.Use(chimiddleware.Timeout(requestTimeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authn := deps.AuthMiddleware
	can := deps.AccessMiddleware.Can

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", deps.AuthHandler.HandleSignup)
		r.Post("/login", deps.AuthHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireAuth)
			r.Post("/logout", deps.AuthHandler.HandleLogout)
			r.Get("/me", deps.AuthHandler.HandleMe)
			r.Get("/events", deps.EventsHandler.HandleList)
		})

		r.Get("/{provider}", deps.AuthHandler.HandleProviderLogin)
		// A session on the callback links the provider to that account
		r.With(authn.OptionalAuth).Get("/{provider}/callback", deps.AuthHandler.HandleProviderCallback)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/status", deps.HealthHandler.HandleStatus)

		// Room routes; each declares the action the gate checks
		r.Route("/rooms/{id}", func(r chi.Router) {
			r.Use(authn.RequireAuth)
			rooms := deps.RoomHandler

			r.With(can(access.ActionEditRoom)).Put("/", rooms.HandleNotImplemented)
			r.With(can(access.ActionEditRoom)).Delete("/", rooms.HandleDelete)

			r.With(can(access.ActionJoinRoom)).Post("/users", rooms.HandleJoin)
			r.With(can(access.ActionLeaveRoom)).Delete("/users/{userId}", rooms.HandleLeave)

			r.With(can(access.ActionGetMessages)).Get("/messages", rooms.HandleNotImplemented)
			r.With(can(access.ActionEditMessages)).Put("/messages/{messageId}", rooms.HandleNotImplemented)
			r.With(can(access.ActionEditMessages)).Delete("/messages/{messageId}", rooms.HandleNotImplemented)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "", nil)
	})

	return r
}
