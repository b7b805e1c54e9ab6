package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ono-cafeteria/api/internal/assistant"
	"github.com/ono-cafeteria/api/internal/config"
	"github.com/ono-cafeteria/api/internal/database"
	"github.com/ono-cafeteria/api/internal/enum"
	"github.com/ono-cafeteria/api/internal/handler"
	mw "github.com/ono-cafeteria/api/internal/middleware"
	"github.com/ono-cafeteria/api/internal/service"
	"github.com/ono-cafeteria/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, student scoping, and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, chat *assistant.Client) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // Vite dev server
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", handler.Health(pool))

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	orderService := service.NewOrderService(queries)
	orderHandler := handler.NewOrderHandler(orderService, queries, hub)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Menu catalog: reads for anyone logged in, mutations admin-only
		menuHandler := handler.NewMenuHandler(queries)
		r.Route("/menu", func(r chi.Router) {
			menuHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))
				menuHandler.RegisterAdminRoutes(r)
			})
		})

		// Assistant
		chatHandler := handler.NewChatHandler(chat)
		r.Route("/assistant", chatHandler.RegisterRoutes)

		r.Route("/students", func(r chi.Router) {
			// Roster CRUD, admin-only
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))
				studentHandler := handler.NewStudentHandler(queries)
				studentHandler.RegisterRoutes(r)
			})

			// Orders: a student only reaches their own, an admin any student's
			r.Route("/{sid}/orders", func(r chi.Router) {
				r.Use(mw.RequireStudent)
				orderHandler.RegisterRoutes(r)
			})
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))

			r.Route("/orders", orderHandler.RegisterAdminRoutes)

			dashboardHandler := handler.NewDashboardHandler(queries)
			r.Route("/dashboard", dashboardHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
