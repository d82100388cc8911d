package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mesa-cafe/api/internal/config"
	"github.com/mesa-cafe/api/internal/enum"
	"github.com/mesa-cafe/api/internal/handler"
	mw "github.com/mesa-cafe/api/internal/middleware"
	"github.com/mesa-cafe/api/internal/service"
	"github.com/mesa-cafe/api/internal/store"
	"github.com/mesa-cafe/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Customer routes hang off /t/{code} and are authenticated by the table's
// QR token alone; staff routes require a JWT.
func New(cfg *config.Config, queries *store.Queries, pool *pgxpool.Pool, hub *ws.Hub, kitchen handler.KitchenPublisher) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	orderService := service.NewOrderService(pool, func(db store.DBTX) service.OrderStore {
		return store.New(db)
	})
	orderHandler := handler.NewOrderHandler(orderService, queries, hub, kitchen)

	menuHandler := handler.NewMenuHandler(queries)

	// Customer routes: the QR token in the URL is the only credential
	r.Route("/t/{code}", func(r chi.Router) {
		tableHandler := handler.NewTableHandler(queries)
		r.Get("/", tableHandler.Resolve)
		r.Get("/menu", menuHandler.PublicMenu)
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeTableWS(hub, queries, w, r)
		})
		orderHandler.RegisterPublicRoutes(r)
	})

	// Staff WebSocket (auth via query param, headers aren't available on upgrade)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeStaffWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Any staff role
		paymentHandler := handler.NewPaymentHandler(queries, hub)
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)

			// Payments (nested under orders)
			r.Route("/{id}/payments", paymentHandler.RegisterRoutes)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))

			categoryHandler := handler.NewCategoryHandler(queries)
			r.Route("/categories", categoryHandler.RegisterRoutes)

			r.Route("/menu-items", menuHandler.RegisterRoutes)

			tableHandler := handler.NewTableHandler(queries)
			r.Route("/tables", tableHandler.RegisterRoutes)

			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)

			reportHandler := handler.NewReportHandler(queries)
			r.Route("/reports", reportHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
