package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/resto-pos/api/internal/config"
	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
	"github.com/resto-pos/api/internal/handler"
	mw "github.com/resto-pos/api/internal/middleware"
	"github.com/resto-pos/api/internal/service"
	"github.com/resto-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Services
	shiftService := service.NewShiftService(pool, func(db database.DBTX) service.ShiftStore {
		return database.New(db)
	})
	stockService := service.NewStockService(pool, func(db database.DBTX) service.StockStore {
		return database.New(db)
	})
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		authHandler.RegisterProtectedRoutes(r)

		// Admin/manager-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager))

			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)

			supplierHandler := handler.NewSupplierHandler(queries)
			r.Route("/suppliers", supplierHandler.RegisterRoutes)

			menuHandler := handler.NewMenuHandler(queries, pool, func(db database.DBTX) handler.MenuStore {
				return database.New(db)
			})
			r.Route("/menu", menuHandler.RegisterRoutes)

			reportsHandler := handler.NewReportsHandler(queries)
			r.Route("/reports", reportsHandler.RegisterRoutes)

			settingsHandler := handler.NewSettingsHandler(queries)
			r.Route("/settings", settingsHandler.RegisterRoutes)
		})

		// Shifts: reads for everyone, lifecycle for managers
		shiftHandler := handler.NewShiftHandler(queries, shiftService, hub)
		r.Route("/shifts", func(r chi.Router) {
			shiftHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager))
				shiftHandler.RegisterManagerRoutes(r)
			})
		})

		// Stock ledger
		deliveryHandler := handler.NewDeliveryHandler(queries, stockService)
		r.Route("/deliveries", deliveryHandler.RegisterRoutes)

		writeOffHandler := handler.NewWriteOffHandler(queries, stockService)
		r.Route("/write-offs", writeOffHandler.RegisterRoutes)

		// Ingredient catalog
		ingredientHandler := handler.NewIngredientHandler(queries)
		r.Route("/ingredients", ingredientHandler.RegisterRoutes)

		// Stop lists
		stopListHandler := handler.NewStopListHandler(queries, shiftService, hub)
		r.Route("/stop-list", stopListHandler.RegisterRoutes)

		// Orders and payments
		orderHandler := handler.NewOrderHandler(queries, orderService, hub)
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)

			paymentHandler := handler.NewPaymentHandler(queries, orderService, hub)
			r.Route("/{id}/payments", func(r chi.Router) {
				paymentHandler.RegisterRoutes(r)

				r.Group(func(r chi.Router) {
					r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager, enum.UserRoleCashier))
					paymentHandler.RegisterCashierRoutes(r)
				})
			})
		})
	})

	return r
}
