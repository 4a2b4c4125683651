package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fornalha-pos/api/internal/bot"
	"github.com/fornalha-pos/api/internal/config"
	"github.com/fornalha-pos/api/internal/database"
	"github.com/fornalha-pos/api/internal/enum"
	"github.com/fornalha-pos/api/internal/handler"
	mw "github.com/fornalha-pos/api/internal/middleware"
	"github.com/fornalha-pos/api/internal/service"
	"github.com/fornalha-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Catalog reads and the checkout are public; everything else sits behind JWT
// auth, with catalog writes, user management and reports gated to ADMIN.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, publisher handler.ReceiptPublisher, sender bot.Sender) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",          // cardápio dev server
			"http://localhost:5174",          // painel dev server
			"https://pedido.fornalha.com.br", // customer-facing menu
			"https://painel.fornalha.com.br", // back-office panel
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := mw.Authenticate(cfg.JWTSecret)
	adminOnly := mw.RequireRole(enum.UserRoleAdmin)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket live feed; auth handled internally via ?token= query param.
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newOrderStore)
	orderHandler := handler.NewOrderHandler(queries, orderService, hub)

	// Catalog: public reads for the customer menu, ADMIN writes.
	categoryHandler := handler.NewCategoryHandler(queries)
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", categoryHandler.List)
		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			categoryHandler.RegisterRoutes(r)
		})
	})

	comboHandler := handler.NewComboHandler(queries)
	r.Route("/combos", func(r chi.Router) {
		r.Get("/", comboHandler.List)
		r.Get("/{id}", comboHandler.Get)
		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			comboHandler.RegisterRoutes(r)
		})
	})

	flavorHandler := handler.NewFlavorHandler(queries)
	r.Route("/flavors", func(r chi.Router) {
		r.Get("/", flavorHandler.List)
		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			flavorHandler.RegisterRoutes(r)
		})
	})

	areaHandler := handler.NewAreaHandler(queries)
	r.Route("/delivery-areas", func(r chi.Router) {
		r.Get("/", areaHandler.List)
		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			areaHandler.RegisterRoutes(r)
		})
	})

	// Orders: the checkout is public, the lifecycle belongs to the staff.
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", orderHandler.Create)
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			orderHandler.RegisterRoutes(r)
		})
	})

	// Staff routes.
	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/auth/me", authHandler.Me)
		r.Get("/marketplace/orders", orderHandler.Marketplace)

		printHandler := handler.NewPrintHandler(queries, publisher)
		r.Post("/print", printHandler.Print)

		chatbotHandler := handler.NewChatbotHandler(queries, sender)
		r.Post("/chatbot/send", chatbotHandler.Send)

		registerHandler := handler.NewRegisterHandler(queries)
		r.Route("/register", registerHandler.RegisterRoutes)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)

			r.Route("/users", authHandler.RegisterUserRoutes)

			reportHandler := handler.NewReportHandler(queries)
			r.Route("/reports", reportHandler.RegisterRoutes)
		})
	})

	return r
}
