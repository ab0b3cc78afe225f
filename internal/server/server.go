package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/Rokatacaem/SistemaBillar/internal/auth"
	"github.com/Rokatacaem/SistemaBillar/internal/config"
	"github.com/Rokatacaem/SistemaBillar/internal/member"
	"github.com/Rokatacaem/SistemaBillar/internal/notify"
	"github.com/Rokatacaem/SistemaBillar/internal/product"
	"github.com/Rokatacaem/SistemaBillar/internal/sale"
	"github.com/Rokatacaem/SistemaBillar/internal/session"
	"github.com/Rokatacaem/SistemaBillar/internal/shift"
	"github.com/Rokatacaem/SistemaBillar/internal/table"
)

type Server struct {
	router   *gin.Engine
	db       *sqlx.DB
	config   *config.Config
	notifier *notify.Service
	httpSrv  *http.Server
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notify.Service) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RequestLoggingMiddleware())

	memberHandler := member.NewHandler(db, cfg.JWTSecret)
	productHandler := product.NewHandler(db)
	tableHandler := table.NewHandler(db)
	sessionHandler := session.NewHandler(db)
	saleHandler := sale.NewHandler(db)
	shiftHandler := shift.NewHandler(db, notifier)

	public := router.Group("/auth")
	public.Use(RateLimitMiddleware(5, 10))
	{
		public.POST("/login", memberHandler.Login)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.POST("/auth/change-password", memberHandler.ChangePassword)

		protected.GET("/members", memberHandler.ListSocios)
		protected.POST("/members", memberHandler.Create)
		protected.GET("/members/:userID", memberHandler.Get)
		protected.PUT("/members/:userID", memberHandler.Update)
		protected.POST("/members/:userID/pay-membership", memberHandler.PayMembership)
		protected.GET("/users", memberHandler.List)
		protected.POST("/users/:userID/pay", memberHandler.PayDebt)
		protected.GET("/users/:userID/sales", memberHandler.SalesHistory)

		protected.GET("/products", productHandler.List)
		protected.POST("/products/:productID/stock", productHandler.AddStock)
		protected.GET("/products/:productID/stock-history", productHandler.StockHistory)

		protected.GET("/tables", tableHandler.List)
		protected.GET("/tables/:tableID/session", sessionHandler.ActiveByTable)
		protected.POST("/tables/:tableID/settle", sessionHandler.Settle)

		protected.POST("/sessions", sessionHandler.Start)
		protected.GET("/sessions/:sessionID", sessionHandler.Detail)
		protected.POST("/sessions/:sessionID/players", sessionHandler.AddPlayer)
		protected.POST("/sessions/:sessionID/players/:playerID/end", sessionHandler.EndPlayer)
		protected.POST("/sessions/:sessionID/items", sessionHandler.AddItem)

		protected.POST("/sales", saleHandler.CreateDirect)
		protected.POST("/sales/returns", saleHandler.Return)
		protected.POST("/sales/exchanges", saleHandler.Exchange)

		protected.POST("/shifts", shiftHandler.Open)
		protected.GET("/shifts/current", shiftHandler.Current)
		protected.POST("/shifts/expenses", shiftHandler.AddExpense)
		protected.POST("/shifts/close", shiftHandler.Close)
		protected.GET("/shifts/history", shiftHandler.History)
		protected.GET("/shifts/:shiftID/expenses", shiftHandler.Expenses)
	}

	adminMiddleware := auth.RequireRole("ADMIN")
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/products", productHandler.Create)
		admin.PUT("/products/:productID", productHandler.Update)
		admin.DELETE("/products/:productID", productHandler.Delete)

		admin.POST("/tables", tableHandler.Create)
		admin.PUT("/tables/:tableID", tableHandler.Update)
		admin.DELETE("/tables/:tableID", tableHandler.Delete)

		admin.DELETE("/members/:userID", memberHandler.Delete)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router:   router,
		db:       db,
		config:   cfg,
		notifier: notifier,
	}
}

func (s *Server) Start(port string) error {
	s.httpSrv = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
