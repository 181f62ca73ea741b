package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/api/handlers"
	"storefront/internal/api/middleware"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/orders"

	"github.com/gin-gonic/gin"
)

// Services are the domain services the HTTP layer exposes.
type Services struct {
	Catalog  *catalog.Store
	Carts    *cart.Service
	Checkout *checkout.Service
	Orders   *orders.Service
}

type Server struct {
	config *config.Config
	logger *logger.Logger
	db     *database.Database
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, db *database.Database, svc Services) *Server {
	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.Origins()))

	// Initialize handlers
	cookie := handlers.CartCookie{Secure: cfg.CookieSecure}
	productHandler := handlers.NewProductHandler(svc.Catalog, logger)
	cartHandler := handlers.NewCartHandler(svc.Carts, svc.Checkout, cookie, logger)
	checkoutHandler := handlers.NewCheckoutHandler(svc.Checkout, cookie, logger)
	webhookHandler := handlers.NewWebhookHandler(svc.Checkout, logger)
	orderHandler := handlers.NewOrderHandler(svc.Orders, logger)

	s := &Server{
		config: cfg,
		logger: logger,
		db:     db,
		router: router,
	}

	// Routes
	router.GET("/healthz", s.health)

	products := router.Group("/products")
	{
		products.GET("", productHandler.List)
		products.GET("/:handle", productHandler.Get)
	}

	cartRoutes := router.Group("/cart")
	{
		cartRoutes.GET("", cartHandler.Get)
		cartRoutes.POST("/lines", cartHandler.AddLine)
		cartRoutes.PATCH("/lines/:id", cartHandler.UpdateLine)
		cartRoutes.DELETE("/lines/:id", cartHandler.RemoveLine)
	}

	checkoutRoutes := router.Group("/checkout")
	{
		checkoutRoutes.GET("", checkoutHandler.Summary)
		checkoutRoutes.POST("", checkoutHandler.Submit)
		checkoutRoutes.POST("/stripe", checkoutHandler.StartStripe)
		checkoutRoutes.POST("/paypal", checkoutHandler.StartPayPal)
		checkoutRoutes.GET("/paypal/return", checkoutHandler.PayPalReturn)
		checkoutRoutes.GET("/paypal/cancel", checkoutHandler.PayPalCancel)
	}

	router.POST("/webhooks/stripe", webhookHandler.Stripe)

	orderRoutes := router.Group("/orders")
	{
		orderRoutes.GET("/confirmation", orderHandler.Confirmation)
		orderRoutes.GET("/:id", orderHandler.Get)
	}

	admin := router.Group("/admin", middleware.AdminToken(cfg.AdminToken))
	{
		admin.PATCH("/orders/:id/status", orderHandler.UpdateStatus)
	}

	return s
}

func (s *Server) health(c *gin.Context) {
	sqlDB, err := s.db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		s.logger.Error("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// GetRouter exposes the router for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
