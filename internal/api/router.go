package api

import (
	"log/slog"
	"time"

	"github.com/bincms/bincms/internal/api/handlers"
	"github.com/bincms/bincms/internal/api/middleware"
	"github.com/bincms/bincms/internal/auth"
	"github.com/bincms/bincms/internal/config"
	"github.com/bincms/bincms/internal/migration"
	"github.com/bincms/bincms/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *gorm.DB, engine *migration.Engine) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware())
	router.Use(corsMiddleware())

	provider := auth.NewJWTProvider(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	roleSvc := service.NewRoleService(db)
	menuSvc := service.NewMenuService(db)
	roleHandler := handlers.NewRoleHandler(roleSvc, db)
	menuHandler := handlers.NewMenuHandler(menuSvc, db)

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", handlers.HealthCheck(engine))
		public.POST("/auth/login", handlers.Login(db, provider))
	}

	// Protected routes (require authentication)
	protected := router.Group("/api/v1")
	protected.Use(middleware.Authenticate(provider))
	{
		// Menu endpoints; reads are open to any authenticated member,
		// mutations require the menu-management permission.
		protected.GET("/menus", menuHandler.ListMenus)
		protected.GET("/menus/type/:menuType", menuHandler.MenusByType)
		protected.GET("/menus/:id", menuHandler.GetMenu)

		menuAdmin := protected.Group("/menus")
		menuAdmin.Use(middleware.RequirePermission(roleSvc, "MENU_SYSTEM_MENU"))
		{
			menuAdmin.POST("", menuHandler.CreateMenu)
			menuAdmin.PUT("/:id", menuHandler.UpdateMenu)
			menuAdmin.DELETE("/:id", menuHandler.DeleteMenu)
			menuAdmin.PATCH("/:id/activate", menuHandler.ActivateMenu)
		}

		// Role administration
		roleAdmin := protected.Group("/admin/roles")
		roleAdmin.Use(middleware.RequirePermission(roleSvc, "MENU_SYSTEM_ROLE"))
		{
			roleAdmin.GET("", roleHandler.ListRoles)
			roleAdmin.GET("/admin", roleHandler.ListAdminRoles)
			roleAdmin.GET("/permissions", roleHandler.ListPermissions)
			roleAdmin.GET("/code/:code/permissions", roleHandler.ResolvePermissions)
			roleAdmin.GET("/:id", roleHandler.GetRole)
			roleAdmin.POST("", roleHandler.CreateRole)
			roleAdmin.PUT("/:id", roleHandler.UpdateRole)
			roleAdmin.DELETE("/:id", roleHandler.DeleteRole)
			roleAdmin.PATCH("/:id/activate", roleHandler.ActivateRole)
			roleAdmin.PATCH("/:id/deactivate", roleHandler.DeactivateRole)
		}
	}

	// Swagger documentation
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	slog.Info("API router initialized", "mode", cfg.Server.Mode)
	return router
}

// loggingMiddleware logs HTTP requests with a per-request correlation id
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		slog.Info("HTTP request",
			"request_id", requestID,
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"ip", c.ClientIP(),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
