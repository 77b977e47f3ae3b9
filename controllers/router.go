package controllers

import (
	"net/http"
	"slices"
	"time"

	"envmon/middlewares"
	"envmon/services"
	"envmon/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig carries everything the HTTP layer depends on.
type RouterConfig struct {
	Logger         *zap.Logger
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string

	Users        *services.UserService
	Sensors      *services.SensorService
	Maintenance  *services.MaintenanceService
	Malfunctions *services.MalfunctionService
	Settings     *services.SettingsService
	Environment  *services.EnvironmentalService
	Alerts       *services.AlertService
	Readings     *services.ReadingService
	Dashboard    *services.DashboardService
	Thresholds   *utils.Thresholds
	Hub          *Hub
}

// NewRouter wires every handler under /api plus the /ws endpoint.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(cfg.Logger))
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := r.Group("/api")
	auth := middlewares.AuthMiddleware(cfg.JWTSecret, cfg.Users)
	protected := r.Group("/api", auth)

	NewAuthHandler(cfg.Users, cfg.JWTSecret, cfg.TokenTTL).RegisterRoutes(public, protected)
	NewUserHandler(cfg.Users).RegisterRoutes(protected)
	NewSensorHandler(cfg.Sensors, cfg.Settings).RegisterRoutes(protected)
	NewDeviceHandler(cfg.Sensors).RegisterRoutes(protected)
	NewMalfunctionHandler(cfg.Malfunctions).RegisterRoutes(protected)
	NewMaintenanceHandler(cfg.Maintenance).RegisterRoutes(protected)
	NewReadingHandler(cfg.Readings).RegisterRoutes(protected)
	NewHistoryHandler(cfg.Environment, cfg.Thresholds).RegisterRoutes(protected)
	NewAlertHandler(cfg.Alerts).RegisterRoutes(protected)
	NewSettingsHandler(cfg.Settings).RegisterRoutes(protected)
	NewDashboardHandler(cfg.Dashboard).RegisterRoutes(protected)

	r.GET("/ws", auth, cfg.Hub.HandleWebSocket)
	return r
}

// corsConfig allows every origin when none are listed or "*" is present.
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middlewares.RequestIDHeader},
		ExposeHeaders:    []string{middlewares.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
