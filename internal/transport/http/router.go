package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/waste3d/course-marketplace/internal/infrastructure/security"
	"github.com/waste3d/course-marketplace/internal/middleware"
)

type RouterConfig struct {
	AllowedOrigins []string
	EnrollLimit    int
	EnrollWindow   time.Duration
}

func NewRouter(
	courseHandler *CourseHandler,
	enrollmentHandler *EnrollmentHandler,
	webhookHandler *WebhookHandler,
	tokens middleware.TokenValidator,
	limiter *middleware.RateLimiter,
	logger *slog.Logger,
	cfg RouterConfig,
) *gin.Engine {
	if cfg.EnrollLimit <= 0 {
		cfg.EnrollLimit = 10
	}
	if cfg.EnrollWindow <= 0 {
		cfg.EnrollWindow = time.Minute
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	config := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		config.AllowOrigins = cfg.AllowedOrigins
	} else {
		config.AllowAllOrigins = true
	}
	config.AllowCredentials = !config.AllowAllOrigins
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}
	r.Use(cors.New(config))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := middleware.AuthMiddleware(tokens)

	api := r.Group("/api/v1")
	{
		courses := api.Group("/courses")
		{
			courses.GET("", courseHandler.List)
			courses.GET("/:id", middleware.OptionalAuth(tokens), courseHandler.GetOne)
			courses.POST("/:id/enroll", auth, limiter.Limit("enroll", cfg.EnrollLimit, cfg.EnrollWindow), enrollmentHandler.Enroll)
			courses.POST("/:id/rating", auth, enrollmentHandler.Rate)
		}

		user := api.Group("/user")
		user.Use(auth)
		{
			user.GET("/enrollments", enrollmentHandler.MyEnrollments)
		}

		educator := api.Group("/educator")
		educator.Use(auth, middleware.RequireRole(security.RoleEducator))
		{
			educator.POST("/courses", courseHandler.Publish)
			educator.DELETE("/courses/:id", courseHandler.Delete)
		}

		api.POST("/payments/webhook", webhookHandler.Receive)
	}

	return r
}
