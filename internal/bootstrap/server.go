package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Mnunley1/gearboxe-reservations/api"
	"github.com/Mnunley1/gearboxe-reservations/config"
	"github.com/Mnunley1/gearboxe-reservations/internal/cache"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Events        *api.EventHandler
	Registrations *api.RegistrationHandler
	Webhooks      *api.WebhookHandler
	Checkin       *api.CheckinHandler
}

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, handlers Handlers, redisCache *cache.RedisCache) error {
	router := newRouter(cfg, handlers, redisCache)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newRouter(cfg *config.Config, handlers Handlers, redisCache *cache.RedisCache) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	apiGroup := router.Group("/api")
	handlers.Events.Register(apiGroup)
	handlers.Registrations.Register(apiGroup)
	handlers.Webhooks.Register(apiGroup)
	handlers.Checkin.Register(apiGroup)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/healthz", func(c *gin.Context) {
		if redisCache != nil {
			if err := redisCache.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFS("/swagger", http.Dir(cfg.HTTP.SwaggerDir))
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger/openapi.json"),
		)))
	}

	return router
}
