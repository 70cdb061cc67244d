package handlers

import (
	"net/http"

	"github.com/SscSPs/library_circulation_app/cmd/docs"
	portssvc "github.com/SscSPs/library_circulation_app/internal/core/ports/services"
	"github.com/SscSPs/library_circulation_app/internal/middleware"
	"github.com/SscSPs/library_circulation_app/internal/platform/config"
	"github.com/SscSPs/library_circulation_app/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
)

// RouteDependencies carries the optional infrastructure used by the routes. Nil
// fields disable the corresponding feature.
type RouteDependencies struct {
	Realtime    RealtimeServer
	RateLimiter *limiter.Limiter
	Analytics   *utils.PosthogClientWrapper
}

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	deps RouteDependencies,
) {
	registerValidators()

	r.Use(cors.New(corsConfig(cfg)))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	setupAPIV1Routes(r, cfg, services, deps)

	setupSwaggerRoutes(r, cfg)
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Request-ID")
	corsCfg.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	if len(cfg.CORSAllowOrigins) == 0 || (len(cfg.CORSAllowOrigins) == 1 && cfg.CORSAllowOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowOrigins
		corsCfg.AllowCredentials = true
	}
	return corsCfg
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	deps RouteDependencies,
) {
	handlers := []gin.HandlerFunc{}
	if deps.RateLimiter != nil {
		handlers = append(handlers, middleware.RateLimit(deps.RateLimiter))
	}
	handlers = append(handlers, middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	if deps.Analytics != nil {
		handlers = append(handlers, middleware.PosthogMiddleware(deps.Analytics))
	}
	v1 := r.Group("/api/v1", handlers...)

	registerCirculationRoutes(v1, services.Circulation, services.History)
	registerFineRoutes(v1, services.Fine)
	registerHistoryRoutes(v1, services.History)
	registerBorrowerRoutes(v1, services.Eligibility, services.Circulation, services.Fine)
	if deps.Realtime != nil {
		registerRealtimeRoutes(v1, deps.Realtime, cfg.CORSAllowOrigins)
	}
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
