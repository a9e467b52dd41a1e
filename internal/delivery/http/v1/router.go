package v1

import (
	"net/http"
	"time"

	"recruitment-backend/internal/delivery/http/middleware"
	"recruitment-backend/internal/delivery/http/response"
	"recruitment-backend/internal/domain"
	"recruitment-backend/internal/usecase"
	"recruitment-backend/pkg/auth"
	"recruitment-backend/pkg/metrics"
	"recruitment-backend/pkg/security"
	"recruitment-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RateLimits configures the global and login limiters. A zero Limit disables one.
type RateLimits struct {
	Window      time.Duration
	GlobalLimit int
	LoginLimit  int
}

type RouterDeps struct {
	AuthUC         domain.AuthUsecase
	ApplicationUC  domain.ApplicationUsecase
	HealthUC       usecase.HealthUsecase
	Tokens         *auth.TokenIssuer
	SecurityLogger *security.SecurityLogger
	Metrics        *metrics.Metrics
	Redis          *goredis.Client
	RateLimits     RateLimits
	Cookie         CookieOptions
	AllowedOrigins []string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validation.RegisterValidators(v)
	}

	r := gin.New()
	limiter := middleware.NewRateLimiter(deps.Redis, deps.SecurityLogger)

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(deps.AllowedOrigins...)) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.SecurityHeadersMiddleware())
	if deps.RateLimits.GlobalLimit > 0 {
		r.Use(limiter.Middleware(middleware.GlobalRateLimitConfig(deps.RateLimits.GlobalLimit, deps.RateLimits.Window)))
	}
	r.Use(middleware.ErrorHandler())

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := r.Group("/v1")

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		if deps.HealthUC == nil {
			response.Success(c, http.StatusOK, "System operational", nil)
			return
		}
		report, healthy := deps.HealthUC.Check(c.Request.Context())
		if !healthy {
			response.Error(c, http.StatusServiceUnavailable, "System degraded", report)
			return
		}
		response.Success(c, http.StatusOK, "System operational", report)
	})

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	loginLimit := func(c *gin.Context) { c.Next() }
	if deps.RateLimits.LoginLimit > 0 {
		loginLimit = limiter.Middleware(middleware.LoginRateLimitConfig(deps.RateLimits.LoginLimit, deps.RateLimits.Window))
	}

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.Authenticate(deps.Tokens, deps.AuthUC, deps.SecurityLogger))
	{
		NewAuthHandler(v1, protected, deps.AuthUC, deps.Cookie, loginLimit)
		NewApplicationHandler(protected, deps.ApplicationUC, deps.AuthUC, deps.SecurityLogger)
	}

	return r
}
