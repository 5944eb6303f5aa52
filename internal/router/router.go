package router // package router builds the echo instance and registers routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/outing-coordinator/internal/config"
	"github.com/iliyamo/outing-coordinator/internal/handler"
	"github.com/iliyamo/outing-coordinator/internal/logging"
	"github.com/iliyamo/outing-coordinator/internal/metrics"
	"github.com/iliyamo/outing-coordinator/internal/middleware"
)

// Options carries what the router needs besides the handler.  Redis may
// be nil, in which case rate limiting and caching pass through.
type Options struct {
	Logger         zerolog.Logger
	IdentityHeader string
	AllowOrigins   []string
	RateLimit      config.RateLimitConfig
	Cache          config.CacheConfig
	Redis          *redis.Client
}

// New returns an echo instance with the global middleware chain and every
// route registered.
func New(h *handler.OutingHandler, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(logging.EchoMiddleware(opts.Logger))
	e.Use(metrics.Middleware())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: opts.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, identityHeader(opts.IdentityHeader)},
	}))

	RegisterRoutes(e)
	RegisterOutings(e, h, opts)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.Health)
	e.GET("/healthz", handler.Healthz)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterOutings registers the outing and interest request API.  Every
// route requires a caller identity; the rate limiter and response cache
// are keyed by it, so they run after RequireIdentity.
func RegisterOutings(e *echo.Echo, h *handler.OutingHandler, opts Options) {
	// Attached per route: echo runs group middleware for unmatched paths
	// too, which would answer unknown routes with 401.
	api := []echo.MiddlewareFunc{
		middleware.RequireIdentity(opts.IdentityHeader),
		middleware.NewTokenBucket(opts.RateLimit, opts.Redis),
	}
	cached := append(api[:len(api):len(api)], middleware.NewRedisCache(opts.Cache, opts.Redis))

	e.GET("/outings", h.ListOutings, cached...)
	e.POST("/outings", h.CreateOuting, api...)
	e.PATCH("/outings/:id/close", h.CloseOuting, api...)
	e.GET("/outings/:id/interest_requests", h.ListOutingInterestRequests, cached...)

	e.POST("/interest_requests", h.CreateInterestRequest, api...)
	e.GET("/interest_requests", h.ListMyInterestRequests, cached...)
	e.PATCH("/interest_requests/:id", h.DecideInterestRequest, api...)
}

func identityHeader(h string) string {
	if h == "" {
		return middleware.DefaultIdentityHeader
	}
	return h
}

// errorHandler renders echo errors as {"error": "..."}.  Unknown routes
// become "Not Found" and anything that is not an *echo.HTTPError becomes
// "Internal Server Error".
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := http.StatusText(status)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if s, ok := he.Message.(string); ok && status != http.StatusNotFound {
			msg = s
		} else {
			msg = http.StatusText(status)
		}
	} else {
		logging.Ctx(c.Request().Context()).Error().Err(err).Msg("unhandled error")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, echo.Map{"error": msg})
	}
	if err != nil {
		logging.Ctx(c.Request().Context()).Warn().Err(err).Msg("error response not written")
	}
}
