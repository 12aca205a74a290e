package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-hall-booking/internal/config"
	"github.com/iliyamo/campus-hall-booking/internal/handler"    // handlers that implement each endpoint
	"github.com/iliyamo/campus-hall-booking/internal/middleware" // JWT authentication and role enforcement
	"github.com/iliyamo/campus-hall-booking/internal/model"
)

// Deps bundles everything the routes need.  Redis may be nil, which
// disables the response cache and the rate limiter.
type Deps struct {
	JWTSecret     string
	Auth          *handler.AuthHandler
	Bookings      *handler.BookingHandler
	Halls         *handler.HallHandler
	Announcements *handler.AnnouncementHandler
	Live          http.Handler
	Health        echo.HandlerFunc
	Redis         *redis.Client
	Cache         config.CacheConfig
	RateLimit     config.RateLimitConfig
	Log           *zap.Logger
}

// Register installs the error handler and every route group on e.
func Register(e *echo.Echo, d Deps) {
	e.HTTPErrorHandler = handler.ErrorHandler(func(err error, c echo.Context) {
		d.Log.Error("unhandled error", zap.Error(err), zap.String("path", c.Path()))
	})
	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterPublic(e, d)
	RegisterUser(e, d)
	RegisterAdmin(e, d)
}

// RegisterRoutes registers infrastructure endpoints: health, metrics and
// the announcement websocket.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if d.Live != nil {
		e.GET("/ws", echo.WrapHandler(d.Live))
	}
}

// RegisterAuth registers the session endpoints.  None of them needs an
// existing session; logout reads whichever token the client still has.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/v1/auth", middleware.NewTokenBucket(d.RateLimit, d.Redis))
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)
}

// RegisterPublic registers unauthenticated browse endpoints.  Catalogue
// and confirmed-booking listings go through the Redis response cache;
// availability and announcements depend on the clock and do not.
func RegisterPublic(e *echo.Echo, d Deps) {
	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	g := e.Group("/v1")
	g.GET("/halls", d.Halls.List, cache)
	g.GET("/halls/:name", d.Halls.Get, cache)
	g.GET("/blocks", d.Halls.Blocks, cache)
	g.GET("/bookings", d.Bookings.ListConfirmed, cache)
	g.GET("/halls/:name/bookings", d.Bookings.ListForHall, cache)
	g.GET("/available-halls", d.Bookings.Available)
	g.GET("/announcements", d.Announcements.List)
}

// RegisterUser registers endpoints for signed-in users.  Submitting and
// cancelling are USER actions; the profile, conflict checks and the
// own-bookings listing are open to admins too.
func RegisterUser(e *echo.Echo, d Deps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
	)
	member := middleware.RequireRole(model.RoleUser, model.RoleAdmin)
	user := middleware.RequireRole(model.RoleUser)

	g.GET("/me", d.Auth.Me, member)
	g.POST("/bookings/check-conflict", d.Bookings.CheckConflict, member)
	g.GET("/users/:email/bookings", d.Bookings.ListForUser, member)
	g.POST("/bookings", d.Bookings.Submit, user)
	g.PUT("/bookings/:id/cancel", d.Bookings.Cancel, user)
}

// RegisterAdmin registers ADMIN endpoints under /v1/admin.  Successful
// writes purge the response cache.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
		middleware.NewCachePurger(d.Cache, d.Redis),
	)

	// ---- Bookings ----
	g.GET("/bookings", d.Bookings.ListAll)
	g.GET("/halls/:name/bookings", d.Bookings.ListForHall)
	g.PUT("/bookings/:id/verify", d.Bookings.Verify)
	g.PUT("/bookings/:id/reject", d.Bookings.Reject)
	g.PUT("/bookings/:id/block", d.Bookings.Block)

	// ---- Halls ----
	g.POST("/halls", d.Halls.Create)
	g.PUT("/halls/:name", d.Halls.Update)
	g.PUT("/halls/:name/block", d.Halls.ToggleBlock)
	g.DELETE("/halls/:name", d.Halls.Delete)

	// ---- Announcements ----
	g.POST("/announcements", d.Announcements.Create)
	g.DELETE("/announcements/:id", d.Announcements.Delete)

	// ---- Users ----
	g.PUT("/users/:email/verify", d.Auth.VerifyUser)
}
