package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/eventloop/internal/auth"
	"github.com/geocoder89/eventloop/internal/config"
	"github.com/geocoder89/eventloop/internal/domain/user"
	"github.com/geocoder89/eventloop/internal/http/handlers"
	"github.com/geocoder89/eventloop/internal/http/middlewares"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/geocoder89/eventloop/internal/queue/redisclient"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

type UsersStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, p user.CreateParams) (user.User, error)
}

// Deps is everything the router wires. Redis is optional; without it the
// registration limit is enforced per process.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	Users   UsersStore
	Events  handlers.EventsStore
	Signups handlers.SignupsStore
	Store   handlers.Pinger
	Redis   *redisclient.Client

	Tokens *auth.Manager
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.RegisterValidators()

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("eventloop-api"))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders(cfg.IsProd()))
	r.Use(middlewares.CORS(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	authMW := middlewares.NewAuthMiddleware(d.Tokens)
	r.Use(authMW.Identify())

	// health
	checks := map[string]handlers.Pinger{"store": d.Store}
	if d.Redis != nil {
		checks["redis"] = d.Redis
	}
	health := handlers.NewHealthHandler(checks)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// wire up handlers
	timeout := cfg.StoreTimeout

	authHandler := handlers.NewAuthHandler(
		auth.NewAuthenticator(d.Users, log),
		d.Tokens,
		log,
		d.Prom,
		cfg.IsProd(),
	)
	eventsHandler := handlers.NewEventsHandler(d.Events, log, timeout)
	signupsHandler := handlers.NewSignupsHandler(d.Signups, log, d.Prom, timeout)
	usersHandler := handlers.NewUsersHandler(d.Users, log, timeout)

	var window middlewares.WindowCounter = middlewares.NewMemoryWindow()
	if d.Redis != nil {
		window = middlewares.NewRedisWindow(d.Redis.Scripter(), log)
	}
	loginLimiter := middlewares.NewTokenBucket(cfg.LoginRPS, cfg.LoginBurst)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/login", loginLimiter.Middleware(), authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/session", authHandler.Session)

	// browsing is public
	api.GET("/events", eventsHandler.ListEvents)
	api.GET("/events/:id", eventsHandler.GetEventByID)

	staff := api.Group("", middlewares.RequireStaff())
	staff.POST("/events", eventsHandler.CreateEvent)
	staff.PUT("/events/:id", eventsHandler.UpdateEvent)
	staff.DELETE("/events/:id", eventsHandler.DeleteEvent)

	members := api.Group("", middlewares.RequireAuth())
	members.POST("/events/:id/signup", signupsHandler.SignUp)
	members.DELETE("/events/:id/signup", signupsHandler.Withdraw)
	members.GET("/users/me/signups", signupsHandler.MySignups)

	// anonymous callers get {"isSignedUp":false}
	api.GET("/users/me/signups/:eventId", signupsHandler.SignupStatus)

	api.POST("/users/register",
		middlewares.RateLimit(window, cfg.RegisterLimit, cfg.RegisterWindow, middlewares.KeyByIP("register")),
		usersHandler.Register,
	)

	return r
}

// pingTimeout bounds readiness checks issued outside a request.
const pingTimeout = 2 * time.Second

// PingStore checks the store is reachable before the server starts.
func PingStore(ctx context.Context, p handlers.Pinger) error {
	cctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.Ping(cctx)
}
