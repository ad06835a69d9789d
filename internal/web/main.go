// Package web serves the settings HTTP API.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/confetti-go/confetti/internal/auth"
	"github.com/confetti-go/confetti/internal/config"
	"github.com/confetti-go/confetti/internal/invalidation"
	fiberlogger "github.com/confetti-go/confetti/internal/logger/adapter/fiber"
	"github.com/confetti-go/confetti/internal/resolver"
	"github.com/confetti-go/confetti/internal/response"
	"github.com/confetti-go/confetti/internal/web/handler"
	cachehandler "github.com/confetti-go/confetti/internal/web/handler/admin/cache"
	"github.com/confetti-go/confetti/internal/web/handler/admin/definitions"
	"github.com/confetti-go/confetti/internal/web/handler/admin/users"
	"github.com/confetti-go/confetti/internal/web/handler/settings"
)

const (
	// HealthPath answers load balancer checks.
	HealthPath = "/healthz"

	// MetricsPath exposes prometheus metrics.
	MetricsPath = "/metrics"

	defaultAppName = "confetti"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Option customizes a Service.
type Option func(*options)

type options struct {
	identity auth.IdentityFunc
	registry *response.Registry
	gatherer prometheus.Gatherer
}

// WithIdentity replaces the header based identity resolution.
func WithIdentity(fn auth.IdentityFunc) Option {
	return func(o *options) { o.identity = fn }
}

// WithRegistry supplies the response strategies to pick ResponseMethod from.
func WithRegistry(r *response.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithGatherer selects the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *options) { o.gatherer = g }
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	s.alive.Store(true)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for SIGINT or SIGTERM and shuts the service down.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown stops the http server. Unless in dev mode the health check
// fails for ShutDownTime seconds first so load balancers stop routing.
func (s *Service) Shutdown() {
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(
	cfg *config.Config,
	db *gorm.DB,
	res *resolver.Resolver,
	inv *invalidation.Invalidator,
	opts ...Option,
) (*Service, error) {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	o := options{
		registry: response.NewRegistry(),
		gatherer: prometheus.DefaultGatherer,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.identity == nil {
		headers := auth.DefaultHeaders()
		if cfg.Webserver.IdentityHeader != "" {
			headers.User = cfg.Webserver.IdentityHeader
		}

		o.identity = auth.HeaderIdentity(headers)
	}

	respond, err := o.registry.Lookup(cfg.Confetti.ResponseMethod)
	if err != nil {
		return nil, err
	}

	appName := cfg.Title
	if appName == "" {
		appName = defaultAppName
	}

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        appName,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			ErrorHandler:   errorHandler(respond),
		},
	)

	service := &Service{
		cfg:          cfg,
		App:          app,
		fastShutDown: cfg.DevMode,
	}

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	if cfg.Webserver.CleanPath {
		app.Use(cleanPath)
	}

	app.Use(fiberlogger.New(fiberlogger.Config{Config: cfg.Log}))

	app.Get(HealthPath, service.health)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{})))

	app.Use(auth.Middleware(db, o.identity))

	deps := &handler.Deps{
		Config:      cfg,
		Resolver:    res,
		Invalidator: inv,
		Respond:     respond,
	}

	// init handlers (they register their own routes)
	settings.Handler.Init(app, deps)
	cachehandler.Handler.Init(app, deps)
	definitions.Handler.Init(app, deps)
	users.Handler.Init(app, deps)

	return service, nil
}

func (s *Service) health(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
	}

	return c.SendString("OK")
}

// cleanPath collapses repeated slashes and dot segments of the request path.
func cleanPath(c *fiber.Ctx) error {
	p := c.Path()
	if strings.Contains(p, "//") || strings.Contains(p, "/.") {
		c.Path(path.Clean(p))
	}

	return c.Next()
}

// errorHandler writes errors through the configured response strategy.
func errorHandler(respond response.Func) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal Server Error"

		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			code = ferr.Code
			msg = ferr.Message
		}

		return respond(c, code, response.Message{Detail: msg})
	}
}
