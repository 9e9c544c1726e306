package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/2beens/pushpullrun/internal/api"
	"github.com/2beens/pushpullrun/internal/auth"
	"github.com/2beens/pushpullrun/internal/config"
	"github.com/2beens/pushpullrun/internal/middleware"
	"github.com/2beens/pushpullrun/internal/telemetry/metrics"
	"github.com/2beens/pushpullrun/internal/telemetry/tracing"
	"github.com/2beens/pushpullrun/pkg"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config      *config.Config
	backends    *Backends
	authService *auth.Service
	cron        *cron.Cron

	trustedProxies pkg.TrustedProxies

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	Secrets                 Secrets
	VersionInfo             string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	trustedProxies, err := pkg.ParseTrustedProxies(params.Config.TrustedProxies)
	if err != nil {
		return nil, err
	}

	backends, err := NewBackends(ctx, NewBackendsParams{
		Config:         params.Config,
		Secrets:        params.Secrets,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new backends: %w", err)
	}

	promRegistry := metrics.SetupPrometheus(backends.Collectors...)
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0) // set to 1 once serving

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "pushpullrun-backend", backends.RedisClient)
	if err != nil {
		backends.Close(ctx)
		return nil, err
	}

	s := &Server{
		config:      params.Config,
		backends:    backends,
		authService: auth.NewService(backends.Identity, backends.Store),
		versionInfo: params.VersionInfo,
		cron:        cron.New(),

		trustedProxies: trustedProxies,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	if backends.Sessions != nil {
		if _, err := s.cron.AddFunc(params.Config.SessionCleanupSchedule, s.cleanSessions); err != nil {
			s.shutdownBackends()
			return nil, fmt.Errorf("schedule session cleanup [%s]: %w", params.Config.SessionCleanupSchedule, err)
		}
	}

	return s, nil
}

func (s *Server) cleanSessions() {
	start := time.Now()
	removed := s.backends.Sessions.ScanAndClean(context.Background())
	s.metricsManager.CounterSessionsCleaned.Add(float64(removed))
	s.metricsManager.HistSessionCleanupDuration.Observe(time.Since(start).Seconds())
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	var rateLimiter middleware.RequestRateLimiter
	if s.backends.RedisClient != nil {
		rateLimiter = redis_rate.NewLimiter(s.backends.RedisClient)
	}

	api.SetupRoutes(r, api.RoutesParams{
		Auth:                api.NewAuthHandler(s.authService, s.metricsManager),
		Profile:             api.NewProfileHandler(s.backends.Store, s.metricsManager),
		Exercises:           api.NewExercisesHandler(s.backends.Store, s.metricsManager),
		Workouts:            api.NewWorkoutsHandler(s.backends.Store, s.metricsManager),
		Misc:                api.NewMiscHandler(s.versionInfo, s.backends.ImagesRoot),
		RateLimiter:         rateLimiter,
		SignInAllowedPerMin: s.config.LoginRateLimitAllowedPerMin,
		TrustedProxies:      s.trustedProxies,
		MetricsManager:      s.metricsManager,
	})

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.backends.Identity)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest(s.trustedProxies))
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.CorsOrigins...))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{Registry: s.promRegistry},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.cron.Start()
	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	cronCtx := s.cron.Stop()
	<-cronCtx.Done()
	log.Trace("cron jobs stopped ...")

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}

	s.shutdownBackends()

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

func (s *Server) shutdownBackends() {
	s.otelShutdown()
	log.Trace("otel shut down ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.backends.Close(ctx)
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
