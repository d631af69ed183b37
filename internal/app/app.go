package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	_ "registrar/docs"
	"registrar/internal/config"
	"registrar/internal/database"
	"registrar/internal/handlers"
	"registrar/internal/metrics"
	"registrar/internal/middleware"
	"registrar/internal/pdf"
	"registrar/internal/repositories"
	"registrar/internal/routes"
	"registrar/internal/services"
	"registrar/internal/utils"
)

// Stores: выбранные реализации хранилищ.
type Stores struct {
	Registrations repositories.RegistrationRepository
	Sessions      repositories.PublicSessionRepository
}

type App struct {
	cfg    *config.Config
	log    *logrus.Logger
	db     *sql.DB
	redis  *redis.Client
	Router *gin.Engine
}

func Run() {
	cfg := config.LoadConfig()
	log := NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("server stopped")
}

func NewLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.IsDev() {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// New подключает хранилища и собирает роутер. Без DSN (только dev): память.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	var stores Stores
	if cfg.Database.DSN != "" {
		db, err := database.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db
		stores.Registrations = repositories.NewRegistrationRepository(db)
		stores.Sessions = repositories.NewPublicSessionRepository(db)
	} else {
		if !cfg.IsDev() {
			return nil, errors.New("database.url (DATABASE_URL) is required outside dev")
		}
		log.Warn("database.url is empty: using in-memory stores")
		stores.Registrations = repositories.NewInMemoryRegistrationRepository()
		stores.Sessions = repositories.NewInMemoryPublicSessionRepository()
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		stores.Sessions = repositories.NewRedisPublicSessionRepository(a.redis, cfg.Redis.KeyPrefix)
	}

	mobizon := utils.NewClientWithOptions(cfg.Mobizon.APIKey, cfg.Mobizon.SenderID, cfg.Mobizon.DryRun)
	if cfg.Mobizon.BaseURL != "" {
		mobizon.BaseURL = cfg.Mobizon.BaseURL
	}
	mobizon.Log = log

	var email services.EmailService
	if cfg.Email.SMTPHost != "" {
		email = services.NewEmailService(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPassword, cfg.Email.FromEmail)
	}

	var alerter services.LockoutAlerter
	tg, err := services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "", nil, log)
	if err != nil {
		log.WithError(err).Warn("telegram alerts disabled")
	} else if tg != nil {
		alerter = tg
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.Router = BuildRouter(cfg, log, stores, Integrations{
		SMS:      mobizon,
		Email:    email,
		Alerter:  alerter,
		Registry: registry,
		Health:   a.healthChecks(),
	})
	return a, nil
}

// Integrations: внешние зависимости роутера; nil-поля отключают соответствующую функцию.
type Integrations struct {
	SMS      services.SMSSender
	Email    services.EmailService
	Alerter  services.LockoutAlerter
	Registry *prometheus.Registry
	Health   map[string]handlers.HealthCheck
	Clock    services.Clock
	FontPath string
}

func BuildRouter(cfg *config.Config, log *logrus.Logger, stores Stores, in Integrations) *gin.Engine {
	clock := in.Clock
	if clock == nil {
		clock = services.RealClock{}
	}
	registry := in.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := metrics.New(registry)
	p := cfg.Public

	notifier := services.NewNotificationDispatcher(in.SMS, in.Email, log)

	// === Services ===
	access := services.NewAccessTokenService(services.AccessTokenDeps{
		Repo:     stores.Registrations,
		Sessions: stores.Sessions,
		Notifier: notifier,
		Clock:    clock,
		Log:      log,
		Metrics:  m,
	}, p.FrontendBaseURL, p.InitialLinkTTL, p.ReminderLinkTTL)
	codes := services.NewVerificationCodeService(p.CodeTTL, p.MaxAttempts, services.BcryptCodeHasher{Cost: p.BcryptCost})
	sessions := services.NewSessionTokenService(stores.Sessions, clock, log, p.SessionIdleTTL, p.SessionMaxTTL)
	public := services.NewPublicAccessService(services.PublicAccessDeps{
		Repo:     stores.Registrations,
		Access:   access,
		Codes:    codes,
		Sessions: sessions,
		Notifier: notifier,
		Alerter:  in.Alerter,
		Clock:    clock,
		Log:      log,
		Metrics:  m,
	}, p.FrontendBaseURL)
	registrations := services.NewRegistrationService(stores.Registrations, access, log)

	// === Handlers ===
	publicHandler := handlers.NewPublicAccessHandler(public, pdf.NewSummaryGenerator(in.FontPath), clock, log)
	registrationHandler := handlers.NewRegistrationHandler(registrations, access, log)
	healthHandler := handlers.NewHealthHandler(in.Health)

	// === Gin ===
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(corsMiddleware())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst, 10*time.Minute)
	routes.SetupRoutes(router, []byte(cfg.Auth.JWTSecret), limiter, publicHandler, registrationHandler, healthHandler)
	return router
}

func (a *App) healthChecks() map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{}
	if a.db != nil {
		checks["database"] = a.db.PingContext
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return checks
}

// Serve держит сервер до отмены ctx, затем мягко останавливает его.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.WithField("addr", srv.Addr).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("close redis")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("close database")
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Session-Token, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
