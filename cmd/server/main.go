package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	echoapi "go.pilab.hu/pwchange/api/echo"
	"go.pilab.hu/pwchange/bus"
	redisbus "go.pilab.hu/pwchange/bus/redis"
	"go.pilab.hu/pwchange/cache"
	"go.pilab.hu/pwchange/config"
	"go.pilab.hu/pwchange/domain"
	"go.pilab.hu/pwchange/flow"
	"go.pilab.hu/pwchange/internal/auth"
	"go.pilab.hu/pwchange/mongodb"
	"go.pilab.hu/pwchange/services"
	"go.pilab.hu/pwchange/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogger(cfg)
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db_name", cfg.MongoDBName).
		Str("redis_addr", cfg.RedisAddr).
		Bool("usernames_enabled", cfg.UsernamesEnabled).
		Msg("Starting pwchange server")

	tracerProvider, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize TracerProvider")
	}

	ctx := context.Background()

	mongoClient, db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}

	// Event bus: Redis pub/sub when configured, otherwise in-process.
	var (
		publisher   bus.Publisher
		subscriber  bus.Subscriber
		redisClient *goredis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("redis_addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
		}
		redisBus := redisbus.NewBus(redisClient, "")
		publisher, subscriber = redisBus, redisBus
		log.Info().Str("redis_addr", cfg.RedisAddr).Msg("Attribute events on Redis pub/sub")
	} else {
		memoryBus := bus.NewMemoryBus()
		publisher, subscriber = memoryBus, memoryBus
		log.Info().Msg("Attribute events on in-process bus")
	}

	// Repositories
	accountRepo, err := mongodb.NewAccountRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize AccountRepository")
	}
	attributeStore, err := mongodb.NewAttributeStore(ctx, db, publisher)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize AttributeStore")
	}
	definitionRegistry, err := mongodb.NewDefinitionRegistry(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize DefinitionRegistry")
	}
	sessionRepo, err := mongodb.NewSessionRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize SessionRepository")
	}

	var definitions domain.DefinitionRegistry = definitionRegistry
	if cfg.DefinitionCacheTTLSec > 0 {
		cached := cache.NewCachedDefinitionRegistry(definitionRegistry, time.Duration(cfg.DefinitionCacheTTLSec)*time.Second)
		defer cached.Close()
		definitions = cached
	}

	// Provision the RequirePasswordChange definition; idempotent.
	provisioner := services.NewProvisioner(definitions)
	if err := provisioner.Install(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to provision attribute definition")
	}

	// Services
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	tokenService := services.NewTokenService([]byte(cfg.JWTSecretKey), time.Duration(cfg.SessionTTLMin)*time.Minute)
	authService := services.NewAuthService(accountRepo, sessionRepo, tokenService, passwordHasher, cfg.UsernamesEnabled)
	credentialService := services.NewCredentialService(attributeStore)
	recoveryService := services.NewRecoveryService(accountRepo, attributeStore, passwordHasher,
		time.Duration(cfg.RecoveryTokenWindowHours)*time.Hour)

	// Reconciler keeps the recovery credential in lockstep with the flag.
	reconciler := services.NewReconciler(accountRepo, attributeStore, definitions, credentialService)
	if err := subscriber.Subscribe(ctx, reconciler.HandleEvent); err != nil {
		log.Fatal().Err(err).Msg("Failed to subscribe reconciler to attribute events")
	}

	chain := flow.NewChain(
		services.NewLoginInterceptor(accountRepo, attributeStore, definitions, credentialService, authService, cfg.UsernamesEnabled),
		services.NewRecoveryConfirmInterceptor(accountRepo, attributeStore, definitions, authService, cfg.UsernamesEnabled),
	)

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	echoapi.NewAccountAPI(authService, recoveryService, chain, cfg.UsernamesEnabled).RegisterRoutes(e)
	e.GET("/healthz", func(c echo.Context) error {
		if err := mongodb.Ping(c.Request().Context(), mongoClient); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unhealthy"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("HTTP server listening")
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	log.Info().Str("signal", receivedSignal.String()).Msg("Shutting down server")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("TracerProvider shutdown error")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("Redis client close error")
		}
	}
	mongodb.Close(shutdownCtx, mongoClient)

	log.Info().Msg("Server gracefully stopped")
}

func initLogger(cfg *config.ServerConfig) {
	logLevel, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = zerolog.InfoLevel
		log.Warn().Str("configured_log_level", cfg.LogLevel).Msg("Invalid LOG_LEVEL configured, defaulting to 'info'")
	}
	zerolog.SetGlobalLevel(logLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
