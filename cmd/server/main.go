package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // panic recovery
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-ticketing/internal/cache"
	"github.com/iliyamo/event-ticketing/internal/config" // Internal config loader
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/logging"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/router" // Internal router setup
	"github.com/iliyamo/event-ticketing/internal/service"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
)

func main() {
	cfg := config.Load() // Load environment config
	logger := logging.Setup(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()
	if cfg.RunMigrations {
		if err := database.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("migrate database")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()
	amqpCfg := config.LoadAMQPConfig()

	var rdb *redis.Client
	if cacheCfg.Enabled || rateCfg.Enabled {
		rdb = config.NewRedisClient(config.LoadRedisConfig())
	}
	if rdb != nil {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	seats := repository.NewSeatRepo(db)
	bookings := repository.NewBookingRepo(db)
	categories := repository.NewCategoryRepo(db)
	reports := repository.NewReportRepo(db)

	// Interfaces stay nil, not typed-nil, when a backend is disabled.
	var (
		seatMaps  *cache.SeatMaps
		responses *cache.Responses
		seatCache service.SeatCache
		pages     service.CataloguePurger
		purger    handler.ResponsePurger
		seatInval handler.SeatInvalidator
		mapCache  handler.SeatMapCache
		publisher service.EventPublisher
	)
	if cacheCfg.Enabled && rdb != nil {
		seatMaps = cache.NewSeatMaps(rdb, cacheCfg.SeatTTL)
		responses = cache.NewResponses(rdb, cacheCfg.Prefix)
		seatCache, seatInval, mapCache = seatMaps, seatMaps, seatMaps
		pages, purger = responses, responses
	}
	if amqpCfg.Enabled {
		pub := queue.NewPublisher(amqpCfg.URL, amqpCfg.Queue)
		defer pub.Close()
		publisher = pub

		consumer := queue.NewConsumer(amqpCfg.URL, amqpCfg.Queue, cfg.AuditLogPath, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("booking consumer stopped")
			}
		}()
	}
	go purgeExpiredTokens(ctx, tokens, logger)

	bookingSvc := service.NewBookingService(repository.NewTxStore(db), bookings, seatCache, pages, publisher, logger)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.NewTokenBucket(rateCfg, rdb))

	bookingLimit := middleware.NewTokenBucket(rateCfg.WithCapacity(rateCfg.BookingCapacity, rateCfg.Prefix+":booking"), rdb)
	responseCache := middleware.NewRedisCache(cacheCfg, rdb)

	router.RegisterRoutes(e, db, rdb)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(categories, events, seats, mapCache), responseCache)
	bookingHandler := handler.NewBookingHandler(bookingSvc, bookings)
	router.RegisterBookings(e, bookingHandler, cfg.JWTSecret, bookingLimit)
	router.RegisterOrganizer(e, handler.NewOrganizerHandler(events, bookings, purger, seatInval), cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(cfg, users, events, categories, reports, purger, seatInval),
		bookingHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port // Address string with port
	go func() {
		logger.Info().Str("addr", addr).Str("env", cfg.Env).
			Bool("redis", rdb != nil).Bool("amqp", amqpCfg.Enabled).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
