package main // Entry point package

import (
	"context"
	"errors"
	"log" // bootstrap logging before zap is ready
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/config" // Internal config loader
	"github.com/iliyamo/campus-hall-booking/internal/database"
	"github.com/iliyamo/campus-hall-booking/internal/handler"
	"github.com/iliyamo/campus-hall-booking/internal/jobs"
	"github.com/iliyamo/campus-hall-booking/internal/live"
	"github.com/iliyamo/campus-hall-booking/internal/logging"
	"github.com/iliyamo/campus-hall-booking/internal/mail"
	"github.com/iliyamo/campus-hall-booking/internal/middleware"
	"github.com/iliyamo/campus-hall-booking/internal/queue"
	"github.com/iliyamo/campus-hall-booking/internal/repository"
	"github.com/iliyamo/campus-hall-booking/internal/router" // Internal router setup
	"github.com/iliyamo/campus-hall-booking/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient() // nil disables cache and rate limiting
	if rdb == nil {
		logger.Warn("redis unavailable, cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	bookings := repository.NewBookingRepo(db)
	halls := repository.NewHallRepo(db)
	blocks := repository.NewBlockRepo(db)
	announcements := repository.NewAnnouncementRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	// Notifications leave the request path through RabbitMQ and are
	// delivered by the consumer.
	qcfg := config.LoadQueueConfig()
	publisher := queue.NewPublisher(qcfg, logger)
	go publisher.Run(ctx)
	if qcfg.Consume {
		consumer := queue.NewConsumer(qcfg, mail.New(config.LoadMailConfig(), logger), logger)
		go consumer.Run(ctx)
	}

	bookingSvc := service.NewBookingService(bookings, halls, users, publisher, service.BookingOptions{
		Calendar:       booking.NewCalendar(cfg.Location, cfg.HorizonDays),
		PosterMaxBytes: cfg.PosterMaxBytes,
		Logger:         logger,
	})
	availSvc := service.NewAvailabilityService(halls, bookings, booking.NewCalendar(cfg.Location, cfg.HorizonDays), nil)
	hallSvc := service.NewHallService(halls, blocks, users, publisher, logger)
	annSvc := service.NewAnnouncementService(announcements, users, publisher, nil, logger)
	accountSvc := service.NewAccountService(users, cfg.BcryptCost, publisher, logger)

	hub := live.NewHub(annSvc, cfg.FrontendURLs, logger)
	defer hub.Close()
	scheduler := cron.New()
	if err := jobs.Start(scheduler, cfg.AnnounceSpec, hub, tokens, logger); err != nil {
		logger.Fatal("cron", zap.Error(err))
	}
	defer scheduler.Stop()

	health := map[string]handler.Pinger{"database": db}
	if rdb != nil {
		health["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.FrontendURLs,
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestLogger(logger))

	router.Register(e, router.Deps{
		JWTSecret:     cfg.JWTSecret,
		Auth:          handler.NewAuthHandler(cfg, accountSvc, tokens),
		Bookings:      handler.NewBookingHandler(bookingSvc, availSvc),
		Halls:         handler.NewHallHandler(hallSvc),
		Announcements: handler.NewAnnouncementHandler(annSvc, nil),
		Live:          hub,
		Health:        handler.Health(health),
		Redis:         rdb,
		Cache:         config.LoadCacheConfig(),
		RateLimit:     config.LoadRateLimitConfig(),
		Log:           logger,
	})

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
