package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/LostFrxks/homy/internal/config"
	"github.com/LostFrxks/homy/internal/database"
	"github.com/LostFrxks/homy/internal/handler"
	"github.com/LostFrxks/homy/internal/middleware"
	"github.com/LostFrxks/homy/internal/queue"
	"github.com/LostFrxks/homy/internal/repository"
	"github.com/LostFrxks/homy/internal/router"
	"github.com/LostFrxks/homy/internal/storage"
)

func main() {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if cfg.Env == "dev" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}
	defer db.Close()

	store, err := storage.NewPrivate(context.Background(), logger)
	if err != nil {
		logger.Fatal("private storage init failed", zap.Error(err))
	}

	// Redis backs rate limiting and the catalog cache. A nil client
	// turns both middlewares into pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and caching disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	properties := repository.NewPropertyRepo(db)
	images := repository.NewPropertyImageRepo(db)
	deals := repository.NewDealRepo(db)
	showings := repository.NewShowingRepo(db, cfg.SlotMinutes)
	favorites := repository.NewFavoriteRepo(db)
	searches := repository.NewSavedSearchRepo(db)
	kyc := repository.NewKYCRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	propH := handler.NewPropertyHandler(properties, images, store)
	dealH := handler.NewDealHandler(deals, properties)
	showH := handler.NewShowingHandler(showings, properties)
	favH := handler.NewFavoriteHandler(favorites, properties)
	searchH := handler.NewSavedSearchHandler(searches, properties)
	kycH := handler.NewKYCHandler(kyc, store)

	e := echo.New()
	e.HideBanner = true

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, limiter)
	router.RegisterCatalog(e, propH, cache)
	router.RegisterAPI(e, cfg.JWTSecret, router.APIHandlers{
		Auth:       authH,
		Properties: propH,
		Deals:      dealH,
		Showings:   showH,
		Favorites:  favH,
		Searches:   searchH,
		KYC:        kycH,
	})

	// The audit consumer runs for the lifetime of the process and
	// reconnects on broker failure.
	go func() {
		if err := queue.StartAuditConsumer(logger); err != nil {
			logger.Warn("audit consumer stopped", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
		zap.Int("slot_minutes", cfg.SlotMinutes))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
