package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/mail"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/paystack"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/upload"
	pkgconfig "github.com/Skotchmaster/storefront/pkg/config"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/ratelimit"
)

func main() {
	cfg := config.Load()
	pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	pkgconfig.MustNonEmpty(string(cfg.JWTSecret), "JWT_SECRET")
	pkgconfig.MustNonEmpty(cfg.PaystackSecret, "PAYSTACK_SECRET_KEY")

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	r := &repo.GormRepo{DB: gdb}

	var publisher events.Publisher = events.Nop{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		if err := events.EnsureTopics(ctx, cfg.KafkaBrokers[0], events.Topics...); err != nil {
			logger.Warn("kafka_topics_error", "error", err)
		}
		producer = events.NewProducer(cfg.KafkaBrokers)
		publisher = producer
	}

	var index service.Indexer
	if cfg.Search.URL != "" {
		es, err := search.NewClient(cfg.Search.URL, cfg.Search.User, cfg.Search.Password)
		if err != nil {
			logger.Warn("search_unavailable", "reason", "falling back to database search", "error", err)
		} else {
			index = &search.Index{ES: es, Name: cfg.Search.Index}
		}
	}

	var limiter *ratelimit.Limiter
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis url: %v", err)
		}
		rdb = redis.NewClient(opts)
		limiter = ratelimit.New(rdb, cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	var store upload.Store = &upload.LocalStore{Root: cfg.UploadDir}
	staticDir := cfg.UploadDir
	if cfg.S3.Bucket != "" {
		s3store, err := upload.NewS3Store(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("s3: %v", err)
		}
		store = s3store
		staticDir = ""
	}

	var mailer mail.Sender = mail.LogMailer{}
	if cfg.Mail.Host != "" {
		mailer = &mail.SMTPMailer{Cfg: cfg.Mail}
	}

	deps := &httpserver.Deps{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Auth: &service.AuthService{
			Repo:      r,
			Mailer:    mailer,
			Events:    publisher,
			JWTSecret: cfg.JWTSecret,
			TokenTTL:  cfg.JWTExpiresIn,
			BaseURL:   cfg.BaseURL,
		},
		Users:    &service.UserService{Repo: r, Events: publisher},
		Carts:    &service.CartService{Repo: r, Events: publisher},
		Orders:   &service.OrderService{Repo: r, Events: publisher},
		Reviews:  &service.ReviewService{Repo: r, Events: publisher},
		Products: &service.ProductService{Repo: r, Index: index, Events: publisher},
		Payments: &service.PaymentService{
			Repo:    r,
			Gateway: paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecret),
			Events:  publisher,
		},
		Uploads:   &httpserver.Uploader{Processor: upload.NewProcessor(store)},
		Limiter:   limiter,
		StaticDir: staticDir,
	}

	e := httpserver.New(httpserver.Options{
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		Production:  cfg.Production(),
		TrustProxy:  cfg.TrustProxy,
	}, deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("server_started", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db_close_error", "error", err)
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close_error", "error", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis_close_error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
