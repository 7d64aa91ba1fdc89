package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ekrukov/slotbooking/config"
	"github.com/ekrukov/slotbooking/internal/auth"
	"github.com/ekrukov/slotbooking/internal/bootstrap"
	"github.com/ekrukov/slotbooking/internal/cache"
	"github.com/ekrukov/slotbooking/internal/kafka"
	"github.com/ekrukov/slotbooking/internal/logger"
	"github.com/ekrukov/slotbooking/internal/repository"
	"github.com/ekrukov/slotbooking/internal/service/booking"
	"github.com/ekrukov/slotbooking/internal/service/catalog"
	"github.com/ekrukov/slotbooking/internal/service/reviews"
	"github.com/ekrukov/slotbooking/internal/service/users"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.ServicesCacheTTLSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)

	userRepo := repository.NewUserRepository(pool)
	serviceRepo := repository.NewServiceRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)

	userService := users.NewUserService(userRepo, tokens)
	catalogService := catalog.NewCatalogService(serviceRepo, redisCache)
	bookingService := booking.NewBookingService(
		bookingRepo,
		userRepo,
		serviceRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingEventsTopic,
		time.Duration(cfg.Booking.SlotHoldTTLSeconds)*time.Second,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithLogger(zlog),
	)
	reviewService := reviews.NewReviewService(reviewRepo, bookingRepo)

	deps := bootstrap.Deps{
		Users:    userService,
		Catalog:  catalogService,
		Bookings: bookingService,
		Reviews:  reviewService,
		Tokens:   tokens,
		Logger:   zlog,
	}
	if err := bootstrap.Run(ctx, cfg, deps); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
