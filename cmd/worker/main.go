package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ekrukov/slotbooking/config"
	"github.com/ekrukov/slotbooking/internal/email"
	"github.com/ekrukov/slotbooking/internal/kafka"
	"github.com/ekrukov/slotbooking/internal/logger"
	"github.com/ekrukov/slotbooking/internal/repository"
	"github.com/ekrukov/slotbooking/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	userRepo := repository.NewUserRepository(pool)
	serviceRepo := repository.NewServiceRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	bookingService := booking.NewBookingService(
		bookingRepo,
		userRepo,
		serviceRepo,
		nil,
		producer,
		cfg.Kafka.BookingEventsTopic,
		0,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithLogger(zlog),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, zlog)
	defer consumer.Close()

	sender := email.NewSender(zlog)

	go func() {
		if err := consumer.Consume(ctx, sender.Send); err != nil {
			zlog.Warn("consumer stopped", zap.Error(err))
		}
	}()

	sweep := time.NewTicker(time.Duration(cfg.Worker.CompletionSweepMinutes) * time.Minute)
	defer sweep.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweep.C:
			completed, err := bookingService.CompleteElapsed(ctx)
			if err != nil {
				zlog.Warn("completion sweep failed", zap.Error(err))
				continue
			}
			if len(completed) > 0 {
				zlog.Info("completed elapsed bookings", zap.Int("count", len(completed)))
			}
		case s := <-sig:
			zlog.Info("shutting down", zap.String("signal", s.String()))
			return
		}
	}
}
