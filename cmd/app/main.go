package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mnunley1/gearboxe-reservations/api"
	"github.com/Mnunley1/gearboxe-reservations/config"
	"github.com/Mnunley1/gearboxe-reservations/internal/bootstrap"
	"github.com/Mnunley1/gearboxe-reservations/internal/cache"
	"github.com/Mnunley1/gearboxe-reservations/internal/clock"
	"github.com/Mnunley1/gearboxe-reservations/internal/kafka"
	"github.com/Mnunley1/gearboxe-reservations/internal/repository"
	"github.com/Mnunley1/gearboxe-reservations/internal/service/checkin"
	"github.com/Mnunley1/gearboxe-reservations/internal/service/events"
	"github.com/Mnunley1/gearboxe-reservations/internal/service/payments"
	"github.com/Mnunley1/gearboxe-reservations/internal/service/reservation"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Reservation.CapacityCacheTTLSeconds)*time.Second)
	defer redisCache.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	sysClock := clock.NewSystem()

	eventRepo := repository.NewEventRepository(pool)
	registrationRepo := repository.NewRegistrationRepository(pool)
	webhookEventRepo := repository.NewWebhookEventRepository(pool)

	reservationService := reservation.NewReservationService(
		registrationRepo,
		eventRepo,
		redisCache,
		producer,
		sysClock,
		cfg.Kafka.RegistrationEventsTopic,
		time.Duration(cfg.Reservation.HoldTTLMinutes)*time.Minute,
		reservation.WithLockPolicy(
			time.Duration(cfg.Reservation.LockTTLSeconds)*time.Second,
			cfg.Reservation.LockRetries,
			time.Duration(cfg.Reservation.LockRetryDelayMillis)*time.Millisecond,
		),
	)
	webhookService := payments.NewWebhookService(
		registrationRepo,
		webhookEventRepo,
		producer,
		redisCache,
		sysClock,
		cfg.Kafka.NotificationsTopic,
		cfg.Webhook.SigningSecret,
		time.Duration(cfg.Webhook.ToleranceSeconds)*time.Second,
	)
	checkinService := checkin.NewCheckinService(registrationRepo, sysClock)
	eventService := events.NewEventService(eventRepo)

	handlers := bootstrap.Handlers{
		Events:        api.NewEventHandler(eventService),
		Registrations: api.NewRegistrationHandler(reservationService),
		Webhooks:      api.NewWebhookHandler(webhookService),
		Checkin:       api.NewCheckinHandler(checkinService),
	}

	if err := bootstrap.Run(ctx, cfg, handlers, redisCache); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
