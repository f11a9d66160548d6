package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mnunley1/gearboxe-reservations/config"
	"github.com/Mnunley1/gearboxe-reservations/internal/cache"
	"github.com/Mnunley1/gearboxe-reservations/internal/clock"
	"github.com/Mnunley1/gearboxe-reservations/internal/email"
	"github.com/Mnunley1/gearboxe-reservations/internal/kafka"
	"github.com/Mnunley1/gearboxe-reservations/internal/repository"
	"github.com/Mnunley1/gearboxe-reservations/internal/service/reservation"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Reservation.CapacityCacheTTLSeconds)*time.Second)
	defer redisCache.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	eventRepo := repository.NewEventRepository(pool)
	registrationRepo := repository.NewRegistrationRepository(pool)

	reservationService := reservation.NewReservationService(
		registrationRepo,
		eventRepo,
		redisCache,
		producer,
		clock.NewSystem(),
		cfg.Kafka.RegistrationEventsTopic,
		time.Duration(cfg.Reservation.HoldTTLMinutes)*time.Minute,
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.RegistrationEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode event error: %v", err)
				return nil
			}
			return emailSender.Send(ctx, event)
		}); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.SweepIntervalMinutes) * time.Minute)
	defer sweepTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			result, err := reservationService.Sweep(ctx)
			if err != nil {
				log.Printf("sweep error: %v", err)
				continue
			}
			if result.Failed > 0 {
				log.Printf("sweep failed %d of %d pending holds", result.Failed, result.Scanned)
			}
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}
