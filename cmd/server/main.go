package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/foodorder/internal/config"
	"github.com/example/foodorder/internal/database"
	"github.com/example/foodorder/internal/handlers"
	"github.com/example/foodorder/internal/logger"
	"github.com/example/foodorder/internal/pricing"
	"github.com/example/foodorder/internal/routes"
	"github.com/example/foodorder/internal/services"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zl.Sync()

	db, err := database.Connect(cfg.DatabaseURL, cfg.IsProduction(), zl)
	if err != nil {
		zl.Fatal("database connect failed", zap.Error(err))
	}

	opts := []services.OrderServiceOption{
		services.WithPickupSequence(services.NewDBPickupSequence(cfg.PickupCodeStart)),
	}

	var cachePing handlers.PingFunc
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			zl.Fatal("redis ping failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}

		opts = append(opts, services.WithPickupSequence(services.NewRedisPickupSequence(rdb, "", cfg.PickupCodeStart)))
		cachePing = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		zl.Info("pickup codes served from redis", zap.String("addr", cfg.RedisAddr))
	}

	if len(cfg.KafkaBrokers) > 0 {
		writer := services.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		defer writer.Close()

		opts = append(opts, services.WithPublisher(services.NewKafkaPublisher(writer)))
		zl.Info("order events published to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaOrderTopic))
	}

	rules := services.BonusRules{
		Rules: pricing.Rules{
			CashbackPercent: cfg.BonusCashbackPercent,
			MaxSpendPercent: cfg.BonusMaxSpendPercent,
		},
		TTL: cfg.BonusTTL,
	}
	orders := services.NewOrderService(db, rules, zl, opts...)

	app := fiber.New(fiber.Config{
		AppName:      "Food Order Backend",
		ErrorHandler: handlers.ErrorHandler(zl),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())

	routes.Register(app, db, cfg, orders, cachePing)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		zl.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zl.Error("shutdown failed", zap.Error(err))
		}
	}()

	zl.Info("starting server", zap.String("port", cfg.AppPort))
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		zl.Fatal("fiber.Listen error", zap.Error(err))
	}
}
