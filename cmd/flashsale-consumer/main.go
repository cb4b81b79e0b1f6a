// Command flashsale-consumer runs the partitioned batch consumer (spec
// §4.2): one process per partition-owning worker, draining the
// reservation-requests log and committing one transaction per sku group.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/sanchit2222/flashsale/internal/cache"
	"github.com/sanchit2222/flashsale/internal/config"
	"github.com/sanchit2222/flashsale/internal/consumer"
	"github.com/sanchit2222/flashsale/internal/outcome"
	"github.com/sanchit2222/flashsale/internal/queue"
	"github.com/sanchit2222/flashsale/internal/store"
)

func main() {
	pgDSN := flag.String("postgres-dsn", os.Getenv("FLASHSALE_POSTGRES_DSN"), "Postgres DSN")
	redisAddr := flag.String("redis-addr", os.Getenv("FLASHSALE_REDIS_ADDR"), "Redis address")
	brokers := flag.String("kafka-brokers", os.Getenv("FLASHSALE_KAFKA_BROKERS"), "comma-separated Kafka seed brokers")
	group := flag.String("consumer-group", "flashsale-reservation-workers", "Kafka consumer group")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := store.NewPostgres(ctx, *pgDSN)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pg.Close()

	rc := cache.NewRedis(*redisAddr)

	seedBrokers := strings.Split(*brokers, ",")

	cons, err := queue.NewKafkaConsumer(
		queue.WithSeedBrokers(seedBrokers...),
		queue.WithConsumerGroup(*group),
		queue.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("connect kafka consumer", zap.Error(err))
	}
	defer cons.Close() //nolint:errcheck

	lifecycle, err := queue.NewKafkaProducer(
		queue.WithSeedBrokers(seedBrokers...),
		queue.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("connect kafka lifecycle producer", zap.Error(err))
	}
	defer lifecycle.Close() //nolint:errcheck

	cfg := config.New()
	oc := outcome.New(rc, lifecycle, cfg, logger)
	w := consumer.NewWorker(pg, cons, oc, cfg, logger)

	logger.Info("consumer: starting", zap.String("group", *group))
	if err := w.Run(ctx); err != nil {
		logger.Fatal("consumer: run", zap.Error(err))
	}
	logger.Info("consumer: stopped")
}
