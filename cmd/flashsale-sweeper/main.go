// Command flashsale-sweeper runs the expiry sweeper (spec §4.5): a
// single periodic background process, separate from the batch
// consumer, that finds expired holds and feeds them back through the
// same partitioned log.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/sanchit2222/flashsale/internal/config"
	"github.com/sanchit2222/flashsale/internal/queue"
	"github.com/sanchit2222/flashsale/internal/store"
	"github.com/sanchit2222/flashsale/internal/sweeper"
)

func main() {
	pgDSN := flag.String("postgres-dsn", os.Getenv("FLASHSALE_POSTGRES_DSN"), "Postgres DSN")
	brokers := flag.String("kafka-brokers", os.Getenv("FLASHSALE_KAFKA_BROKERS"), "comma-separated Kafka seed brokers")
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

	prod, err := queue.NewKafkaProducer(
		queue.WithSeedBrokers(strings.Split(*brokers, ",")...),
		queue.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("connect kafka producer", zap.Error(err))
	}
	defer prod.Close() //nolint:errcheck

	s := sweeper.New(pg, prod, config.New(), logger)

	logger.Info("sweeper: starting")
	if err := s.Run(ctx); err != nil {
		logger.Fatal("sweeper: run", zap.Error(err))
	}
	logger.Info("sweeper: stopped")
}
