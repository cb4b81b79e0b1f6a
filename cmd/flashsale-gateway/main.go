// Command flashsale-gateway serves the synchronous reservation API
// (spec §4.1/§4.4): it accepts a reserve request, enqueues it, and blocks
// the HTTP caller via the Poller until an outcome is visible or the poll
// budget runs out.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sanchit2222/flashsale/internal/cache"
	"github.com/sanchit2222/flashsale/internal/config"
	"github.com/sanchit2222/flashsale/internal/errs"
	"github.com/sanchit2222/flashsale/internal/poller"
	"github.com/sanchit2222/flashsale/internal/queue"
	"github.com/sanchit2222/flashsale/internal/store"
	"github.com/sanchit2222/flashsale/internal/submitter"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	pgDSN := flag.String("postgres-dsn", os.Getenv("FLASHSALE_POSTGRES_DSN"), "Postgres DSN")
	redisAddr := flag.String("redis-addr", os.Getenv("FLASHSALE_REDIS_ADDR"), "Redis address")
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

	rc := cache.NewRedis(*redisAddr)

	prod, err := queue.NewKafkaProducer(
		queue.WithSeedBrokers(strings.Split(*brokers, ",")...),
		queue.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("connect kafka producer", zap.Error(err))
	}
	defer prod.Close() //nolint:errcheck

	cfg := config.New()
	p := poller.New(rc, pg, cfg)
	sub := submitter.New(pg, rc, prod, p, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/reservations", handleReserve(sub, logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	srv := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("gateway: shutdown", zap.Error(err))
		}
	}()

	logger.Info("gateway: listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("gateway: serve", zap.Error(err))
	}
}

type reserveRequest struct {
	UserID   string `json:"user_id"`
	SKUID    string `json:"sku_id"`
	Quantity int    `json:"quantity"`
}

type reserveResponse struct {
	Code          string `json:"code"`
	Message       string `json:"message,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`
}

func handleReserve(sub *submitter.Submitter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req reserveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, reserveResponse{Code: string(errs.InvalidRequest), Message: "malformed body"})
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}

		out, err := sub.SubmitAndWait(r.Context(), req.UserID, req.SKUID, req.Quantity)
		if err != nil {
			logger.Error("gateway: submit failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, reserveResponse{Code: string(errs.ProcessingError), Message: "internal error"})
			return
		}

		status := http.StatusOK
		if out.Code != errs.Success {
			status = http.StatusConflict
		}
		writeJSON(w, status, reserveResponse{Code: string(out.Code), Message: out.Message, ReservationID: out.ReservationID})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
