// Command server runs the crdbl credential gateway: issuance, lookup, and
// verification over HTTP, backed by redis, IPFS, the cheqd studio API, and a
// chat-completion consistency oracle.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/crdbl/crdbl/internal/audit"
	"github.com/crdbl/crdbl/internal/contentstore"
	"github.com/crdbl/crdbl/internal/credential"
	"github.com/crdbl/crdbl/internal/credential/metrics"
	"github.com/crdbl/crdbl/internal/issuer"
	"github.com/crdbl/crdbl/internal/oracle"
	"github.com/crdbl/crdbl/internal/platform/config"
	"github.com/crdbl/crdbl/internal/platform/httpserver"
	"github.com/crdbl/crdbl/internal/platform/logger"
	"github.com/crdbl/crdbl/internal/platform/redis"
	"github.com/crdbl/crdbl/internal/store"
	httptransport "github.com/crdbl/crdbl/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	rdb, err := redis.New(ctx, cfg.Redis)
	cancel()
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	var auditor audit.Publisher = audit.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := audit.NewKafka(cfg.Kafka, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		auditor = kafka
	}

	svc := credential.New(
		store.NewRedis(rdb.Client),
		issuer.New(cfg.Issuer),
		contentstore.New(cfg.IPFS),
		oracle.New(cfg.Oracle),
		cfg.VerificationTTL,
		credential.WithLogger(log),
		credential.WithMetrics(metrics.New()),
		credential.WithAuditor(auditor),
	)

	router := httptransport.NewRouter(httptransport.NewCredentialHandler(svc, log))
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting crdbl", "addr", cfg.Addr, "audit_enabled", len(cfg.Kafka.Brokers) > 0)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
