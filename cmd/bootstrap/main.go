// Command bootstrap provisions the deployment's issuer identity. Run it once
// against a fresh redis before starting the server; rerunning is a no-op that
// prints the existing identity.
package main

import (
	"context"
	"os"
	"time"

	"github.com/crdbl/crdbl/internal/credential"
	"github.com/crdbl/crdbl/internal/issuer"
	"github.com/crdbl/crdbl/internal/platform/config"
	"github.com/crdbl/crdbl/internal/platform/logger"
	"github.com/crdbl/crdbl/internal/platform/redis"
	"github.com/crdbl/crdbl/internal/store"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if cfg.Issuer.APIKey == "" {
		log.Error("CHEQD_API_KEY is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Only the store and the issuer client are exercised here; the content
	// store and oracle are never reached by BootstrapIssuer.
	svc := credential.New(
		store.NewRedis(rdb.Client),
		issuer.New(cfg.Issuer),
		nil,
		nil,
		cfg.VerificationTTL,
		credential.WithLogger(log),
	)

	identity, created, err := svc.BootstrapIssuer(ctx)
	if err != nil {
		log.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	if created {
		log.Info("issuer identity created", "did", identity.DID, "controller_key_id", identity.ControllerKeyID)
	} else {
		log.Info("issuer identity already provisioned", "did", identity.DID)
	}
}
