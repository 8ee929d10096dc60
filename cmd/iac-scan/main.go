package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joho/godotenv"
	"github.com/yourorg/qualys-iac-scan/internal/config"
	"github.com/yourorg/qualys-iac-scan/internal/db"
	"github.com/yourorg/qualys-iac-scan/internal/qualys"
	s3c "github.com/yourorg/qualys-iac-scan/internal/s3"
	"github.com/yourorg/qualys-iac-scan/internal/scan"
)

func main() {
	// Load environment variables from .env files if present. This helps local dev.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client, err := qualys.NewClient(cfg.BaseURL, cfg.Username, cfg.Password, cfg.CABundle)
	if err != nil {
		log.Fatal(err)
	}

	var store *db.Store
	if cfg.DatabaseURL != "" {
		store, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer store.Close()
		if err := store.Ping(ctx); err != nil {
			log.Fatal(err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			if isInsufficientPrivilege(err) {
				log.Printf("ensure schema skipped due insufficient privilege: %v", err)
			} else {
				log.Fatal(err)
			}
		}
	}

	var s3 *s3c.Client
	if cfg.S3Endpoint != "" && cfg.ReportsBucket != "" {
		s3, err = s3c.New(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseSSL)
		if err != nil {
			log.Fatal(err)
		}
	}

	r := scan.NewRunner(cfg, client, store, s3)
	failed, err := r.Run(ctx)
	if err != nil {
		log.Printf("scan failed: %v", err)
		os.Exit(1)
	}
	if failed {
		log.Printf("failures were detected")
		os.Exit(1)
	}
	log.Printf("no failed checks or parsing errors found")
}

func isInsufficientPrivilege(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42501"
}
