package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/coverlane/coverlane/api"
	"github.com/coverlane/coverlane/internal/alerts"
	"github.com/coverlane/coverlane/internal/capital"
	"github.com/coverlane/coverlane/internal/claims"
	"github.com/coverlane/coverlane/internal/config"
	"github.com/coverlane/coverlane/internal/database"
	"github.com/coverlane/coverlane/internal/ledger"
	"github.com/coverlane/coverlane/internal/policy"
	"github.com/coverlane/coverlane/internal/registry"
	"github.com/coverlane/coverlane/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	ledgerSvc, err := ledger.NewService(log, db)
	if err != nil {
		log.Fatal("Failed to create ledger service", zap.Error(err))
	}
	capitalSvc, err := capital.NewService(log, db, ledgerSvc)
	if err != nil {
		log.Fatal("Failed to create capital service", zap.Error(err))
	}
	registrySvc, err := registry.NewService(log, db)
	if err != nil {
		log.Fatal("Failed to create registry service", zap.Error(err))
	}
	policySvc, err := policy.NewService(log, db, ledgerSvc)
	if err != nil {
		log.Fatal("Failed to create policy service", zap.Error(err))
	}
	claimsSvc, err := claims.NewService(log, db, capitalSvc)
	if err != nil {
		log.Fatal("Failed to create claims service", zap.Error(err))
	}

	feed := api.NewAlertFeed(log)
	alertSvc, err := alerts.NewService(log, db, feed)
	if err != nil {
		log.Fatal("Failed to create alert service", zap.Error(err))
	}

	server := api.NewServer(log, cfg.JWTSecret, registrySvc, ledgerSvc, capitalSvc, policySvc, claimsSvc, alertSvc, feed)

	go func() {
		if err := server.Start(cfg.ListenAddr); err != nil {
			log.Fatal("API server exited", zap.Error(err))
		}
	}()
	log.Info("Coverlane started", zap.String("addr", cfg.ListenAddr), zap.String("driver", cfg.Database.Driver))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Driver == "postgres" {
		return database.NewPostgresDB(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
	}
	return database.NewSQLiteDB()
}
