package main

import (
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/spec-kit/hr-service/internal/config"
	"github.com/spec-kit/hr-service/internal/observability"
	"github.com/spec-kit/hr-service/internal/persistence"
	"github.com/spec-kit/hr-service/internal/repository"
	"github.com/spec-kit/hr-service/internal/seed"
)

func main() {
	path := flag.String("file", "seed.example.yaml", "seed file to apply")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	doc, err := seed.Load(*path)
	if err != nil {
		logger.Fatal("load seed", zap.Error(err))
	}
	if pw := os.Getenv("SEED_ADMIN_PASSWORD"); pw != "" && doc.Admin != nil {
		doc.Admin.Password = pw
	}

	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name+"-seed", logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	tx := persistence.NewTransactionManager(pg.Pool)
	seeder := &seed.Seeder{
		Accounts:    repository.NewAccountRepository(pg.Pool),
		Departments: repository.NewDepartmentRepository(pg.Pool),
		BcryptCost:  cfg.Auth.BcryptCost,
		Logger:      logger,
	}

	var res *seed.Result
	err = tx.WithinReadWrite(ctx, func(ctx context.Context) error {
		res, err = seeder.Apply(ctx, doc)
		return err
	})
	if err != nil {
		logger.Fatal("apply seed", zap.Error(err))
	}
	logger.Info("seed applied",
		zap.Int("departments_created", res.DepartmentsCreated),
		zap.Int("departments_updated", res.DepartmentsUpdated),
		zap.Bool("admin_created", res.AdminCreated),
	)
}
